// Package capability implements a closed Capability enumeration extensible
// via Custom, plus a token store for issuing, validating, and revoking
// capability grants with a per-resource ACL and an audit-logged access
// check.
package capability

// Capability is a symbolic permission an agent may hold. The zero value is
// never a valid Capability; use one of the named constants or Custom.
type Capability struct {
	kind custom
	name string
}

type custom bool

// Well-known capabilities covering the permissions agents commonly need.
var (
	TaskExecution      = Capability{name: "TaskExecution"}
	DataAccess         = Capability{name: "DataAccess"}
	NetworkAccess      = Capability{name: "NetworkAccess"}
	SystemAdmin        = Capability{name: "SystemAdmin"}
	SecurityManagement = Capability{name: "SecurityManagement"}
)

// Custom returns a Custom(name) capability for permissions outside the
// well-known set. A Custom capability never matches a non-Custom request
// of the same rendered name, so an operator-defined "Custom(DataAccess)"
// can never be confused with the well-known DataAccess.
func Custom(name string) Capability {
	return Capability{kind: true, name: name}
}

// IsCustom reports whether c was constructed via Custom.
func (c Capability) IsCustom() bool { return bool(c.kind) }

// Name returns the capability's symbolic name.
func (c Capability) Name() string { return c.name }

// Equal reports whether two capabilities denote the same permission. Custom
// and non-Custom capabilities with the same name are never equal.
func (c Capability) Equal(other Capability) bool {
	return c.kind == other.kind && c.name == other.name
}

func (c Capability) String() string {
	if c.kind {
		return "Custom(" + c.name + ")"
	}
	return c.name
}

// Set is an unordered collection of distinct capabilities.
type Set struct {
	items []Capability
}

// NewSet builds a Set from the given capabilities, de-duplicating.
func NewSet(caps ...Capability) Set {
	s := Set{}
	for _, c := range caps {
		s.Add(c)
	}
	return s
}

// Add inserts c into the set if not already present.
func (s *Set) Add(c Capability) {
	if s.Contains(c) {
		return
	}
	s.items = append(s.items, c)
}

// Contains reports whether c is a member of the set.
func (s Set) Contains(c Capability) bool {
	for _, item := range s.items {
		if item.Equal(c) {
			return true
		}
	}
	return false
}

// Slice returns the set's members as a slice, in insertion order.
func (s Set) Slice() []Capability {
	out := make([]Capability, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct capabilities in the set.
func (s Set) Len() int { return len(s.items) }

// IntersectionSize returns |a ∩ b|, used by the registry's match-ratio
// computation to score how well an agent's capabilities cover a task's
// requirements.
func IntersectionSize(a, b Set) int {
	n := 0
	for _, item := range a.items {
		if b.Contains(item) {
			n++
		}
	}
	return n
}
