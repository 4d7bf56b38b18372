package deliverable

import (
	"fmt"

	"github.com/FlexNetOS/agentaskit/internal/kernerr"
)

// Plan holds the parsed deliverables, a topologically valid execution
// order, and the parallel-group partition.
type Plan struct {
	Deliverables   []*Deliverable
	ExecutionOrder []string // Deliverable IDs, dependency-respecting
	ParallelGroups [][]string
}

// BuildPlan topologically sorts deliverables by their dependencies (each
// matched against deliverable names first, then ids) and computes parallel
// groups: group[0] holds deliverables with no
// dependencies, group[k+1] holds deliverables whose dependencies all lie
// in groups[0..=k]. A cycle is reported as kernerr.ErrDependencyCycle
// naming the first deliverable id found still unresolved once no further
// progress is possible.
func BuildPlan(deliverables []*Deliverable) (*Plan, error) {
	byName := make(map[string]*Deliverable, len(deliverables))
	byID := make(map[string]*Deliverable, len(deliverables))
	for _, d := range deliverables {
		byName[d.Name] = d
		byID[d.ID] = d
	}

	depIDs := make(map[string][]string, len(deliverables))
	for _, d := range deliverables {
		for _, depName := range d.Deps {
			dep, ok := byName[depName]
			if !ok {
				dep, ok = byID[depName]
			}
			if !ok {
				return nil, fmt.Errorf("deliverable %s depends on unknown name %q: %w", d.ID, depName, kernerr.ErrValidationFailed)
			}
			depIDs[d.ID] = append(depIDs[d.ID], dep.ID)
		}
	}

	resolved := make(map[string]bool, len(deliverables))
	var order []string
	var groups [][]string

	remaining := append([]*Deliverable(nil), deliverables...)
	for len(remaining) > 0 {
		var group []string
		var next []*Deliverable

		for _, d := range remaining {
			ready := true
			for _, dep := range depIDs[d.ID] {
				if !resolved[dep] {
					ready = false
					break
				}
			}
			if ready {
				group = append(group, d.ID)
			} else {
				next = append(next, d)
			}
		}

		if len(group) == 0 {
			return nil, kernerr.DependencyCycle(remaining[0].ID)
		}

		for _, id := range group {
			resolved[id] = true
		}
		order = append(order, group...)
		groups = append(groups, group)
		remaining = next
	}

	return &Plan{
		Deliverables:   deliverables,
		ExecutionOrder: order,
		ParallelGroups: groups,
	}, nil
}

// ByID returns the deliverable with the given id, or nil if absent.
func (p *Plan) ByID(id string) *Deliverable {
	for _, d := range p.Deliverables {
		if d.ID == id {
			return d
		}
	}
	return nil
}
