package deliverable

import (
	"fmt"
	"strings"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/kernerr"
)

// kindByName resolves a deliverable line's leading "KIND:" field
// (case-insensitive) to a Kind.
func kindByName(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "code":
		return Code, true
	case "doc", "documentation":
		return Doc, true
	case "config", "configuration":
		return Config, true
	case "test":
		return Test, true
	case "artifact":
		return Artifact, true
	case "report":
		return Report, true
	case "data":
		return Data, true
	default:
		return Kind{}, false
	}
}

// ParseSpec parses a deliverable plan document (one
// "KIND:name:relative_path[:dep1,dep2,…]" line per deliverable) into
// Deliverables, assigning sequential 1-based "DEL-NNNN" ids and default
// quality gates by kind. Lines starting with "#" are comments, blank
// lines are ignored.
func ParseSpec(src string, now time.Time) ([]*Deliverable, error) {
	var out []*Deliverable
	n := 0

	for lineNo, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ":")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, kernerr.ParseError(fmt.Sprintf("expected KIND:name:path[:deps], got %q", line)))
		}

		kind, ok := kindByName(fields[0])
		if !ok {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, kernerr.ParseError(fmt.Sprintf("unknown kind %q", fields[0])))
		}

		n++
		d := &Deliverable{
			ID:        fmt.Sprintf("DEL-%04d", n),
			Name:      fields[1],
			Kind:      kind,
			Status:    StatusPlanned,
			CreatedAt: now,
			Target: TargetLocation{
				RelativePath: fields[2],
			},
			Gates: DefaultGates(kind),
		}

		if len(fields) >= 4 && fields[3] != "" {
			for _, dep := range strings.Split(fields[3], ",") {
				dep = strings.TrimSpace(dep)
				if dep != "" {
					d.Deps = append(d.Deps, dep)
				}
			}
		}

		out = append(out, d)
	}

	return out, nil
}
