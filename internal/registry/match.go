package registry

import "github.com/FlexNetOS/agentaskit/internal/capability"

// MatchRequest carries the parts of a task the matcher needs, kept separate
// from any scheduler type so this package never imports internal/scheduler
// (the dependency runs scheduler -> registry, never back).
type MatchRequest struct {
	RequiredCaps    capability.Set
	Specializations []string // requester-side hints, currently unused by score
}

// maxLoadForMatch excludes agents too loaded to take new work.
const maxLoadForMatch = 0.9

// score computes an agent's fitness for a match request:
//
//	ratio = |required ∩ (agent.caps ∪ specializations)| / |required|  (1.0 if required is empty)
//	score = 0.5*ratio + 0.3*(1-load) + 0.2*performance
//
// Agents that are not Healthy, whose load is at least maxLoadForMatch, or that
// share no capability at all with the request never score: eligible
// reports false and score is meaningless. A partial match (the agent
// covers some but not every required capability) is still scored and
// remains eligible, since a partially-qualified agent is better than no
// agent at all when nothing fully qualified is available.
func score(a Agent, req MatchRequest) (s float64, eligible bool) {
	if a.Health != HealthHealthy {
		return 0, false
	}
	if a.Load >= maxLoadForMatch {
		return 0, false
	}

	required := req.RequiredCaps.Slice()
	var ratio float64
	if len(required) == 0 {
		ratio = 1.0
	} else {
		matched := matchedCapabilityCount(a, required)
		if matched == 0 {
			return 0, false
		}
		ratio = float64(matched) / float64(len(required))
	}

	s = 0.5*ratio + 0.3*(1-a.Load) + 0.2*a.Performance
	return s, true
}

// matchedCapabilityCount counts how many of required are covered by the
// union of a.Caps and a.Specializations, comparing by capability name so a
// specialization string like "DataAccess" counts toward a required
// DataAccess capability the same as holding the capability outright.
func matchedCapabilityCount(a Agent, required []capability.Capability) int {
	held := make(map[string]bool, a.Caps.Len()+len(a.Specializations))
	for _, c := range a.Caps.Slice() {
		held[c.Name()] = true
	}
	for _, spec := range a.Specializations {
		held[spec] = true
	}

	n := 0
	for _, r := range required {
		if held[r.Name()] {
			n++
		}
	}
	return n
}

// best picks the highest-scoring eligible agent among candidates, breaking
// ties by lowest load then smallest AgentID.
func best(candidates []Agent, req MatchRequest) (Agent, bool) {
	var (
		winner Agent
		top    float64
		found  bool
	)
	for _, a := range candidates {
		s, ok := score(a, req)
		if !ok {
			continue
		}
		switch {
		case !found:
			winner, top, found = a, s, true
		case s > top:
			winner, top = a, s
		case s == top:
			if a.Load < winner.Load || (a.Load == winner.Load && a.ID.Less(winner.ID)) {
				winner = a
			}
		}
	}
	return winner, found
}
