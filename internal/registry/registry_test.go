package registry

import (
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/capability"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

func newTestRegistry() *Registry {
	return New(observability.New(nil, nil), WithClock(ids.NewFixedClock(time.Unix(1000, 0))))
}

func healthyAgent(caps ...capability.Capability) Agent {
	return Agent{
		ID:          ids.NewAgentID(),
		Name:        "worker",
		Caps:        capability.NewSet(caps...),
		Health:      HealthHealthy,
		Load:        0.1,
		Performance: 0.8,
	}
}

func TestRegisterThenGetRoundTrips(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	r.Register(a)

	got, err := r.Get(a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "worker" {
		t.Errorf("expected name to round-trip, got %q", got.Name)
	}
}

func TestUnregisterUnknownAgentIsError(t *testing.T) {
	r := newTestRegistry()
	if err := r.Unregister(ids.NewAgentID()); err == nil {
		t.Errorf("expected error unregistering unknown agent")
	}
}

func TestFindForPrefersHigherScore(t *testing.T) {
	r := newTestRegistry()

	weak := healthyAgent(capability.TaskExecution)
	weak.Load = 0.8
	weak.Performance = 0.2

	strong := healthyAgent(capability.TaskExecution)
	strong.Load = 0.1
	strong.Performance = 0.9

	r.Register(weak)
	r.Register(strong)

	winner, err := r.FindFor(MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.ID != strong.ID {
		t.Errorf("expected stronger agent to win")
	}
}

func TestFindForExcludesOverloadedAgents(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	a.Load = 0.95
	r.Register(a)

	if _, err := r.FindFor(MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution)}); err == nil {
		t.Errorf("expected no match when the only candidate is overloaded")
	}
}

func TestFindForExcludesAgentsMissingRequiredCapability(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.DataAccess)
	r.Register(a)

	if _, err := r.FindFor(MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution)}); err == nil {
		t.Errorf("expected no match when capability is missing")
	}
}

func TestFindForScoresPartialCapabilityMatch(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	r.Register(a)

	req := MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution, capability.DataAccess)}
	winner, err := r.FindFor(req)
	if err != nil {
		t.Fatalf("expected a partially-matching agent to be selected, got error: %v", err)
	}
	if winner.ID != a.ID {
		t.Errorf("expected partially-matching agent to win, got %s", winner.ID)
	}
}

func TestFindForSpecializationCountsTowardMatch(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	a.Specializations = []string{capability.DataAccess.Name()}
	r.Register(a)

	req := MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution, capability.DataAccess)}
	winner, err := r.FindFor(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.ID != a.ID {
		t.Errorf("expected agent to win via specialization-covered capability")
	}

	s, eligible := score(winner, req)
	if !eligible {
		t.Fatalf("expected agent to remain eligible")
	}
	single := 0.5*0.5 + 0.3*(1-winner.Load) + 0.2*winner.Performance
	if s <= single {
		t.Errorf("expected specialization to raise the score above a single-capability match (%f), got %f", single, s)
	}
}

func TestFindForTieBreaksByLowestLoadThenID(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	a.Load, a.Performance = 0.2, 0.5
	b := healthyAgent(capability.TaskExecution)
	b.Load, b.Performance = 0.1, 0.5

	r.Register(a)
	r.Register(b)

	winner, err := r.FindFor(MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.ID != b.ID {
		t.Errorf("expected lower-load agent to win")
	}

	// Identical load and performance give an exact score tie, which the
	// smaller ID wins.
	r2 := newTestRegistry()
	c := healthyAgent(capability.TaskExecution)
	d := healthyAgent(capability.TaskExecution)
	r2.Register(c)
	r2.Register(d)
	want := c.ID
	if d.ID.Less(c.ID) {
		want = d.ID
	}
	winner, err = r2.FindFor(MatchRequest{RequiredCaps: capability.NewSet(capability.TaskExecution)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner.ID != want {
		t.Errorf("expected the smaller-ID agent to win an exact score tie")
	}
}

func TestRecordLatencyDegradesHealthOnSLOBreach(t *testing.T) {
	r := New(observability.New(nil, nil), WithLatencySLO(10*time.Millisecond))
	a := healthyAgent(capability.TaskExecution)
	r.Register(a)

	for i := 0; i < latencyWindow; i++ {
		if err := r.RecordLatency(a.ID, 50*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := r.Get(a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Health != HealthDegraded {
		t.Errorf("expected health degraded after sustained SLO breach, got %s", got.Health)
	}
}

func TestListIsSortedByID(t *testing.T) {
	r := newTestRegistry()
	a := healthyAgent(capability.TaskExecution)
	b := healthyAgent(capability.TaskExecution)
	r.Register(a)
	r.Register(b)

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(list))
	}
	if !list[0].ID.Less(list[1].ID) {
		t.Errorf("expected agents sorted by ascending ID")
	}
}
