package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// latencyWindow is the number of most recent task-completion latencies kept
// per agent for p95 SLO sampling over a rolling window.
const latencyWindow = 128

// defaultLatencySLO is breached when an agent's sampled p95 exceeds it; it
// degrades the agent's health rather than removing it outright.
const defaultLatencySLO = 5 * time.Second

// record is the registry's internal per-agent bookkeeping: the public Agent
// plus the rolling latency samples used to compute p95 and flag SLO breach.
type record struct {
	agent      Agent
	latencies  []time.Duration // ring buffer, oldest overwritten first
	next       int
	filled     bool
}

// Registry is the Agent Registry: the single owner of agent records,
// health, load, and the capability matcher.
type Registry struct {
	mu    sync.RWMutex
	byID  map[ids.AgentID]*record
	sink  *observability.Sink
	clock ids.Clock
	slo   time.Duration
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithClock overrides the Registry's clock (defaults to ids.SystemClock{}).
func WithClock(c ids.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithLatencySLO overrides the p95 latency SLO (default defaultLatencySLO).
func WithLatencySLO(d time.Duration) Option {
	return func(r *Registry) { r.slo = d }
}

// New creates an empty Registry.
func New(sink *observability.Sink, opts ...Option) *Registry {
	r := &Registry{
		byID:  make(map[ids.AgentID]*record),
		sink:  sink,
		clock: ids.SystemClock{},
		slo:   defaultLatencySLO,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds agent to the registry, or replaces an existing record of
// the same ID: re-registration always refreshes the record in place.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = &record{agent: a.clone()}
	r.sink.Audit(observability.AuditEntry{
		Action:  "agent_registered",
		Agent:   a.ID.String(),
		Success: true,
		At:      r.clock.Now(),
	})
	r.sink.IncrCounter("registry.agents_registered")
}

// Unregister removes agent id. Unregistering an unknown agent is an error.
func (r *Registry) Unregister(id ids.AgentID) error {
	r.mu.Lock()
	_, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
	}
	r.mu.Unlock()

	if !ok {
		return kernerr.NotFound("agent", id.String())
	}
	r.sink.Audit(observability.AuditEntry{Action: "agent_unregistered", Agent: id.String(), Success: true, At: r.clock.Now()})
	return nil
}

// UpdateHealth sets agent id's health classification directly (from an
// external liveness probe), independent of latency-derived degradation.
func (r *Registry) UpdateHealth(id ids.AgentID, h Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return kernerr.NotFound("agent", id.String())
	}
	rec.agent.Health = h
	return nil
}

// UpdateStatus sets agent id's lifecycle Status directly, used by the
// orchestrator's shutdown sequencing to mark every agent Shutdown without
// disturbing its health or load bookkeeping.
func (r *Registry) UpdateStatus(id ids.AgentID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return kernerr.NotFound("agent", id.String())
	}
	rec.agent.Status = status
	return nil
}

// UpdateLoad sets agent id's reported load in [0,1].
func (r *Registry) UpdateLoad(id ids.AgentID, load float64) error {
	if load < 0 {
		load = 0
	}
	if load > 1 {
		load = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return kernerr.NotFound("agent", id.String())
	}
	rec.agent.Load = load
	return nil
}

// RecordLatency feeds a task-completion latency sample into agent id's
// rolling window and re-derives health from the sampled p95 against the
// configured SLO: a breach degrades Healthy to Degraded, it never escalates
// an agent already Unhealthy or Error.
func (r *Registry) RecordLatency(id ids.AgentID, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return kernerr.NotFound("agent", id.String())
	}
	if rec.latencies == nil {
		rec.latencies = make([]time.Duration, latencyWindow)
	}
	rec.latencies[rec.next] = d
	rec.next = (rec.next + 1) % latencyWindow
	if rec.next == 0 {
		rec.filled = true
	}

	p95 := rec.p95()
	if p95 > r.slo && rec.agent.Health == HealthHealthy {
		rec.agent.Health = HealthDegraded
		r.sink.Warnf("agent %s p95 latency %s exceeds SLO %s, degrading health", id, p95, r.slo)
	}
	return nil
}

// p95 returns the 95th-percentile latency over the filled portion of the
// ring buffer, or 0 if no samples have been recorded yet.
func (rec *record) p95() time.Duration {
	n := rec.next
	if rec.filled {
		n = latencyWindow
	}
	if n == 0 {
		return 0
	}
	samples := append([]time.Duration(nil), rec.latencies[:n]...)
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	idx := int(float64(n) * 0.95)
	if idx >= n {
		idx = n - 1
	}
	return samples[idx]
}

// Get returns a copy of agent id's record.
func (r *Registry) Get(id ids.AgentID) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Agent{}, kernerr.NotFound("agent", id.String())
	}
	return rec.agent.clone(), nil
}

// List returns a copy of every registered agent, in ascending ID order for
// deterministic iteration by callers (dashboards, tests).
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec.agent.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// FindFor runs the scoring algorithm over all registered agents and
// returns the winning agent, or ErrNoMatch if none is eligible.
func (r *Registry) FindFor(req MatchRequest) (Agent, error) {
	r.mu.RLock()
	candidates := make([]Agent, 0, len(r.byID))
	for _, rec := range r.byID {
		candidates = append(candidates, rec.agent)
	}
	r.mu.RUnlock()

	winner, ok := best(candidates, req)
	if !ok {
		return Agent{}, kernerr.ErrNoMatch
	}
	return winner.clone(), nil
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
