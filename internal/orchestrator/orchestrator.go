// Package orchestrator implements the Orchestrator Loop: the per-request
// pipeline that ties the Ingestion/Deconstruct/Diagnose/Develop/Deliver
// methodology phases together with task submission, agent dispatch,
// verification, and deliverable validation, plus the kernel's shutdown
// sequencing.
package orchestrator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/FlexNetOS/agentaskit/internal/broker"
	"github.com/FlexNetOS/agentaskit/internal/capability"
	"github.com/FlexNetOS/agentaskit/internal/deliverable"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/registry"
	"github.com/FlexNetOS/agentaskit/internal/scheduler"
	"github.com/FlexNetOS/agentaskit/internal/verification"
)

// shutdownPhaseCount and shutdownPhaseGrace together derive the default
// shutdown grace timeout: 5 seconds per phase across five phases.
const (
	shutdownPhaseGrace = 5 * time.Second
	shutdownPhaseCount = 5
)

// dispatchIdleBackoff is how long a dispatch worker sleeps after finding no
// eligible task or no matching agent, so an empty queue does not spin a
// core.
const dispatchIdleBackoff = 5 * time.Millisecond

// Config holds the orchestrator's tunable policy knobs, every one of which
// has a sensible default via DefaultConfig.
type Config struct {
	WorkspaceRoot  string
	RequiredPhases []verification.PhaseID
	RateLimit      rate.Limit
	RateBurst      int
	ShutdownGrace  time.Duration
	ShutdownPhases int
	QualityGate    bool // whether a failed methodology quality gate blocks submission
}

// DefaultConfig returns the kernel's default configuration, rooted at
// workspaceRoot.
func DefaultConfig(workspaceRoot string) Config {
	return Config{
		WorkspaceRoot: workspaceRoot,
		RequiredPhases: []verification.PhaseID{
			verification.PhaseIngestion,
			verification.PhaseDeconstruct,
			verification.PhaseDiagnose,
			verification.PhaseDevelop,
			verification.PhaseDeliver,
		},
		RateLimit:      defaultRequestsPerSecond,
		RateBurst:      defaultBurst,
		ShutdownGrace:  shutdownPhaseGrace,
		ShutdownPhases: shutdownPhaseCount,
		QualityGate:    true,
	}
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithClock overrides the orchestrator's clock (defaults to ids.SystemClock{}).
func WithClock(c ids.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithExecutor overrides the Executor used to carry out assigned tasks
// (defaults to GenericExecutor{}).
func WithExecutor(e Executor) Option {
	return func(o *Orchestrator) { o.executor = e }
}

// Orchestrator owns no state of its own beyond bookkeeping for dispatch
// and shutdown, deferring every durable record to the collaborators
// (registry, scheduler, broker, capability store, verification engine)
// it was constructed with.
type Orchestrator struct {
	cfg Config

	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	broker    *broker.Broker
	capStore  *capability.Store
	engine    *verification.Engine
	sink      *observability.Sink

	clock    ids.Clock
	executor Executor
	limiters *sessionLimiters

	systemAgent ids.AgentID

	mu        sync.RWMutex
	accepting bool
	stop      chan struct{}
	workers   sync.WaitGroup
}

// New wires an Orchestrator over its collaborators. All of registry,
// scheduler, broker, capStore, engine, and sink must be non-nil.
func New(reg *registry.Registry, sched *scheduler.Scheduler, brk *broker.Broker, capStore *capability.Store, engine *verification.Engine, sink *observability.Sink, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		registry:    reg,
		scheduler:   sched,
		broker:      brk,
		capStore:    capStore,
		engine:      engine,
		sink:        sink,
		clock:       ids.SystemClock{},
		executor:    GenericExecutor{},
		limiters:    newSessionLimiters(cfg.RateLimit, cfg.RateBurst),
		systemAgent: ids.NewAgentIDFromName("agentaskit-orchestrator"),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterAgent registers agent with both the registry and the broker
// together, so the two never drift out of sync: every agent the
// orchestrator can assign work to must also have a broker inbox.
func (o *Orchestrator) RegisterAgent(a registry.Agent) {
	o.registry.Register(a)
	o.broker.RegisterAgent(a.ID)
}

// Start launches the dispatch workers, one per available core, and opens
// the gate for ProcessRequest submissions.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	o.accepting = true
	o.mu.Unlock()

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		o.workers.Add(1)
		go o.dispatchLoop()
	}
}

// dispatchLoop repeatedly pulls the next eligible task and dispatches it,
// backing off briefly when the queue is empty or nothing currently
// matches, so an idle queue never spins a core.
func (o *Orchestrator) dispatchLoop() {
	defer o.workers.Done()
	for {
		select {
		case <-o.stop:
			return
		default:
		}

		t := o.scheduler.GetNextEligible()
		if t == nil {
			time.Sleep(dispatchIdleBackoff)
			continue
		}
		if !o.dispatchOne(t) {
			time.Sleep(dispatchIdleBackoff)
		}
	}
}

// dispatchOne matches t to an agent, checks access, assigns it, forwards
// an assignment message over the broker, runs the Executor, and records
// the outcome. It returns false when the task could not be matched this
// tick (left Pending for a later retry) so the caller can back off
// instead of busy-spinning.
func (o *Orchestrator) dispatchOne(t *scheduler.Task) bool {
	agent, err := o.registry.FindFor(registry.MatchRequest{RequiredCaps: t.RequiredCaps})
	if err != nil {
		return false
	}

	for _, c := range t.RequiredCaps.Slice() {
		if !o.capStore.CheckAccess(agent.ID, t.Kind, c) {
			_ = o.scheduler.Fail(t.ID, "unauthorized")
			return true
		}
	}

	if err := o.scheduler.Assign(t.ID, agent.ID); err != nil {
		return false
	}

	_ = o.broker.Send(broker.Message{
		ID:        ids.NewMessageID(),
		From:      o.systemAgent,
		To:        agent.ID,
		Priority:  schedulerPriorityToBroker(t.Priority),
		Payload:   []byte(t.Name),
		CreatedAt: o.clock.Now(),
	})

	started := o.clock.Now()
	output, execErr := o.executor.Execute(context.Background(), t)
	o.registry.RecordLatency(agent.ID, o.clock.Now().Sub(started))

	if execErr != nil {
		_ = o.scheduler.Complete(t.ID, false, map[string]any{"error": execErr.Error()})
		return true
	}
	_ = o.scheduler.Complete(t.ID, true, output)
	return true
}

// schedulerPriorityToBroker converts a scheduler.Priority to this kernel's
// broker.Priority. The two enums share an ordinal ordering by construction
// but are kept as distinct types so internal/broker never imports
// internal/scheduler; this is the one place that bridges them.
func schedulerPriorityToBroker(p scheduler.Priority) broker.Priority {
	return broker.Priority(p)
}

// Shutdown runs the kernel's shutdown sequence: stop accepting
// submissions, wait up to the grace timeout for the pending queue to drain,
// stop the dispatch workers (each finishes the task it is running), ask
// the broker to drain, mark every registered agent Shutdown, sweep expired
// capability tokens, and emit a final audit entry. It returns false if the
// grace timeout elapsed with tasks still pending (the caller should
// treat this as the CLI's "exit code 2, shutdown timeout").
func (o *Orchestrator) Shutdown(ctx context.Context) bool {
	o.mu.Lock()
	o.accepting = false
	o.mu.Unlock()

	grace := o.cfg.ShutdownGrace * time.Duration(o.cfg.ShutdownPhases)
	if grace <= 0 {
		grace = shutdownPhaseGrace * time.Duration(shutdownPhaseCount)
	}

	clean := o.waitForDrain(ctx, grace)

	close(o.stop)
	o.workers.Wait()

	o.broker.Shutdown()

	for _, a := range o.registry.List() {
		_ = o.registry.UpdateStatus(a.ID, registry.StatusShutdown)
	}

	o.capStore.CleanupExpired()

	o.sink.Audit(observability.AuditEntry{
		Action:  "orchestrator_shutdown",
		Success: clean,
		At:      o.clock.Now(),
	})
	return clean
}

// waitForDrain polls the scheduler's pending queue until empty or the grace
// timeout elapses.
func (o *Orchestrator) waitForDrain(ctx context.Context, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if o.scheduler.PendingLen() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return o.scheduler.PendingLen() == 0
		case <-time.After(10 * time.Millisecond):
		}
	}
	return o.scheduler.PendingLen() == 0
}

// isAccepting reports whether the orchestrator currently accepts new
// requests (false once Shutdown has begun).
func (o *Orchestrator) isAccepting() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.accepting
}

// Accepting is isAccepting's exported form, for ambient surfaces like
// internal/httpapi that report readiness without reaching into
// orchestrator-internal state.
func (o *Orchestrator) Accepting() bool {
	return o.isAccepting()
}
