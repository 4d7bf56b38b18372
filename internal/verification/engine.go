package verification

import (
	"time"

	"github.com/antithesishq/antithesis-sdk-go/assert"

	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// Engine owns the recomputation-hook registry and the adversarial
// duration ceiling, and is otherwise stateless between calls to Run.
type Engine struct {
	hooks               map[PhaseID]RecomputeFunc
	maxPhaseDuration    time.Duration
	sink                *observability.Sink
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithRecomputeHook registers phase's Pass B recomputation hook.
func WithRecomputeHook(phase PhaseID, hook RecomputeFunc) Option {
	return func(e *Engine) { e.hooks[phase] = hook }
}

// WithMaxPhaseDuration overrides Pass C challenge 4's ceiling (default
// DefaultMaxPhaseDuration).
func WithMaxPhaseDuration(d time.Duration) Option {
	return func(e *Engine) { e.maxPhaseDuration = d }
}

// NewEngine creates an Engine.
func NewEngine(sink *observability.Sink, opts ...Option) *Engine {
	e := &Engine{
		hooks:            make(map[PhaseID]RecomputeFunc),
		maxPhaseDuration: DefaultMaxPhaseDuration,
		sink:             sink,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the three passes over results for the given required
// phases and returns a Verdict. contractTestingPassed and
// fsIntegrityClean are supplied by the orchestrator's own sweeps, since
// this engine never touches the filesystem or runs contract tests itself.
func (e *Engine) Run(results map[PhaseID]PhaseResult, required []PhaseID, contractTestingPassed, fsIntegrityClean bool) (Verdict, error) {
	ledger := &EvidenceLedger{}

	a, err := RunPassA(results, required, ledger)
	if err != nil {
		return Verdict{}, err
	}

	b, err := RunPassB(results, required, a.Hashes, e.hooks, ledger)
	if err != nil {
		return Verdict{}, err
	}

	c := RunPassC(a.Status, b.Status, results, e.maxPhaseDuration)

	overall := overallStatus(a.Status, b.Status, c.Status)
	checklist := buildChecklist(a, b, c, ledger, required, contractTestingPassed, fsIntegrityClean)

	assert.Always(overall != StatusPassed || checklist.AllPointsVerified,
		"a Passed verdict always carries all-points-verified in its truth gate",
		map[string]any{"overall": overall.String()})

	e.sink.IncrCounter("verification.runs")
	if overall == StatusFailed {
		e.sink.IncrCounter("verification.failed")
	}

	return Verdict{
		PassA:     a,
		PassB:     b,
		PassC:     c,
		Overall:   overall,
		Checklist: checklist,
		Ledger:    ledger.Entries(),
	}, nil
}
