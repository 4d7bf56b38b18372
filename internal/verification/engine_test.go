package verification

import (
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/observability"
)

var allPhases = []PhaseID{PhaseIngestion, PhaseDeconstruct, PhaseDiagnose, PhaseDevelop, PhaseDeliver, PhaseArchive}

func completeResults() map[PhaseID]PhaseResult {
	out := make(map[PhaseID]PhaseResult, len(allPhases))
	for _, p := range allPhases {
		out[p] = PhaseResult{
			Phase:    p,
			Output:   map[string]any{"ok": true, "phase": p.String()},
			Success:  true,
			Duration: time.Second,
		}
	}
	return out
}

func TestRunPassesAllPassedWhenEveryPhaseComplete(t *testing.T) {
	e := NewEngine(observability.New(nil, nil))
	verdict, err := e.Run(completeResults(), allPhases, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Overall != StatusPassed {
		t.Errorf("expected overall Passed, got %s", verdict.Overall)
	}
	if !verdict.Checklist.AllPass() {
		t.Errorf("expected all six truth-gate points to pass: %+v", verdict.Checklist)
	}
}

func TestRunPassAFailsOnMissingPhase(t *testing.T) {
	e := NewEngine(observability.New(nil, nil))
	results := completeResults()
	delete(results, PhaseArchive)

	verdict, err := e.Run(results, allPhases, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Overall == StatusPassed {
		t.Errorf("expected overall verdict to not be Passed when a required phase is missing")
	}
}

func TestRunPassCFailsOnDurationCeilingBreach(t *testing.T) {
	e := NewEngine(observability.New(nil, nil), WithMaxPhaseDuration(time.Millisecond))
	results := completeResults()

	verdict, err := e.Run(results, allPhases, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.PassC.Challenges[3] {
		t.Errorf("expected duration-ceiling challenge to fail when phases exceed the ceiling")
	}
	if verdict.Overall == StatusPassed {
		t.Errorf("expected overall verdict to not be Passed when Pass C fails a challenge")
	}
}

func TestRunPassCFailsWhenAnyPhaseUnsuccessful(t *testing.T) {
	e := NewEngine(observability.New(nil, nil))
	results := completeResults()
	r := results[PhaseDeliver]
	r.Success = false
	results[PhaseDeliver] = r

	verdict, err := e.Run(results, allPhases, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.PassC.Challenges[2] {
		t.Errorf("expected success challenge to fail when a phase reports failure")
	}
}

func TestRunPassBUsesRegisteredRecomputeHook(t *testing.T) {
	called := false
	hook := func(r PhaseResult) (map[string]any, error) {
		called = true
		return r.Output, nil
	}
	e := NewEngine(observability.New(nil, nil), WithRecomputeHook(PhaseDiagnose, hook))

	if _, err := e.Run(completeResults(), allPhases, true, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Errorf("expected registered recompute hook to be invoked")
	}
}

func TestChecklistRequiresAllSixPoints(t *testing.T) {
	gate := TruthGate{
		ChecklistComplete:      true,
		AllPointsVerified:      true,
		MathematicalProofs:     true,
		EvidenceLedgerComplete: true,
		ContractTestingPassed:  true,
		FSIntegrityClean:       false,
	}
	if gate.AllPass() {
		t.Errorf("expected AllPass to require every point, fs-integrity-clean is false")
	}
}

func TestEvidenceLedgerContainsEntryPerPhase(t *testing.T) {
	e := NewEngine(observability.New(nil, nil))
	verdict, err := e.Run(completeResults(), allPhases, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range allPhases {
		found := false
		for _, entry := range verdict.Ledger {
			if entry.Phase == p {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected ledger to contain an entry for phase %s", p)
		}
	}
}
