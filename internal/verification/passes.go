package verification

import "time"

// PassStatus is the three-way outcome shared by Pass A, B, C, and the
// overall verdict.
type PassStatus int

const (
	StatusPassed PassStatus = iota
	StatusRequiresReview
	StatusFailed
)

func (s PassStatus) String() string {
	switch s {
	case StatusPassed:
		return "Passed"
	case StatusRequiresReview:
		return "RequiresReview"
	default:
		return "Failed"
	}
}

// ratioStatus maps a pass/total ratio to a PassStatus against reviewThreshold
// (70% for Pass B, 75% for Pass C); allPass short-circuits to Passed
// regardless of the threshold once every check has actually passed.
func ratioStatus(passed, total int, allPass bool, reviewThreshold float64) PassStatus {
	if total == 0 {
		return StatusFailed
	}
	if allPass {
		return StatusPassed
	}
	ratio := float64(passed) / float64(total)
	if ratio >= reviewThreshold {
		return StatusRequiresReview
	}
	return StatusFailed
}

// RecomputeFunc re-derives a structurally equivalent representation of a
// phase's output for Pass B. The engine supplies one recomputation hook
// per phase kind; the default hook (identity) applies to any PhaseID with
// no explicit override.
type RecomputeFunc func(PhaseResult) (map[string]any, error)

// PassAResult is Pass A's self-check outcome.
type PassAResult struct {
	Status PassStatus
	Hashes map[PhaseID][32]byte
}

// RunPassA verifies every required phase was recorded and non-empty,
// hashing each phase's output into the ledger. A single absent or empty
// phase marks the pass at best RequiresReview, following the 70% ratio
// rule below; below that ratio it fails outright.
func RunPassA(results map[PhaseID]PhaseResult, required []PhaseID, ledger *EvidenceLedger) (PassAResult, error) {
	hashes := make(map[PhaseID][32]byte, len(required))
	anyMissing := false
	passed := 0

	for _, phase := range required {
		r, ok := results[phase]
		if !ok || r.isEmpty() {
			anyMissing = true
			continue
		}
		h, err := r.hash()
		if err != nil {
			return PassAResult{}, err
		}
		hashes[phase] = h
		ledger.add(phase, "A", h)
		passed++
	}

	if anyMissing {
		ratio := float64(passed) / float64(len(required))
		if ratio >= 0.70 {
			return PassAResult{Status: StatusRequiresReview, Hashes: hashes}, nil
		}
		return PassAResult{Status: StatusFailed, Hashes: hashes}, nil
	}
	return PassAResult{Status: StatusPassed, Hashes: hashes}, nil
}

// PassBResult is Pass B's independent re-derivation outcome.
type PassBResult struct {
	Status PassStatus
	Hashes map[PhaseID][32]byte
}

// RunPassB re-derives each phase's representation via hooks (falling back
// to the identity hook), hashes it, and counts (original_hash,
// rederived_hash) matches against Pass A's hashes.
func RunPassB(results map[PhaseID]PhaseResult, required []PhaseID, original map[PhaseID][32]byte, hooks map[PhaseID]RecomputeFunc, ledger *EvidenceLedger) (PassBResult, error) {
	hashes := make(map[PhaseID][32]byte, len(required))
	matches := 0

	for _, phase := range required {
		r, ok := results[phase]
		if !ok {
			continue
		}
		hook := hooks[phase]
		if hook == nil {
			hook = identityRecompute
		}
		rederived, err := hook(r)
		if err != nil {
			continue
		}
		rr := PhaseResult{Phase: phase, Output: rederived}
		h, err := rr.hash()
		if err != nil {
			return PassBResult{}, err
		}
		hashes[phase] = h
		ledger.add(phase, "B", h)
		if orig, ok := original[phase]; ok && orig == h {
			matches++
		}
	}

	status := ratioStatus(matches, len(required), matches == len(required), 0.70)
	return PassBResult{Status: status, Hashes: hashes}, nil
}

// identityRecompute is the default recomputation hook: it re-serializes
// the same output, so Pass B degrades to confirming Pass A's hash is
// reproducible rather than independently re-derived, for any phase kind
// without a registered hook.
func identityRecompute(r PhaseResult) (map[string]any, error) {
	return r.Output, nil
}

// PassCResult is Pass C's adversarial-challenge outcome.
type PassCResult struct {
	Status     PassStatus
	Challenges [4]bool
}

// RunPassC runs four adversarial challenges: both prior passes succeeded,
// at least one phase result exists, every phase result reports success,
// and no phase exceeded maxDuration.
func RunPassC(a, b PassStatus, results map[PhaseID]PhaseResult, maxDuration time.Duration) PassCResult {
	var c [4]bool

	c[0] = a == StatusPassed && b == StatusPassed
	c[1] = len(results) > 0

	allSuccess := len(results) > 0
	var maxSeen time.Duration
	for _, r := range results {
		if !r.Success {
			allSuccess = false
		}
		if r.Duration > maxSeen {
			maxSeen = r.Duration
		}
	}
	c[2] = allSuccess
	c[3] = maxSeen < maxDuration

	passed := 0
	for _, ok := range c {
		if ok {
			passed++
		}
	}
	status := ratioStatus(passed, 4, passed == 4, 0.75)
	return PassCResult{Status: status, Challenges: c}
}

// DefaultMaxPhaseDuration is Pass C's default per-phase duration ceiling.
const DefaultMaxPhaseDuration = 60 * time.Second
