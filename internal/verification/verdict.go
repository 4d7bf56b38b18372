package verification

// TruthGate is the six-point checklist, all required for the subject to
// be accepted.
type TruthGate struct {
	ChecklistComplete      bool
	AllPointsVerified      bool
	MathematicalProofs     bool // at least 1 per phase
	EvidenceLedgerComplete bool // every phase contributes at least one entry
	ContractTestingPassed  bool
	FSIntegrityClean       bool
}

// AllPass reports whether every checklist point holds.
func (g TruthGate) AllPass() bool {
	return g.ChecklistComplete && g.AllPointsVerified && g.MathematicalProofs &&
		g.EvidenceLedgerComplete && g.ContractTestingPassed && g.FSIntegrityClean
}

// Verdict is the side-effect-free result returned by the engine, for the
// orchestrator to act upon.
type Verdict struct {
	PassA     PassAResult
	PassB     PassBResult
	PassC     PassCResult
	Overall   PassStatus
	Checklist TruthGate
	Ledger    []EvidenceEntry
}

// overallStatus combines Pass A, B, C: Passed iff all three are Passed;
// Failed if any is Failed; else RequiresReview.
func overallStatus(a, b, c PassStatus) PassStatus {
	if a == StatusPassed && b == StatusPassed && c == StatusPassed {
		return StatusPassed
	}
	if a == StatusFailed || b == StatusFailed || c == StatusFailed {
		return StatusFailed
	}
	return StatusRequiresReview
}

// buildChecklist derives the six-point truth gate from the three passes'
// outcomes and the evidence ledger. MathematicalProofs is approximated as
// "every required phase contributed at least one hash", since the
// kernel's phase outputs are opaque JSON, not formal proof objects;
// fsIntegrityClean and contractTestingPassed are supplied by the caller
// (the orchestrator's own filesystem and contract-test sweeps), since the
// verification engine itself never touches the filesystem.
func buildChecklist(a PassAResult, b PassBResult, c PassCResult, ledger *EvidenceLedger, required []PhaseID, contractTestingPassed, fsIntegrityClean bool) TruthGate {
	allVerified := a.Status == StatusPassed && b.Status == StatusPassed
	return TruthGate{
		ChecklistComplete:      len(a.Hashes) == len(required) && len(b.Hashes) == len(required),
		AllPointsVerified:      allVerified,
		MathematicalProofs:     ledger.coversAll(required),
		EvidenceLedgerComplete: ledger.coversAll(required),
		ContractTestingPassed:  contractTestingPassed,
		FSIntegrityClean:       fsIntegrityClean,
	}
}
