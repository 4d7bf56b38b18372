package verification

// EvidenceEntry is one hash contributed to the evidence ledger by a phase
// during Pass A or Pass B.
type EvidenceEntry struct {
	Phase PhaseID
	Pass  string // "A" or "B"
	Hash  [32]byte
}

// EvidenceLedger accumulates every phase hash produced while running the
// three passes, so the truth-gate checklist can confirm "every phase
// contributes at least one evidence entry".
type EvidenceLedger struct {
	entries []EvidenceEntry
}

func (l *EvidenceLedger) add(phase PhaseID, pass string, hash [32]byte) {
	l.entries = append(l.entries, EvidenceEntry{Phase: phase, Pass: pass, Hash: hash})
}

// Entries returns a copy of the accumulated evidence entries.
func (l *EvidenceLedger) Entries() []EvidenceEntry {
	return append([]EvidenceEntry(nil), l.entries...)
}

// coversPhase reports whether phase has at least one contributed entry.
func (l *EvidenceLedger) coversPhase(phase PhaseID) bool {
	for _, e := range l.entries {
		if e.Phase == phase {
			return true
		}
	}
	return false
}

// coversAll reports whether every phase in required has at least one entry.
func (l *EvidenceLedger) coversAll(required []PhaseID) bool {
	for _, p := range required {
		if !l.coversPhase(p) {
			return false
		}
	}
	return true
}
