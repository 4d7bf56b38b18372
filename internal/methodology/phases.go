package methodology

import (
	"strconv"
	"strings"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

// Score is a phase's deterministic 0-100 rubric outcome.
type Score int

// clampScore keeps a computed rubric value in [0, 100].
func clampScore(v int) Score {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Score(v)
}

// IngestionResult is the pre-Deconstruct bookend phase's output: request
// normalization, session assignment, and security validation.
type IngestionResult struct {
	Session           ids.SessionID
	NormalizedMessage string
	Rejected          bool
	RejectReason      string
	Score             Score
}

// maxIngestLength bounds accepted request size; anything longer is
// rejected outright rather than truncated, per the Ingestion phase's
// "rejects over-length... input" duty in SPEC_FULL.md §4.
const maxIngestLength = 32 * 1024

// injectionMarkers are crude prompt-injection tells; this is a heuristic
// gate, not a security boundary — capability tokens are the boundary.
var injectionMarkers = []string{
	"ignore previous instructions",
	"ignore all prior instructions",
	"disregard the system prompt",
}

// RunIngestion normalizes raw whitespace, assigns a session id, and runs
// the over-length/injection-pattern reject check.
func RunIngestion(raw string, now time.Time) IngestionResult {
	normalized := strings.Join(strings.Fields(raw), " ")
	session := ids.NewSessionID()

	if len(normalized) > maxIngestLength {
		return IngestionResult{Session: session, NormalizedMessage: normalized, Rejected: true, RejectReason: "message exceeds maximum length", Score: 0}
	}
	lower := strings.ToLower(normalized)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return IngestionResult{Session: session, NormalizedMessage: normalized, Rejected: true, RejectReason: "injection pattern detected", Score: 0}
		}
	}

	score := 100
	if normalized == "" {
		score = 0
	}
	return IngestionResult{Session: session, NormalizedMessage: normalized, Score: clampScore(score)}
}

// DeconstructResult is the Deconstruct phase's output: intent, entities,
// constraints, the normalized message, and a security status carried
// forward from Ingestion.
type DeconstructResult struct {
	Intent       string
	Entities     []string
	Constraints  []string
	Normalized   string
	SecurityOK   bool
	Score        Score
}

// RunDeconstruct extracts intent (first sentence), entities (capitalized
// tokens, a deterministic proxy absent an NER model), and constraints
// (clauses containing "must"/"should"/"cannot").
func RunDeconstruct(ingestion IngestionResult) DeconstructResult {
	msg := ingestion.NormalizedMessage
	intent := msg
	if idx := strings.IndexAny(msg, ".!?"); idx > 0 {
		intent = msg[:idx]
	}

	var entities []string
	for _, word := range strings.Fields(msg) {
		trimmed := strings.Trim(word, ".,!?;:")
		if len(trimmed) > 1 && strings.ToUpper(trimmed[:1]) == trimmed[:1] && strings.ToLower(trimmed) != trimmed {
			entities = append(entities, trimmed)
		}
	}

	var constraints []string
	for _, clause := range strings.Split(msg, ",") {
		lower := strings.ToLower(clause)
		if strings.Contains(lower, "must") || strings.Contains(lower, "should") || strings.Contains(lower, "cannot") {
			constraints = append(constraints, strings.TrimSpace(clause))
		}
	}

	score := 60
	if intent != "" {
		score += 20
	}
	if len(entities) > 0 {
		score += 10
	}
	if len(constraints) > 0 {
		score += 10
	}

	return DeconstructResult{
		Intent:      intent,
		Entities:    entities,
		Constraints: constraints,
		Normalized:  msg,
		SecurityOK:  !ingestion.Rejected,
		Score:       clampScore(score),
	}
}

// DiagnoseResult is the Diagnose phase's output: request category,
// complexity, and resource estimate.
type DiagnoseResult struct {
	Category   Category
	Complexity Complexity
	Resources  ResourceEstimate
	Score      Score
}

// RunDiagnose classifies and sizes the request.
func RunDiagnose(d DeconstructResult) DiagnoseResult {
	category := ClassifyCategory(d.Normalized)
	complexity := AssessComplexity(d.Normalized, len(d.Entities), len(d.Constraints))
	resources := EstimateResources(complexity)

	score := 70
	if d.SecurityOK {
		score += 20
	}
	if category != CategoryComplex {
		score += 10 // an explicit keyword match scores higher than the Complex fallback
	}

	return DiagnoseResult{Category: category, Complexity: complexity, Resources: resources, Score: clampScore(score)}
}

// OptimizationTechnique names a Develop-phase strategy applied to the plan.
type OptimizationTechnique string

const (
	TechniqueParallelDecomposition OptimizationTechnique = "parallel_decomposition"
	TechniquePhasedRollout         OptimizationTechnique = "phased_rollout"
	TechniqueSingleAgentDirect     OptimizationTechnique = "single_agent_direct"
)

// DevelopResult is the Develop phase's output: chosen optimization
// techniques and an AI-role assignment.
type DevelopResult struct {
	Techniques []OptimizationTechnique
	AIRole     string
	Score      Score
}

// RunDevelop selects optimization techniques and an AI-role label from the
// Diagnose outcome, generalizing internal/supervisor/decision.go's
// SelectMode thresholds from "findings count" to "estimated task count".
func RunDevelop(diag DiagnoseResult) DevelopResult {
	var techniques []OptimizationTechnique
	var role string

	switch {
	case diag.Resources.EstimatedTasks <= 1:
		techniques = []OptimizationTechnique{TechniqueSingleAgentDirect}
		role = "generalist"
	case diag.Complexity == ComplexityHighlyComplex:
		techniques = []OptimizationTechnique{TechniquePhasedRollout, TechniqueParallelDecomposition}
		role = "lead-with-specialists"
	default:
		techniques = []OptimizationTechnique{TechniqueParallelDecomposition}
		role = "specialist-pool"
	}

	score := 75
	if len(techniques) > 0 {
		score += 15
	}
	if role != "" {
		score += 10
	}

	return DevelopResult{Techniques: techniques, AIRole: role, Score: clampScore(score)}
}

// TaskSpec is a lightweight, decoupled description of a planned unit of
// work, converted by the orchestrator into a scheduler.Task — this package
// never imports internal/scheduler so the methodology pipeline stays
// independent of task-queue mechanics.
type TaskSpec struct {
	Name         string
	Kind         string
	RequiredCaps []string
	Deps         []string
}

// DeliverResult is the Deliver phase's output: the execution plan, the
// deliverable plan text (in deliverable.ParseSpec's line format), and a
// timeline label.
type DeliverResult struct {
	ExecutionPlan   []TaskSpec
	DeliverableSpec string
	Timeline        string
	Score           Score
}

// RunDeliver expands the Develop outcome into a concrete task list and
// deliverable-spec document.
func RunDeliver(diag DiagnoseResult, dev DevelopResult) DeliverResult {
	n := diag.Resources.EstimatedTasks
	if n < 1 {
		n = 1
	}

	var plan []TaskSpec
	var specLines []string
	for i := 1; i <= n; i++ {
		name := "task-" + strconv.Itoa(i)
		plan = append(plan, TaskSpec{Name: name, Kind: "generic"})
		specLines = append(specLines, "CODE:"+name+":"+name+".go")
	}

	timeline := "hours"
	if diag.Complexity == ComplexityComplex || diag.Complexity == ComplexityHighlyComplex {
		timeline = "days"
	}

	score := 70
	if len(plan) == n {
		score += 20
	}
	if len(dev.Techniques) > 0 {
		score += 10
	}

	return DeliverResult{
		ExecutionPlan:   plan,
		DeliverableSpec: strings.Join(specLines, "\n"),
		Timeline:        timeline,
		Score:           clampScore(score),
	}
}

// ArchiveResult is the post-Deliver bookend phase's output: confirmation
// that the subject's evidence ledger was written to the backup tree.
type ArchiveResult struct {
	ArchivePath string
	BytesWritten int64
	Score        Score
}

// RunArchive records that archival ran; the orchestrator supplies the
// actual compressed write (it owns the klauspost/compress gzip writer and
// backup-root path), this phase only scores the outcome it was told about.
func RunArchive(archivePath string, bytesWritten int64) ArchiveResult {
	score := 0
	if bytesWritten > 0 {
		score = 100
	}
	return ArchiveResult{ArchivePath: archivePath, BytesWritten: bytesWritten, Score: clampScore(score)}
}
