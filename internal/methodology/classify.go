package methodology

import "strings"

// Category is the Diagnose phase's request classification.
type Category int

const (
	CategoryCreative Category = iota
	CategoryTechnical
	CategoryEducational
	CategoryComplex
	CategorySystemOperation
	CategoryAgentOrchestration
	CategoryPerformanceOptimization
)

func (c Category) String() string {
	switch c {
	case CategoryCreative:
		return "Creative"
	case CategoryTechnical:
		return "Technical"
	case CategoryEducational:
		return "Educational"
	case CategoryComplex:
		return "Complex"
	case CategorySystemOperation:
		return "SystemOperation"
	case CategoryAgentOrchestration:
		return "AgentOrchestration"
	case CategoryPerformanceOptimization:
		return "PerformanceOptimization"
	default:
		return "Unknown"
	}
}

// Complexity is the Diagnose phase's complexity assessment.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
	ComplexityHighlyComplex
)

func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "Simple"
	case ComplexityModerate:
		return "Moderate"
	case ComplexityComplex:
		return "Complex"
	case ComplexityHighlyComplex:
		return "HighlyComplex"
	default:
		return "Unknown"
	}
}

// categoryPatterns buckets a request by keyword match. Checked in order,
// first match wins, so a message matching multiple buckets (e.g.
// "orchestrate and optimize agents") resolves to whichever is listed first.
var categoryPatterns = []struct {
	category Category
	keywords []string
}{
	{CategoryAgentOrchestration, []string{"spawn agent", "orchestrate", "coordinate agents", "multi-agent", "dispatch agent"}},
	{CategorySystemOperation, []string{"deploy", "restart", "shutdown", "provision", "configure system", "instance lock"}},
	{CategoryPerformanceOptimization, []string{"optimize", "latency", "throughput", "benchmark", "profile performance"}},
	{CategoryEducational, []string{"explain", "how does", "what is", "teach me", "tutorial"}},
	{CategoryCreative, []string{"write a story", "brainstorm", "design a", "creative", "compose"}},
	{CategoryTechnical, []string{"implement", "fix bug", "refactor", "write code", "debug"}},
}

// ClassifyCategory assigns a Category to the normalized message, falling
// back to Complex when no keyword bucket matches. RunDiagnose scores the
// fallback lower than an explicit keyword match; the category does not
// select a path in the later phases.
func ClassifyCategory(message string) Category {
	lower := strings.ToLower(message)
	for _, bucket := range categoryPatterns {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.category
			}
		}
	}
	return CategoryComplex
}

// AssessComplexity derives a Complexity from normalized-message length and
// entity/constraint counts, a deterministic proxy for "how much context
// must a worker hold at once".
func AssessComplexity(message string, entityCount, constraintCount int) Complexity {
	score := len(strings.Fields(message)) + entityCount*3 + constraintCount*5

	switch {
	case score < 20:
		return ComplexitySimple
	case score < 60:
		return ComplexityModerate
	case score < 150:
		return ComplexityComplex
	default:
		return ComplexityHighlyComplex
	}
}

// ResourceEstimate is the Diagnose phase's resource projection, scaled by
// Complexity.
type ResourceEstimate struct {
	EstimatedAgents int
	EstimatedTasks  int
	EstimatedTokens int
}

// EstimateResources maps a Complexity to a deterministic resource
// projection.
func EstimateResources(c Complexity) ResourceEstimate {
	switch c {
	case ComplexitySimple:
		return ResourceEstimate{EstimatedAgents: 1, EstimatedTasks: 1, EstimatedTokens: 2_000}
	case ComplexityModerate:
		return ResourceEstimate{EstimatedAgents: 2, EstimatedTasks: 3, EstimatedTokens: 8_000}
	case ComplexityComplex:
		return ResourceEstimate{EstimatedAgents: 4, EstimatedTasks: 8, EstimatedTokens: 25_000}
	default:
		return ResourceEstimate{EstimatedAgents: 8, EstimatedTasks: 20, EstimatedTokens: 80_000}
	}
}
