package orchestrator

import (
	"context"
	"fmt"

	"github.com/FlexNetOS/agentaskit/internal/scheduler"
)

// Executor performs the actual work behind an assigned Task and returns the
// output the scheduler records on Complete. The orchestrator never spawns a
// real out-of-process agent itself; agents are reached only through the
// registry and broker. Production deployments wire an Executor that
// forwards the task over the broker and awaits the agent's TaskResult.
// Tests and the zero-config path use GenericExecutor.
type Executor interface {
	Execute(ctx context.Context, t *scheduler.Task) (map[string]any, error)
}

// GenericExecutor is a deterministic stand-in generator, used as a
// placeholder absent a real LLM backend: it manufactures plausible-looking
// file content for a task so the deliverable validator's
// FileExists/NonEmpty/SyntaxValid gates have something real to check.
type GenericExecutor struct{}

// Execute synthesizes a minimal, syntactically valid Go source body named
// after the task, sufficient to pass the deliverable gates.
func (GenericExecutor) Execute(_ context.Context, t *scheduler.Task) (map[string]any, error) {
	content := fmt.Sprintf("package generated\n\n// %s was produced by the orchestrator's generic executor.\nfunc %s() {}\n",
		t.Name, sanitizeIdentifier(t.Name))
	return map[string]any{"content": content}, nil
}

// sanitizeIdentifier turns a task name like "task-1" into a valid Go
// identifier "task_1" for the placeholder function generated above.
func sanitizeIdentifier(name string) string {
	out := []byte(name)
	for i, b := range out {
		if !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9') {
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		return "t_" + string(out)
	}
	return string(out)
}
