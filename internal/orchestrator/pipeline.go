package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/capability"
	"github.com/FlexNetOS/agentaskit/internal/deliverable"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/methodology"
	"github.com/FlexNetOS/agentaskit/internal/observability"
	"github.com/FlexNetOS/agentaskit/internal/scheduler"
	"github.com/FlexNetOS/agentaskit/internal/verification"
)

// taskAwaitPoll is how often ProcessRequest polls the scheduler for
// terminal status on its own submitted tasks while waiting for them all
// to finish.
const taskAwaitPoll = 5 * time.Millisecond

// ProcessRequest runs the full per-request pipeline: ingest, deconstruct,
// diagnose, develop, deliver, score/gate, submit every planned task, await
// all terminal, call the verification engine for a verdict, and act on it
// (deliver, cancel-and-archive, or hold for review).
func (o *Orchestrator) ProcessRequest(ctx context.Context, req Request) (Result, error) {
	if !o.isAccepting() {
		return Result{Status: StatusRejected, RejectReason: "orchestrator is shutting down"}, nil
	}
	if !o.limiters.allow(req.rateLimitKey()) {
		return Result{Status: StatusRejected, RejectReason: "rate limit exceeded"}, nil
	}

	now := o.clock.Now()

	ingestion := methodology.RunIngestion(req.RawInput, now)
	if ingestion.Rejected {
		o.sink.Audit(observability.AuditEntry{Action: "request_rejected", Success: false, ErrorMessage: ingestion.RejectReason, At: now})
		return Result{Status: StatusRejected, RejectReason: ingestion.RejectReason}, nil
	}

	deconstruct := methodology.RunDeconstruct(ingestion)
	diagnose := methodology.RunDiagnose(deconstruct)
	develop := methodology.RunDevelop(diagnose)
	deliver := methodology.RunDeliver(diagnose, develop)

	scores := map[string]methodology.Score{
		"ingestion":   ingestion.Score,
		"deconstruct": deconstruct.Score,
		"diagnose":    diagnose.Score,
		"develop":     develop.Score,
		"deliver":     deliver.Score,
	}
	gate := methodology.CheckGate(scores, methodology.DefaultQualityGate())
	if o.cfg.QualityGate && !gate.Passed {
		o.sink.Audit(observability.AuditEntry{Action: "request_gated", Success: false, ErrorMessage: fmt.Sprint(gate.Recommendations), At: now})
		return Result{Status: StatusRejected, RejectReason: "quality gate: " + fmt.Sprint(gate.Recommendations)}, nil
	}

	taskIDs, tasksByName, err := o.submitPlan(deliver.ExecutionPlan)
	if err != nil {
		return Result{Status: StatusRejected, RejectReason: err.Error()}, nil
	}

	if !o.awaitTerminal(ctx, taskIDs) {
		return Result{Status: StatusRequiresReview, RejectReason: "tasks did not reach a terminal state before cancellation", TaskIDs: taskIDs}, nil
	}

	plan, cfg, err := o.buildDeliverablePlan(deliver.DeliverableSpec, now)
	if err != nil {
		return Result{Status: StatusRejected, RejectReason: err.Error()}, nil
	}

	if err := o.materializeOutputs(plan, cfg, tasksByName); err != nil {
		return Result{Status: StatusRejected, RejectReason: err.Error()}, nil
	}

	phaseResults := map[verification.PhaseID]verification.PhaseResult{
		verification.PhaseIngestion:   {Phase: verification.PhaseIngestion, Output: map[string]any{"normalized": ingestion.NormalizedMessage}, Success: !ingestion.Rejected},
		verification.PhaseDeconstruct: {Phase: verification.PhaseDeconstruct, Output: map[string]any{"intent": deconstruct.Intent, "entities": deconstruct.Entities}, Success: true},
		verification.PhaseDiagnose:    {Phase: verification.PhaseDiagnose, Output: map[string]any{"category": diagnose.Category.String(), "complexity": diagnose.Complexity.String()}, Success: true},
		verification.PhaseDevelop:     {Phase: verification.PhaseDevelop, Output: map[string]any{"techniques": develop.Techniques, "ai_role": develop.AIRole}, Success: true},
		verification.PhaseDeliver:     {Phase: verification.PhaseDeliver, Output: map[string]any{"plan": deliver.ExecutionPlan, "timeline": deliver.Timeline}, Success: o.allTasksCompleted(taskIDs)},
	}

	verdict, err := o.engine.Run(phaseResults, o.cfg.RequiredPhases, true, true)
	if err != nil {
		return Result{Status: StatusRejected, RejectReason: err.Error(), TaskIDs: taskIDs}, nil
	}

	switch verdict.Overall {
	case verification.StatusPassed:
		receipts, err := o.deliverAll(plan)
		if err != nil {
			return Result{Status: StatusFailed, RejectReason: err.Error(), TaskIDs: taskIDs, Verdict: verdict}, nil
		}
		o.archiveLedger(verdict, now)
		return Result{Status: StatusDelivered, TaskIDs: taskIDs, Verdict: verdict, Receipts: receipts}, nil

	case verification.StatusFailed:
		o.cancelPending(taskIDs)
		o.archiveLedger(verdict, now)
		return Result{Status: StatusFailed, TaskIDs: taskIDs, Verdict: verdict}, nil

	default: // StatusRequiresReview
		return Result{Status: StatusRequiresReview, TaskIDs: taskIDs, Verdict: verdict}, nil
	}
}

// submitPlan converts every TaskSpec into a scheduler.Task and submits it,
// returning the submitted IDs plus a name->Task map so later stages can
// correlate a deliverable's name back to the very Task record the scheduler
// mutates in place as it runs (Submit, Assign, and Complete all operate on
// the same pointer), letting materializeOutputs read a completed task's
// Output without a separate scheduler lookup API.
func (o *Orchestrator) submitPlan(plan []methodology.TaskSpec) ([]ids.TaskID, map[string]*scheduler.Task, error) {
	byName := make(map[string]*scheduler.Task, len(plan))
	var taskIDs []ids.TaskID
	now := o.clock.Now()

	for _, spec := range plan {
		var deps []ids.TaskID
		for _, depName := range spec.Deps {
			if dep, ok := byName[depName]; ok {
				deps = append(deps, dep.ID)
			}
		}

		var caps capability.Set
		for _, c := range spec.RequiredCaps {
			caps.Add(capability.Custom(c))
		}

		t := scheduler.NewTask(spec.Name, spec.Kind, scheduler.Normal, caps, deps, now, 5*time.Minute, 2)
		id, err := o.scheduler.Submit(t)
		if err != nil {
			return taskIDs, byName, err
		}
		byName[spec.Name] = t
		taskIDs = append(taskIDs, id)
	}
	return taskIDs, byName, nil
}

// awaitTerminal polls until every id in taskIDs reaches a terminal status
// or ctx is cancelled.
func (o *Orchestrator) awaitTerminal(ctx context.Context, taskIDs []ids.TaskID) bool {
	for {
		if o.allTasksTerminal(taskIDs) {
			return true
		}
		select {
		case <-ctx.Done():
			return o.allTasksTerminal(taskIDs)
		case <-time.After(taskAwaitPoll):
		}
	}
}

func (o *Orchestrator) allTasksTerminal(taskIDs []ids.TaskID) bool {
	for _, id := range taskIDs {
		status, err := o.scheduler.Status(id)
		if err != nil {
			continue
		}
		if !status.IsTerminal() {
			return false
		}
	}
	return true
}

func (o *Orchestrator) allTasksCompleted(taskIDs []ids.TaskID) bool {
	for _, id := range taskIDs {
		status, err := o.scheduler.Status(id)
		if err != nil || status != scheduler.StatusCompleted {
			return false
		}
	}
	return true
}

// buildDeliverablePlan parses the Deliver phase's line-format plan text
// into a resolved, dependency-ordered Plan.
func (o *Orchestrator) buildDeliverablePlan(specText string, now time.Time) (*deliverable.Plan, deliverable.LocationConfig, error) {
	cfg := deliverable.DefaultLocationConfig(o.cfg.WorkspaceRoot)

	deliverables, err := deliverable.ParseSpec(specText, now)
	if err != nil {
		return nil, cfg, fmt.Errorf("parsing deliverable spec: %w", err)
	}
	for _, d := range deliverables {
		d.Target = deliverable.ResolveLocation(d.Target.RelativePath, cfg)
	}

	plan, err := deliverable.BuildPlan(deliverables)
	if err != nil {
		return nil, cfg, fmt.Errorf("building deliverable plan: %w", err)
	}
	return plan, cfg, nil
}

// materializeOutputs writes each completed task's generated content to its
// correlated deliverable's target path, so the validator's file-based gates
// have real files to check. A deliverable is correlated to the task of the
// same name (the methodology package's Deliver phase names both in lockstep:
// TaskSpec "task-N" and deliverable spec line "task-N"). By the time this
// runs, awaitTerminal has already observed every task as terminal through
// the scheduler's own mutex, so reading Output off the retained pointer here
// is safe: nothing else still writes to it.
func (o *Orchestrator) materializeOutputs(plan *deliverable.Plan, _ deliverable.LocationConfig, tasksByName map[string]*scheduler.Task) error {
	for _, d := range plan.Deliverables {
		t, ok := tasksByName[d.Name]
		if !ok || t.Status != scheduler.StatusCompleted {
			continue // the task failed or was never submitted; Validate below surfaces it via a missing file
		}
		content, _ := t.Output["content"].(string)
		if content == "" {
			continue
		}
		targetPath := d.Target.Path()
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("materializing directory for %s: %w", d.ID, err)
		}
		if err := os.WriteFile(targetPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing deliverable %s: %w", d.ID, err)
		}
	}
	return nil
}

// deliverAll validates then delivers every deliverable in plan's
// dependency order.
func (o *Orchestrator) deliverAll(plan *deliverable.Plan) ([]deliverable.DeliveryReceipt, error) {
	validator := deliverable.NewValidator(plan, o.sink, o.clock)
	var receipts []deliverable.DeliveryReceipt

	for _, id := range plan.ExecutionOrder {
		result, err := validator.Validate(context.Background(), id)
		if err != nil {
			return receipts, err
		}
		if !result.Passed {
			return receipts, kernerr.ValidationFailed(fmt.Sprintf("%s: %v", id, result.FailedGates))
		}
		receipt, err := validator.Deliver(id)
		if err != nil {
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// cancelPending cancels any still-pending (non-terminal) task, so a
// failed verdict doesn't leave orphaned work still running against a
// deliverable plan that will never be delivered.
func (o *Orchestrator) cancelPending(taskIDs []ids.TaskID) {
	for _, id := range taskIDs {
		status, err := o.scheduler.Status(id)
		if err != nil || status.IsTerminal() {
			continue
		}
		_ = o.scheduler.Cancel(id)
	}
}
