package deliverable

import (
	"testing"
	"time"
)

func TestBuildPlanComputesParallelGroups(t *testing.T) {
	src := "CODE:lib:src/lib.go\nCODE:consumer:src/consumer.go:lib\nDOC:readme:README.md\n"
	deliverables, err := ParseSpec(src, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	plan, err := BuildPlan(deliverables)
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}

	if len(plan.ParallelGroups) != 2 {
		t.Fatalf("expected 2 parallel groups, got %d", len(plan.ParallelGroups))
	}
	if len(plan.ParallelGroups[0]) != 2 {
		t.Errorf("expected group 0 to hold the 2 dependency-free deliverables, got %v", plan.ParallelGroups[0])
	}
}

func TestBuildPlanDetectsCycle(t *testing.T) {
	a := &Deliverable{ID: "DEL-0001", Name: "a", Deps: []string{"b"}}
	b := &Deliverable{ID: "DEL-0002", Name: "b", Deps: []string{"a"}}

	if _, err := BuildPlan([]*Deliverable{a, b}); err == nil {
		t.Errorf("expected cycle error")
	}
}

func TestBuildPlanRejectsUnknownDependencyName(t *testing.T) {
	a := &Deliverable{ID: "DEL-0001", Name: "a", Deps: []string{"ghost"}}
	if _, err := BuildPlan([]*Deliverable{a}); err == nil {
		t.Errorf("expected error for unknown dependency name")
	}
}

func TestBuildPlanExecutionOrderRespectsDependencies(t *testing.T) {
	src := "CODE:lib:src/lib.go\nCODE:consumer:src/consumer.go:lib\n"
	deliverables, _ := ParseSpec(src, time.Unix(0, 0))
	plan, err := BuildPlan(deliverables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	libIdx, consumerIdx := -1, -1
	for i, id := range plan.ExecutionOrder {
		if id == deliverables[0].ID {
			libIdx = i
		}
		if id == deliverables[1].ID {
			consumerIdx = i
		}
	}
	if libIdx < 0 || consumerIdx < 0 || libIdx > consumerIdx {
		t.Errorf("expected lib to precede consumer in execution order, got %v", plan.ExecutionOrder)
	}
}
