package deliverable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

func planWithOneCodeFile(t *testing.T, body string) (*Plan, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.go")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	d := &Deliverable{
		ID:     "DEL-0001",
		Name:   "lib",
		Kind:   Code,
		Status: StatusPlanned,
		Target: TargetLocation{RelativePath: path},
		Gates:  []Gate{{Kind: GateFileExists, Required: true}, {Kind: GateNonEmpty, Required: true}, {Kind: GateSyntaxValid, Required: true}},
	}
	plan, err := BuildPlan([]*Deliverable{d})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	return plan, path
}

func TestValidatePassesWithValidGoSource(t *testing.T) {
	plan, _ := planWithOneCodeFile(t, "package lib\n")
	v := NewValidator(plan, observability.New(nil, nil), ids.NewFixedClock(time.Unix(1000, 0)))

	result, err := v.Validate(context.Background(), "DEL-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Passed {
		t.Errorf("expected validation to pass, failed gates: %v", result.FailedGates)
	}
	if plan.ByID("DEL-0001").Status != StatusValidated {
		t.Errorf("expected status Validated, got %s", plan.ByID("DEL-0001").Status)
	}
}

func TestValidateFailsOnSyntaxError(t *testing.T) {
	plan, _ := planWithOneCodeFile(t, "this is not valid go")
	v := NewValidator(plan, observability.New(nil, nil), ids.NewFixedClock(time.Unix(1000, 0)))

	result, err := v.Validate(context.Background(), "DEL-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Errorf("expected validation to fail on invalid go source")
	}
	if plan.ByID("DEL-0001").Status != StatusFailed {
		t.Errorf("expected status Failed, got %s", plan.ByID("DEL-0001").Status)
	}
}

func TestDeliverRefusesUnvalidatedDeliverable(t *testing.T) {
	plan, _ := planWithOneCodeFile(t, "package lib\n")
	v := NewValidator(plan, observability.New(nil, nil), ids.NewFixedClock(time.Unix(1000, 0)))

	if _, err := v.Deliver("DEL-0001"); err == nil {
		t.Errorf("expected deliver to refuse a non-Validated deliverable")
	}
}

func TestDeliverProducesChecksumReceipt(t *testing.T) {
	plan, _ := planWithOneCodeFile(t, "package lib\n")
	v := NewValidator(plan, observability.New(nil, nil), ids.NewFixedClock(time.Unix(1000, 0)))

	if _, err := v.Validate(context.Background(), "DEL-0001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	receipt, err := v.Deliver("DEL-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(receipt.Checksum, "sha256:") {
		t.Errorf("expected sha256-prefixed checksum, got %s", receipt.Checksum)
	}
	if receipt.SizeBytes <= 0 {
		t.Errorf("expected positive size_bytes, got %d", receipt.SizeBytes)
	}
	if plan.ByID("DEL-0001").Status != StatusDelivered {
		t.Errorf("expected status Delivered, got %s", plan.ByID("DEL-0001").Status)
	}
}

func TestCreateBackupMaterializesRootAndWritesTimestampedCopy(t *testing.T) {
	plan, src := planWithOneCodeFile(t, "package lib\n")
	v := NewValidator(plan, observability.New(nil, nil), ids.NewFixedClock(time.Unix(1000, 0)))

	backupRoot := filepath.Join(t.TempDir(), "backups", "source")
	v.AddBackupRoot(LocationSource, backupRoot)

	created, err := v.CreateBackup(LocationSource, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 backup path, got %d", len(created))
	}
	if _, err := os.Stat(created[0]); err != nil {
		t.Errorf("expected backup file to exist: %v", err)
	}
}
