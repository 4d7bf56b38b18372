package deliverable

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// Validator owns a Plan's deliverables through validation and delivery,
// running quality gates, creating backups, and issuing delivery receipts.
type Validator struct {
	mu          sync.Mutex
	plan        *Plan
	backupRoots map[LocationKind][]string
	clock       ids.Clock
	sink        *observability.Sink
}

// NewValidator creates a Validator over plan.
func NewValidator(plan *Plan, sink *observability.Sink, clock ids.Clock) *Validator {
	return &Validator{
		plan:        plan,
		backupRoots: make(map[LocationKind][]string),
		clock:       clock,
		sink:        sink,
	}
}

// AddBackupRoot registers a backup root directory for kind.
func (v *Validator) AddBackupRoot(kind LocationKind, root string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backupRoots[kind] = append(v.backupRoots[kind], root)
}

// ValidationResult is the outcome of running every gate on a deliverable.
type ValidationResult struct {
	DeliverableID string
	Passed        bool
	FailedGates   []string
}

// Validate runs every gate on deliverable id; it passes iff every
// *required* gate passes (an optional gate may fail without blocking
// delivery). On pass, status moves to Validated; otherwise to
// Failed(reason).
func (v *Validator) Validate(ctx context.Context, id string) (ValidationResult, error) {
	v.mu.Lock()
	d := v.plan.ByID(id)
	v.mu.Unlock()
	if d == nil {
		return ValidationResult{}, kernerr.NotFound("deliverable", id)
	}

	d.Status = StatusPendingValidation
	targetPath := d.Target.Path()

	var failed []string
	for _, g := range d.Gates {
		ok, reason := g.Check(ctx, targetPath)
		if !ok && g.Required {
			failed = append(failed, fmt.Sprintf("%s: %s", g.Kind, reason))
		}
	}

	now := v.clock.Now()
	result := ValidationResult{DeliverableID: id, Passed: len(failed) == 0, FailedGates: failed}

	if result.Passed {
		d.Status = StatusValidated
		v.sink.Audit(observability.AuditEntry{Action: "deliverable_validated", Resource: id, Success: true, At: now})
	} else {
		d.Status = StatusFailed
		d.FailReason = strings.Join(failed, "; ")
		v.sink.Audit(observability.AuditEntry{Action: "deliverable_validation_failed", Resource: id, Success: false, ErrorMessage: d.FailReason, At: now})
	}
	return result, nil
}

// Deliver refuses any deliverable whose status is not Validated. On
// success it computes a sha256 checksum, records a DeliveryReceipt, and
// sets status to Delivered.
func (v *Validator) Deliver(id string) (DeliveryReceipt, error) {
	v.mu.Lock()
	d := v.plan.ByID(id)
	v.mu.Unlock()
	if d == nil {
		return DeliveryReceipt{}, kernerr.NotFound("deliverable", id)
	}
	if d.Status != StatusValidated {
		return DeliveryReceipt{}, kernerr.InvalidState("deliver", d.Status.String())
	}

	targetPath := d.Target.Path()
	data, err := os.ReadFile(targetPath)
	if err != nil {
		return DeliveryReceipt{}, fmt.Errorf("reading %s for delivery: %w", targetPath, err)
	}
	sum := sha256.Sum256(data)

	now := v.clock.Now()
	receipt := DeliveryReceipt{
		DeliverableID: id,
		TargetPath:    targetPath,
		Checksum:      "sha256:" + hex.EncodeToString(sum[:]),
		SizeBytes:     int64(len(data)),
		DeliveredAt:   now,
	}

	d.Status = StatusDelivered
	d.CompletedAt = now

	v.sink.Audit(observability.AuditEntry{Action: "deliverable_delivered", Resource: id, Success: true, At: now})
	return receipt, nil
}

// CreateBackup copies source to every registered backup root for kind,
// each with a timestamped suffix, materializing a missing root on first
// use.
func (v *Validator) CreateBackup(kind LocationKind, source string) ([]string, error) {
	v.mu.Lock()
	roots := append([]string(nil), v.backupRoots[kind]...)
	v.mu.Unlock()

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s for backup: %w", source, err)
	}

	suffix := backupSuffix(v.clock.Now())
	var created []string
	for _, root := range roots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return created, fmt.Errorf("materializing backup root %s: %w", root, err)
		}
		dest := filepath.Join(root, filepath.Base(source)+suffix)
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return created, fmt.Errorf("writing backup %s: %w", dest, err)
		}
		created = append(created, dest)
	}
	return created, nil
}
