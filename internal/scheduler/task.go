// Package scheduler implements the Task Queue & Scheduler: the pending
// priority queue, task lifecycle state machine, dependency gating, and
// retry/backoff policy.
package scheduler

import (
	"time"

	"github.com/FlexNetOS/agentaskit/internal/capability"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
)

// Priority is the total order over scheduling classes: lower ordinal is
// higher priority. Emergency bypasses any number of lower-priority tasks.
type Priority int

const (
	Emergency Priority = iota
	Critical
	High
	Medium
	Normal
	Low
	Maintenance
)

func (p Priority) String() string {
	switch p {
	case Emergency:
		return "Emergency"
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	case Maintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// Status is a task's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusAssigned
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusCancelled
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAssigned:
		return "Assigned"
	case StatusInProgress:
		return "InProgress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is a terminal state, immutable once entered.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// validTransitions encodes the task lifecycle's state diagram. Timeout is
// not terminal: Scheduler.Timeout moves the task on to Pending (retry) or
// Failed (exhausted) in the same call that entered Timeout.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout},
	StatusTimeout:    {StatusPending, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// Task is the unit of scheduled work.
type Task struct {
	ID           ids.TaskID
	Name         string
	Kind         string
	Priority     Priority
	Status       Status
	RequiredCaps capability.Set
	Deps         []ids.TaskID
	Input        map[string]any
	Output       map[string]any
	Assigned     ids.AgentID
	FailReason   string
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	Deadline     time.Time
	Timeout      time.Duration
	RetriesLeft  int
}

// NewTask constructs a Pending task with a fresh ID.
func NewTask(name, kind string, priority Priority, caps capability.Set, deps []ids.TaskID, now time.Time, timeout time.Duration, retries int) *Task {
	return &Task{
		ID:           ids.NewTaskID(),
		Name:         name,
		Kind:         kind,
		Priority:     priority,
		Status:       StatusPending,
		RequiredCaps: caps,
		Deps:         append([]ids.TaskID(nil), deps...),
		CreatedAt:    now,
		Timeout:      timeout,
		RetriesLeft:  retries,
	}
}

// transitionTo moves the task to newStatus if the move is legal, stamping
// lifecycle timestamps along the way. It is unexported: callers go through
// the Scheduler so every transition is mutex-guarded and audited.
func (t *Task) transitionTo(newStatus Status, now time.Time) error {
	if t.Status.IsTerminal() {
		return kernerr.InvalidState("transition", t.Status.String())
	}
	allowed, ok := validTransitions[t.Status]
	if !ok {
		return kernerr.InvalidState("transition", t.Status.String())
	}
	var legal bool
	for _, s := range allowed {
		if s == newStatus {
			legal = true
			break
		}
	}
	if !legal {
		return kernerr.InvalidState("transition", t.Status.String())
	}

	t.Status = newStatus
	switch newStatus {
	case StatusAssigned:
		t.StartedAt = now
	case StatusCompleted, StatusFailed, StatusCancelled:
		t.CompletedAt = now
	}
	return nil
}
