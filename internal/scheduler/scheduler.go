package scheduler

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/antithesishq/antithesis-sdk-go/assert"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// defaultPendingCap is the global pending-task backpressure cap; Submit
// fails with ErrQueueFull once it is reached.
const defaultPendingCap = 100_000

// completedRingSize bounds the completed ring buffer so a long-running
// kernel does not retain every terminal task forever.
const completedRingSize = 10_000

// Scheduler is the Task Queue & Scheduler: pending priority queue,
// active map, completed ring buffer, and the retry/backoff policy.
type Scheduler struct {
	mu        sync.Mutex
	pending   []*Task
	index     map[ids.TaskID]*Task // pending lookup by id
	active    map[ids.TaskID]*Task
	completed []*Task // ring buffer, oldest overwritten first
	compNext  int
	waiters   map[ids.TaskID][]ids.TaskID // taskID -> dependents waiting on it
	retryAt   map[ids.TaskID]time.Time
	attempts  map[ids.TaskID]int

	pendingCap int
	clock      ids.Clock
	rnd        *rand.Rand
	sink       *observability.Sink
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithClock overrides the Scheduler's clock (defaults to ids.SystemClock{}).
func WithClock(c ids.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithPendingCap overrides the global pending-task cap (default defaultPendingCap).
func WithPendingCap(n int) Option {
	return func(s *Scheduler) { s.pendingCap = n }
}

// WithRandSource overrides the backoff jitter source, for deterministic tests.
func WithRandSource(seed int64) Option {
	return func(s *Scheduler) { s.rnd = rand.New(rand.NewSource(seed)) }
}

// New creates an empty Scheduler.
func New(sink *observability.Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		index:      make(map[ids.TaskID]*Task),
		active:     make(map[ids.TaskID]*Task),
		completed:  make([]*Task, completedRingSize),
		waiters:    make(map[ids.TaskID][]ids.TaskID),
		retryAt:    make(map[ids.TaskID]time.Time),
		attempts:   make(map[ids.TaskID]int),
		pendingCap: defaultPendingCap,
		clock:      ids.SystemClock{},
		rnd:        rand.New(rand.NewSource(1)),
		sink:       sink,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// depStatus classifies a task's dependency set.
type depStatus int

const (
	depsPending depStatus = iota
	depsSatisfied
	depsBlocked // a dependency is Cancelled or Failed
)

// dependencyStatus reports where t's dependencies stand, consulting the
// completed ring buffer (terminal tasks only; active/pending deps are
// simply "not yet satisfied"). Must be called with s.mu held.
func (s *Scheduler) dependencyStatus(t *Task) depStatus {
	if len(t.Deps) == 0 {
		return depsSatisfied
	}
	satisfiedCount := 0
	for _, dep := range t.Deps {
		found := false
		for _, c := range s.completed {
			if c == nil {
				continue
			}
			if c.ID == dep {
				found = true
				switch c.Status {
				case StatusCompleted:
					satisfiedCount++
				case StatusFailed, StatusCancelled:
					return depsBlocked
				}
				break
			}
		}
		if !found {
			return depsPending
		}
	}
	if satisfiedCount == len(t.Deps) {
		return depsSatisfied
	}
	return depsPending
}

// Submit inserts task into pending, sorted by (priority, created_at).
// It rejects tasks depending on an already cancelled/failed id, and fails
// with ErrQueueFull once the global pending cap is reached.
func (s *Scheduler) Submit(t *Task) (ids.TaskID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.dependencyStatus(t); st == depsBlocked {
		return ids.TaskID{}, kernerr.ValidationFailed("dependency already cancelled or failed")
	}
	if len(s.pending) >= s.pendingCap {
		s.sink.IncrCounter("scheduler.queue_full_rejections")
		return ids.TaskID{}, kernerr.ErrQueueFull
	}

	s.pending = append(s.pending, t)
	s.index[t.ID] = t
	s.sortPendingLocked()

	s.sink.IncrCounter("scheduler.tasks_submitted")
	s.sink.Audit(observability.AuditEntry{Action: "task_submitted", Resource: t.ID.String(), Success: true, At: s.clock.Now()})
	return t.ID, nil
}

func (s *Scheduler) sortPendingLocked() {
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].Priority != s.pending[j].Priority {
			return s.pending[i].Priority < s.pending[j].Priority
		}
		return s.pending[i].CreatedAt.Before(s.pending[j].CreatedAt)
	})
}

// GetNextEligible returns (without removing) the highest-priority pending
// task whose dependencies are all Completed and whose retry backoff, if
// any, has elapsed. Returns nil if none qualifies.
func (s *Scheduler) GetNextEligible() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, t := range s.pending {
		if at, waiting := s.retryAt[t.ID]; waiting && now.Before(at) {
			continue
		}
		if s.dependencyStatus(t) == depsSatisfied {
			return t
		}
	}
	return nil
}

// Assign moves task_id from pending to active, sets status Assigned and
// started_at.
func (s *Scheduler) Assign(taskID ids.TaskID, agent ids.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[taskID]; ok {
		return kernerr.ErrAlreadyAssigned
	}
	t, ok := s.index[taskID]
	if !ok {
		return kernerr.NotFound("task", taskID.String())
	}

	now := s.clock.Now()
	if err := t.transitionTo(StatusAssigned, now); err != nil {
		return err
	}
	t.Assigned = agent

	s.removePendingLocked(taskID)
	s.active[taskID] = t
	delete(s.retryAt, taskID)

	s.sink.Audit(observability.AuditEntry{Action: "task_assigned", Resource: taskID.String(), Agent: agent.String(), Success: true, At: now})
	return nil
}

func (s *Scheduler) removePendingLocked(taskID ids.TaskID) {
	delete(s.index, taskID)
	for i, t := range s.pending {
		if t.ID == taskID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
}

// Complete moves task_id from active to completed with a terminal status,
// and releases any dependents so they become eligible.
func (s *Scheduler) Complete(taskID ids.TaskID, success bool, output map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[taskID]
	if !ok {
		return kernerr.NotFound("task", taskID.String())
	}

	now := s.clock.Now()
	target := StatusCompleted
	if !success {
		target = StatusFailed
	}
	if err := t.transitionTo(target, now); err != nil {
		return err
	}
	t.Output = output

	assert.Always(target != StatusCompleted || t.CompletedAt.Equal(now),
		"completed task carries a completion timestamp",
		map[string]any{"task": taskID.String()})

	delete(s.active, taskID)
	s.pushCompletedLocked(t)

	s.sink.Audit(observability.AuditEntry{Action: "task_completed", Resource: taskID.String(), Success: success, At: now})
	return nil
}

// Cancel transitions task_id to Cancelled if it is in {Pending, Assigned,
// InProgress}, and transitively cancels any task depending on it.
func (s *Scheduler) Cancel(taskID ids.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(taskID)
}

func (s *Scheduler) cancelLocked(taskID ids.TaskID) error {
	now := s.clock.Now()

	if t, ok := s.index[taskID]; ok {
		if err := t.transitionTo(StatusCancelled, now); err != nil {
			return err
		}
		s.removePendingLocked(taskID)
		s.pushCompletedLocked(t)
		s.cascadeCancelLocked(taskID)
		return nil
	}
	if t, ok := s.active[taskID]; ok {
		if err := t.transitionTo(StatusCancelled, now); err != nil {
			return err
		}
		delete(s.active, taskID)
		s.pushCompletedLocked(t)
		s.cascadeCancelLocked(taskID)
		return nil
	}
	return kernerr.NotFound("task", taskID.String())
}

// cascadeCancelLocked cancels every pending/active task that (directly or
// transitively) depends on taskID.
func (s *Scheduler) cascadeCancelLocked(taskID ids.TaskID) {
	var dependents []ids.TaskID
	for _, t := range s.pending {
		for _, d := range t.Deps {
			if d == taskID {
				dependents = append(dependents, t.ID)
				break
			}
		}
	}
	for _, t := range s.active {
		for _, d := range t.Deps {
			if d == taskID {
				dependents = append(dependents, t.ID)
				break
			}
		}
	}
	for _, dep := range dependents {
		_ = s.cancelLocked(dep) // already-terminal descendants are a no-op error, safe to ignore
	}
}

func (s *Scheduler) pushCompletedLocked(t *Task) {
	s.completed[s.compNext] = t
	s.compNext = (s.compNext + 1) % completedRingSize
}

// Status returns task_id's current TaskStatus, searching pending, active,
// then the completed ring buffer.
func (s *Scheduler) Status(taskID ids.TaskID) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.index[taskID]; ok {
		return t.Status, nil
	}
	if t, ok := s.active[taskID]; ok {
		return t.Status, nil
	}
	for _, c := range s.completed {
		if c != nil && c.ID == taskID {
			return c.Status, nil
		}
	}
	return 0, kernerr.NotFound("task", taskID.String())
}

// Timeout handles an assignment whose TaskResult did not arrive before the
// deadline. It decrements retries_left; if positive, the task returns to
// Pending behind an exponential backoff with jitter, otherwise it is
// marked terminally Failed.
func (s *Scheduler) Timeout(taskID ids.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.active[taskID]
	if !ok {
		return kernerr.NotFound("task", taskID.String())
	}
	now := s.clock.Now()
	if err := t.transitionTo(StatusTimeout, now); err != nil {
		return err
	}

	t.RetriesLeft--
	delete(s.active, taskID)

	if t.RetriesLeft > 0 {
		if err := t.transitionTo(StatusPending, now); err != nil {
			return err
		}
		s.attempts[taskID]++
		delay := nextBackoff(s.attempts[taskID], s.rnd)
		s.retryAt[taskID] = now.Add(delay)
		t.Assigned = ids.AgentID{}
		s.index[taskID] = t
		s.pending = append(s.pending, t)
		s.sortPendingLocked()
		assert.Sometimes(true, "a timed-out task is retried with backoff", map[string]any{"task": taskID.String()})
		s.sink.Audit(observability.AuditEntry{Action: "task_timeout_retry", Resource: taskID.String(), Success: true, At: now})
		return nil
	}

	if err := t.transitionTo(StatusFailed, now); err != nil {
		return err
	}
	t.FailReason = "timeout"
	s.pushCompletedLocked(t)
	s.sink.Audit(observability.AuditEntry{Action: "task_timeout_exhausted", Resource: taskID.String(), Success: false, At: now})
	return nil
}

// Fail marks task_id terminally Failed with reason, without consuming a
// retry, used for non-retryable outcomes such as an unauthorized request.
func (s *Scheduler) Fail(taskID ids.TaskID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if t, ok := s.index[taskID]; ok {
		if err := t.transitionTo(StatusFailed, now); err != nil {
			return err
		}
		t.FailReason = reason
		s.removePendingLocked(taskID)
		s.pushCompletedLocked(t)
		return nil
	}
	t, ok := s.active[taskID]
	if !ok {
		return kernerr.NotFound("task", taskID.String())
	}
	if err := t.transitionTo(StatusFailed, now); err != nil {
		return err
	}
	t.FailReason = reason
	delete(s.active, taskID)
	s.pushCompletedLocked(t)
	return nil
}

// PendingLen returns the number of tasks awaiting assignment.
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
