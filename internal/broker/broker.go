package broker

import (
	"sync"
	"sync/atomic"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// Broker is the in-process priority message queue connecting every agent
// inbox. It does not persist; every inbox lives only in memory for the
// process lifetime between Start and Shutdown.
type Broker struct {
	mu       sync.RWMutex
	inboxes  map[ids.AgentID]*inbox
	capacity int
	running  bool
	dropped  uint64 // atomic; total capacity drops across every inbox
	clock    ids.Clock
	sink     *observability.Sink
}

// Option configures a Broker at construction time.
type Option func(*Broker)

// WithClock overrides the broker's time source (tests supply a fixed clock).
func WithClock(c ids.Clock) Option {
	return func(b *Broker) { b.clock = c }
}

// WithInboxCapacity overrides the default per-agent inbox bound (10,000).
func WithInboxCapacity(n int) Option {
	return func(b *Broker) { b.capacity = n }
}

// WithSink attaches an observability.Sink for dropped-message alerts.
func WithSink(s *observability.Sink) Option {
	return func(b *Broker) { b.sink = s }
}

// New constructs a Broker. It is not yet accepting messages until Start is
// called.
func New(opts ...Option) *Broker {
	b := &Broker{
		inboxes:  make(map[ids.AgentID]*inbox),
		capacity: defaultInboxCapacity,
		clock:    ids.SystemClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start marks the broker as accepting Send/SendMany calls. Calling Start
// more than once is a no-op.
func (b *Broker) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
}

// Shutdown stops accepting new messages and discards every inbox. Already
// dequeued messages already handed to callers are unaffected.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.inboxes = make(map[ids.AgentID]*inbox)
}

// RegisterAgent creates a bounded inbox for agent. Re-registering an
// already-registered agent resets its inbox.
func (b *Broker) RegisterAgent(agent ids.AgentID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inboxes[agent] = newInbox(b.capacity)
}

// UnregisterAgent removes agent's inbox. Any messages still queued for it
// are discarded.
func (b *Broker) UnregisterAgent(agent ids.AgentID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inboxes, agent)
}

// Send enqueues msg for its destination. It returns kernerr.ErrNotFound if
// the destination was never registered, and overwrites msg.CreatedAt with
// the broker clock's current instant if it was left zero.
func (b *Broker) Send(msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return kernerr.InvalidState("send", "not started")
	}
	box, ok := b.inboxes[msg.To]
	if !ok {
		return kernerr.NotFound("agent", msg.To.String())
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = b.clock.Now()
	}

	before := box.dropped
	accepted := box.push(msg)
	if n := box.dropped - before; n > 0 {
		atomic.AddUint64(&b.dropped, n)
		if b.sink != nil {
			b.sink.IncrCounter("broker.dropped_messages", int64(n))
		}
	}
	if !accepted {
		return kernerr.InboxFull(msg.To.String())
	}
	return nil
}

// SendMany sends the same payload shape to every destination in msgs,
// continuing past per-destination failures and returning the first error
// encountered (if any) after attempting delivery to all of them.
func (b *Broker) SendMany(msgs []Message) error {
	var firstErr error
	for _, m := range msgs {
		if err := b.Send(m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Receive dequeues the highest-priority, oldest-arrival non-expired message
// for agent, or reports false if its inbox is empty (or unregistered).
func (b *Broker) Receive(agent ids.AgentID) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	box, ok := b.inboxes[agent]
	if !ok {
		return Message{}, false
	}
	return box.pop(b.clock.Now())
}

// RegisteredAgents returns the ids of every currently registered agent, in
// no particular order. Used by Bridge to know which inboxes to forward.
func (b *Broker) RegisteredAgents() []ids.AgentID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ids.AgentID, 0, len(b.inboxes))
	for id := range b.inboxes {
		out = append(out, id)
	}
	return out
}

// QueueSize returns the number of messages not yet delivered to agent. It
// returns 0 for an unregistered agent.
func (b *Broker) QueueSize(agent ids.AgentID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	box, ok := b.inboxes[agent]
	if !ok {
		return 0
	}
	return box.size()
}

// DroppedCount returns the total number of messages dropped across every
// inbox because an inbox was at capacity, whether the dropped message was
// an evicted queued one or the incoming one. Sends to an unregistered
// destination fail with NotFound and are not counted.
func (b *Broker) DroppedCount() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// IsRunning reports whether Start has been called without a subsequent
// Shutdown.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}
