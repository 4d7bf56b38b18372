package broker

import (
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

func newTestBroker(capacity int) *Broker {
	b := New(WithInboxCapacity(capacity), WithClock(ids.NewFixedClock(time.Unix(1_700_000_000, 0))))
	b.Start()
	return b
}

func TestSendThenReceiveRoundTrips(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	msg := Message{ID: ids.NewMessageID(), To: agent, Priority: PriorityHigh, Payload: []byte("hello")}
	if err := b.Send(msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, ok := b.Receive(agent)
	if !ok {
		t.Fatalf("expected a message to be receivable")
	}
	if string(got.Payload) != "hello" {
		t.Errorf("expected payload %q, got %q", "hello", got.Payload)
	}
}

func TestSendToUnregisteredAgentIsNotFound(t *testing.T) {
	b := newTestBroker(10)
	msg := Message{ID: ids.NewMessageID(), To: ids.NewAgentID(), Payload: []byte("x")}
	if err := b.Send(msg); err == nil {
		t.Errorf("expected error sending to unregistered agent")
	}
}

func TestReceiveHonorsPriorityOrder(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	_ = b.Send(Message{To: agent, Priority: PriorityLow, Payload: []byte("low")})
	_ = b.Send(Message{To: agent, Priority: PriorityEmergency, Payload: []byte("emergency")})
	_ = b.Send(Message{To: agent, Priority: PriorityMedium, Payload: []byte("medium")})

	first, _ := b.Receive(agent)
	if string(first.Payload) != "emergency" {
		t.Errorf("expected emergency message first, got %q", first.Payload)
	}
	second, _ := b.Receive(agent)
	if string(second.Payload) != "medium" {
		t.Errorf("expected medium message second, got %q", second.Payload)
	}
}

func TestReceiveIsFIFOWithinSamePriority(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	_ = b.Send(Message{To: agent, Priority: PriorityNormal, Payload: []byte("first")})
	_ = b.Send(Message{To: agent, Priority: PriorityNormal, Payload: []byte("second")})

	first, _ := b.Receive(agent)
	second, _ := b.Receive(agent)
	if string(first.Payload) != "first" || string(second.Payload) != "second" {
		t.Errorf("expected FIFO order within priority, got %q then %q", first.Payload, second.Payload)
	}
}

func TestOverflowDropsOldestLowerPriorityMessage(t *testing.T) {
	b := newTestBroker(2)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	_ = b.Send(Message{To: agent, Priority: PriorityLow, Payload: []byte("low-1")})
	_ = b.Send(Message{To: agent, Priority: PriorityLow, Payload: []byte("low-2")})

	// Inbox is full with two Low messages; a High message should evict the
	// oldest Low message rather than itself being dropped.
	if err := b.Send(Message{To: agent, Priority: PriorityHigh, Payload: []byte("high")}); err != nil {
		t.Fatalf("expected high-priority message to evict a lower-priority one, got error: %v", err)
	}

	if got := b.QueueSize(agent); got != 2 {
		t.Errorf("expected inbox to remain at capacity 2, got %d", got)
	}
	if b.DroppedCount() != 1 {
		t.Errorf("expected 1 dropped message, got %d", b.DroppedCount())
	}

	first, _ := b.Receive(agent)
	if string(first.Payload) != "high" {
		t.Errorf("expected high-priority message to be dequeued first, got %q", first.Payload)
	}
	second, _ := b.Receive(agent)
	if string(second.Payload) != "low-2" {
		t.Errorf("expected the oldest low-priority message to have been evicted, got %q remaining", second.Payload)
	}
}

func TestOverflowDropsIncomingWhenAllQueuedAreHigherPriority(t *testing.T) {
	b := newTestBroker(1)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	_ = b.Send(Message{To: agent, Priority: PriorityEmergency, Payload: []byte("emergency")})

	if err := b.Send(Message{To: agent, Priority: PriorityLow, Payload: []byte("low")}); err == nil {
		t.Errorf("expected the incoming lower-priority message to be rejected, not the queued one")
	}
	if b.QueueSize(agent) != 1 {
		t.Errorf("expected the emergency message to remain queued")
	}
}

func TestExpiredMessageIsDroppedSilentlyAtDequeue(t *testing.T) {
	clock := ids.NewFixedClock(time.Unix(1_700_000_000, 0))
	b := New(WithClock(clock))
	b.Start()
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)

	expired := Message{To: agent, Priority: PriorityNormal, Payload: []byte("stale"), TTL: time.Unix(1_699_999_999, 0)}
	fresh := Message{To: agent, Priority: PriorityNormal, Payload: []byte("fresh")}
	_ = b.Send(expired)
	_ = b.Send(fresh)

	got, ok := b.Receive(agent)
	if !ok {
		t.Fatalf("expected the fresh message to survive dequeue")
	}
	if string(got.Payload) != "fresh" {
		t.Errorf("expected expired message to be skipped, got %q", got.Payload)
	}
}

func TestUnregisterAgentDiscardsQueuedMessages(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)
	_ = b.Send(Message{To: agent, Payload: []byte("x")})

	b.UnregisterAgent(agent)
	if err := b.Send(Message{To: agent, Payload: []byte("y")}); err == nil {
		t.Errorf("expected send to an unregistered agent to fail")
	}
}

func TestSendManyReportsFirstFailure(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)
	unregistered := ids.NewAgentID()

	err := b.SendMany([]Message{
		{To: agent, Payload: []byte("ok")},
		{To: unregistered, Payload: []byte("fails")},
	})
	if err == nil {
		t.Errorf("expected SendMany to report the failed destination")
	}
	if b.QueueSize(agent) != 1 {
		t.Errorf("expected the deliverable message to still be queued despite the other's failure")
	}
}

func TestShutdownStopsAcceptingMessages(t *testing.T) {
	b := newTestBroker(10)
	agent := ids.NewAgentID()
	b.RegisterAgent(agent)
	b.Shutdown()

	if err := b.Send(Message{To: agent, Payload: []byte("x")}); err == nil {
		t.Errorf("expected send after shutdown to fail")
	}
}
