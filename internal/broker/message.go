// Package broker implements the Message Broker: an in-process priority
// queue delivering at-most-once, in-priority-order messages between
// components and agents.
package broker

import (
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

// Priority is the broker's own message-priority ordering. It mirrors
// scheduler.Priority's ordinals but is a distinct type: internal/broker
// must not import internal/scheduler, so the orchestrator is the only
// place that converts a scheduler.Priority into a broker.Priority when
// handing a task off to an agent's inbox.
type Priority int

const (
	PriorityEmergency Priority = iota
	PriorityCritical
	PriorityHigh
	PriorityMedium
	PriorityNormal
	PriorityLow
	PriorityMaintenance
)

func (p Priority) String() string {
	switch p {
	case PriorityEmergency:
		return "Emergency"
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityNormal:
		return "Normal"
	case PriorityLow:
		return "Low"
	case PriorityMaintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// Message is one unit the broker transports between a sender and a single
// destination agent's inbox.
type Message struct {
	ID        ids.MessageID
	From      ids.AgentID
	To        ids.AgentID
	Priority  Priority
	Payload   []byte
	CreatedAt time.Time
	// TTL is the instant after which the message is dropped silently at
	// dequeue time. Zero means the message never expires.
	TTL time.Time

	// seq breaks ties between same-priority messages for one destination
	// in FIFO arrival order; it is assigned by the broker on Send, never
	// by the caller.
	seq uint64
}

// expired reports whether the message's TTL has passed as of now.
func (m Message) expired(now time.Time) bool {
	return !m.TTL.IsZero() && now.After(m.TTL)
}
