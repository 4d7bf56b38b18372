// Package ids defines the type-distinct identifier kinds shared across the
// kernel (agents, tasks, messages, tokens, sessions) and an injectable clock.
//
// Every kind wraps a 128-bit uuid.UUID so that an AgentID can never be
// accidentally compared against a TaskID at compile time: each identifier
// kind is its own type, not a type alias for string or uuid.UUID.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// AgentID identifies an Agent. It may be random or derived deterministically
// from a well-known name via NewAgentIDFromName.
type AgentID uuid.UUID

// TaskID identifies a Task.
type TaskID uuid.UUID

// MessageID identifies a Message transported by the broker.
type MessageID uuid.UUID

// TokenID identifies a CapabilityToken.
type TokenID uuid.UUID

// SessionID identifies a caller session, used for rate limiting and audit.
type SessionID uuid.UUID

// agentNamespace is the fixed namespace UUID well-known agent names are
// hashed under, so the same name always yields the same AgentID across
// process restarts.
var agentNamespace = uuid.MustParse("6f1f9a2e-6e0b-4a8a-9a2d-6a6f0b7c9d10")

// NewAgentID returns a fresh random AgentID.
func NewAgentID() AgentID { return AgentID(uuid.New()) }

// NewAgentIDFromName deterministically derives an AgentID for a well-known
// agent name (e.g. "strategy-board-agent"), stable across restarts.
func NewAgentIDFromName(name string) AgentID {
	return AgentID(uuid.NewSHA1(agentNamespace, []byte(name)))
}

// NewTaskID returns a fresh random TaskID.
func NewTaskID() TaskID { return TaskID(uuid.New()) }

// NewMessageID returns a fresh random MessageID.
func NewMessageID() MessageID { return MessageID(uuid.New()) }

// NewTokenID returns a fresh random TokenID.
func NewTokenID() TokenID { return TokenID(uuid.New()) }

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func (a AgentID) String() string   { return uuid.UUID(a).String() }
func (t TaskID) String() string    { return uuid.UUID(t).String() }
func (m MessageID) String() string { return uuid.UUID(m).String() }
func (t TokenID) String() string   { return uuid.UUID(t).String() }
func (s SessionID) String() string { return uuid.UUID(s).String() }

// IsZero reports whether the id is the unset zero value.
func (a AgentID) IsZero() bool { return uuid.UUID(a) == uuid.Nil }
func (t TaskID) IsZero() bool  { return uuid.UUID(t) == uuid.Nil }

// Less gives AgentID a total order, used by the registry's tie-break rule
// ("ties broken by ... smallest AgentId").
func (a AgentID) Less(other AgentID) bool {
	for i := range a {
		if a[i] != other[i] {
			return a[i] < other[i]
		}
	}
	return false
}

// ParseAgentID parses a string form of an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, fmt.Errorf("parse agent id %q: %w", s, err)
	}
	return AgentID(u), nil
}

// ParseTaskID parses a string form of a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("parse task id %q: %w", s, err)
	}
	return TaskID(u), nil
}
