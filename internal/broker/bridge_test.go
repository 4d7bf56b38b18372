package broker

import (
	"testing"
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

func TestFingerprintIsStableForIdenticalMessages(t *testing.T) {
	agent := ids.NewAgentID()
	at := time.Unix(1_700_000_000, 0)
	a := Message{To: agent, Payload: []byte("same"), CreatedAt: at}
	b := Message{To: agent, Payload: []byte("same"), CreatedAt: at}

	if fingerprint(a) != fingerprint(b) {
		t.Errorf("expected identical messages to fingerprint the same")
	}
}

func TestFingerprintDiffersOnPayload(t *testing.T) {
	agent := ids.NewAgentID()
	at := time.Unix(1_700_000_000, 0)
	a := Message{To: agent, Payload: []byte("one"), CreatedAt: at}
	b := Message{To: agent, Payload: []byte("two"), CreatedAt: at}

	if fingerprint(a) == fingerprint(b) {
		t.Errorf("expected different payloads to fingerprint differently")
	}
}

func TestFingerprintDiffersOnDestination(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	a := Message{To: ids.NewAgentID(), Payload: []byte("same"), CreatedAt: at}
	b := Message{To: ids.NewAgentID(), Payload: []byte("same"), CreatedAt: at}

	if fingerprint(a) == fingerprint(b) {
		t.Errorf("expected different destinations to fingerprint differently")
	}
}
