package broker

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/minio/highwayhash"
	natsserver "github.com/nats-io/nats-server/v2/server"
	nc "github.com/nats-io/nats.go"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

// bridgeSubject is the subject pattern dequeued messages are republished
// under, one subject per destination agent, generalizing
// internal/nats/messages.go's SubjectAgentCommand pattern from a fixed
// command channel to "every message this agent was ever handed".
const bridgeSubject = "broker.agent.%s.inbox"

// dedupWindow is how long a fingerprint is remembered before it is allowed
// to be redelivered again; NATS's at-least-once redelivery on a dropped ACK
// can otherwise surface the same message twice to a subscriber.
const dedupWindow = 5 * time.Minute

// dedupKey is the fixed highwayhash key used for fingerprinting; it has no
// secrecy requirement (this is a dedup key, not an auth key), a 32-byte
// all-zero key is the documented highwayhash convention for non-keyed use.
var dedupKey = make([]byte, 32)

// Bridge republishes every message the Broker hands to RegisterAgent'd
// inboxes onto an embedded NATS server, so out-of-process agents that
// cannot share this broker's memory can still subscribe over the wire.
type Bridge struct {
	broker *Broker
	server *natsserver.Server
	conn   *nc.Conn

	mu   sync.Mutex
	seen map[string]time.Time // fingerprint -> first-seen, for dedup pruning
}

// BridgeConfig configures the embedded NATS server the bridge starts.
type BridgeConfig struct {
	Port int // 0 selects an ephemeral port
}

// NewBridge starts an embedded NATS server and a client connection to it,
// wiring neither to the Broker yet — call Run to begin forwarding.
func NewBridge(b *Broker, cfg BridgeConfig) (*Bridge, error) {
	opts := &natsserver.Options{
		Host:       "127.0.0.1",
		Port:       cfg.Port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}

	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		return nil, fmt.Errorf("embedded nats server not ready for connections")
	}

	conn, err := nc.Connect(srv.ClientURL())
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connect to embedded nats server: %w", err)
	}

	return &Bridge{
		broker: b,
		server: srv,
		conn:   conn,
		seen:   make(map[string]time.Time),
	}, nil
}

// Publish republishes msg to its destination's bridge subject, after
// checking (and recording) its dedup fingerprint. Republication is
// best-effort: the bridge never blocks Broker.Receive on NATS backpressure.
func (br *Bridge) Publish(msg Message) error {
	fp := fingerprint(msg)

	br.mu.Lock()
	if _, dup := br.seen[fp]; dup {
		br.mu.Unlock()
		return nil
	}
	br.seen[fp] = msg.CreatedAt
	br.prune(msg.CreatedAt)
	br.mu.Unlock()

	subject := fmt.Sprintf(bridgeSubject, msg.To.String())
	return br.conn.Publish(subject, msg.Payload)
}

// prune drops fingerprints older than dedupWindow relative to now. Callers
// must hold br.mu.
func (br *Bridge) prune(now time.Time) {
	for fp, at := range br.seen {
		if now.Sub(at) > dedupWindow {
			delete(br.seen, fp)
		}
	}
}

// pollInterval is how often Run sweeps every registered agent's inbox for
// new messages to republish. The broker itself has no push notification;
// this mirrors internal/nats/server.go's poll-based connectedClients
// bookkeeping rather than inventing a separate event channel.
const pollInterval = 20 * time.Millisecond

// Run forwards every message dequeued from br's underlying Broker to NATS
// until stop is closed. It is meant to run in its own goroutine; consumers
// that also need the messages locally should Receive before Run claims
// them, since dequeue is destructive.
func (br *Bridge) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, agent := range br.broker.RegisteredAgents() {
				for {
					msg, ok := br.broker.Receive(agent)
					if !ok {
						break
					}
					_ = br.Publish(msg)
				}
			}
		}
	}
}

// Subscribe subscribes to agent's bridge subject on behalf of an
// out-of-process consumer, returning raw payload bytes per message.
func (br *Bridge) Subscribe(agent ids.AgentID, handler func([]byte)) (*nc.Subscription, error) {
	subject := fmt.Sprintf(bridgeSubject, agent.String())
	return br.conn.Subscribe(subject, func(m *nc.Msg) {
		handler(m.Data)
	})
}

// Shutdown closes the client connection and stops the embedded server.
func (br *Bridge) Shutdown() {
	if br.conn != nil {
		br.conn.Close()
	}
	if br.server != nil {
		br.server.Shutdown()
		br.server.WaitForShutdown()
	}
}

// fingerprint computes a highwayhash digest over the message's identity
// (destination, payload, creation instant) for at-most-once dedup.
func fingerprint(msg Message) string {
	h, _ := highwayhash.New64(dedupKey) // fixed-length key never errors
	_, _ = h.Write([]byte(msg.To.String()))
	_, _ = h.Write(msg.Payload)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(msg.CreatedAt.UnixNano()))
	_, _ = h.Write(tsBuf[:])

	return fmt.Sprintf("%x", h.Sum(nil))
}
