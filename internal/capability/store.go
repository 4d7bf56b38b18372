package capability

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/kernerr"
	"github.com/FlexNetOS/agentaskit/internal/observability"
)

// ValidateError names the ways a token lookup can fail. Validate reports a
// revoked token as ValidateErrNotFound, since Revoke removes it from the
// live set; ValidateErrRevoked is not returned by Validate.
type ValidateError int

const (
	// ValidateErrNone indicates no error (internal use only).
	ValidateErrNone ValidateError = iota
	ValidateErrNotFound
	ValidateErrExpired
	ValidateErrRevoked
)

func (v ValidateError) Error() string {
	switch v {
	case ValidateErrNotFound:
		return "token not found"
	case ValidateErrExpired:
		return "token expired"
	case ValidateErrRevoked:
		return "token revoked"
	default:
		return "unknown validate error"
	}
}

// aclKey identifies a per-resource, per-agent grant record.
type aclKey struct {
	resource string
	agent    ids.AgentID
}

// Store is the capability token store: issue, validate, revoke, and
// per-resource access grants, all audit-logged through an injected Sink so
// every denied or revoked access leaves a durable trail.
type Store struct {
	mu       sync.RWMutex
	tokens   map[ids.TokenID]Token
	revoked  map[ids.TokenID]bool
	acl      map[aclKey]Set
	signKey  [32]byte
	clock    ids.Clock
	sink     *observability.Sink
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithClock overrides the Store's clock (defaults to ids.SystemClock{}).
func WithClock(c ids.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore creates a Store. signKey seeds the blake2b keyed hash used to
// sign issued tokens; production should derive it from a secret, tests may
// pass any 32 bytes.
func NewStore(signKey [32]byte, sink *observability.Sink, opts ...Option) *Store {
	s := &Store{
		tokens:  make(map[ids.TokenID]Token),
		revoked: make(map[ids.TokenID]bool),
		acl:     make(map[aclKey]Set),
		signKey: signKey,
		clock:   ids.SystemClock{},
		sink:    sink,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a token for agent with the given capabilities and ttl
// (DefaultTTL if ttl <= 0), signs it, audits "token_issued", and returns it.
func (s *Store) Issue(agent ids.AgentID, caps Set, ttl time.Duration) Token {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.clock.Now()
	tok := Token{
		ID:        ids.NewTokenID(),
		Agent:     agent,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Caps:      caps,
		Issuer:    "capability.Store",
	}
	tok.Signature = s.sign(tok)

	s.mu.Lock()
	s.tokens[tok.ID] = tok
	s.mu.Unlock()

	s.sink.Audit(observability.AuditEntry{
		Action:  "token_issued",
		Agent:   agent.String(),
		Success: true,
		At:      now,
	})
	return tok
}

// sign computes a blake2b keyed hash of the token's stable fields, giving
// every issued token a tamper-evident signature without a TPM or
// asymmetric key management scheme.
func (s *Store) sign(t Token) []byte {
	h, _ := blake2b.New256(s.signKey[:])
	fmt.Fprintf(h, "%s|%s|%d|%d", t.ID, t.Agent, t.IssuedAt.UnixNano(), t.ExpiresAt.UnixNano())
	for _, c := range t.Caps.Slice() {
		fmt.Fprintf(h, "|%s", c)
	}
	return h.Sum(nil)
}

// Validate returns the live token for id. An absent or revoked token yields
// an error prefixed with ValidateErrNotFound's text and wrapping
// kernerr.ErrNotFound; an expired one yields an error prefixed with
// ValidateErrExpired's text and wrapping kernerr.ErrTimeout.
func (s *Store) Validate(id ids.TokenID) (Token, error) {
	s.mu.RLock()
	tok, ok := s.tokens[id]
	revoked := s.revoked[id]
	s.mu.RUnlock()

	if !ok || revoked {
		// A revoked token is removed from the live set by Revoke, so it
		// surfaces here indistinguishably from one that never existed.
		return Token{}, fmt.Errorf("%s: %w", ValidateErrNotFound, kernerr.ErrNotFound)
	}
	now := s.clock.Now()
	if !tok.Valid(now) {
		return Token{}, fmt.Errorf("%s: %w", ValidateErrExpired, kernerr.ErrTimeout)
	}
	return tok, nil
}

// Revoke removes id from the live set. Revoking an unknown token is an
// error, not a no-op, so a caller that typos a token id learns about its
// mistake instead of believing a revoke that never happened.
func (s *Store) Revoke(id ids.TokenID) error {
	s.mu.Lock()
	_, ok := s.tokens[id]
	if ok {
		s.revoked[id] = true
		delete(s.tokens, id)
	}
	s.mu.Unlock()

	if !ok {
		s.sink.Audit(observability.AuditEntry{
			Action:       "token_revoked",
			Success:      false,
			ErrorMessage: "not found",
		})
		return kernerr.NotFound("token", id.String())
	}
	s.sink.Audit(observability.AuditEntry{Action: "token_revoked", Success: true})
	return nil
}

// CheckAccess reports whether agent holds some valid token whose cap-set
// contains cap, and audits access_check (success) or access_denied
// (failure). The first qualifying token suffices; the store does not pick
// "most specific" among several.
func (s *Store) CheckAccess(agent ids.AgentID, resource string, cap Capability) bool {
	now := s.clock.Now()

	s.mu.RLock()
	var granted bool
	for id, tok := range s.tokens {
		if s.revoked[id] {
			continue
		}
		if tok.Agent != agent {
			continue
		}
		if !tok.Valid(now) {
			continue
		}
		if tok.HasCapability(cap) {
			granted = true
			break
		}
	}
	s.mu.RUnlock()

	if granted {
		s.sink.Audit(observability.AuditEntry{
			Action:   "access_check",
			Agent:    agent.String(),
			Resource: resource,
			Success:  true,
		})
		return true
	}

	s.sink.Audit(observability.AuditEntry{
		Action:       "access_denied",
		Agent:        agent.String(),
		Resource:     resource,
		Success:      false,
		ErrorMessage: fmt.Sprintf("missing capability %s", cap),
	})
	return false
}

// GrantAccess attaches a per-resource ACL record for (resource, agent),
// tracked in the protected-resources set.
func (s *Store) GrantAccess(resource string, agent ids.AgentID, caps Set, grantingAdmin ids.AgentID) {
	key := aclKey{resource: resource, agent: agent}
	s.mu.Lock()
	s.acl[key] = caps
	s.mu.Unlock()

	s.sink.Audit(observability.AuditEntry{
		Action:   "access_granted",
		Agent:    agent.String(),
		Resource: resource,
		Success:  true,
	})
}

// RevokeAccess removes the ACL record for (resource, agent). It is an error
// if the pair is unknown.
func (s *Store) RevokeAccess(resource string, agent ids.AgentID, admin ids.AgentID) error {
	key := aclKey{resource: resource, agent: agent}
	s.mu.Lock()
	_, ok := s.acl[key]
	if ok {
		delete(s.acl, key)
	}
	s.mu.Unlock()

	if !ok {
		return kernerr.NotFound("acl", fmt.Sprintf("%s/%s", resource, agent))
	}
	s.sink.Audit(observability.AuditEntry{
		Action:   "access_revoked",
		Agent:    agent.String(),
		Resource: resource,
		Success:  true,
	})
	return nil
}

// CleanupExpired sweeps tokens whose ExpiresAt has passed, returning the
// count removed.
func (s *Store) CleanupExpired() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	for id, tok := range s.tokens {
		if !tok.Valid(now) {
			delete(s.tokens, id)
			count++
		}
	}
	return count
}
