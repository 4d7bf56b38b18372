package capability

import (
	"time"

	"github.com/FlexNetOS/agentaskit/internal/ids"
)

// Token is the time-bounded, revocable binding of an agent to a set of
// capabilities.
type Token struct {
	ID        ids.TokenID
	Agent     ids.AgentID
	IssuedAt  time.Time
	ExpiresAt time.Time
	Caps      Set
	Issuer    string
	Signature []byte
}

// Valid reports whether the token is valid at instant now: issued_at <= now
// < expires_at. It does not check revocation — callers consult the store's
// live set for that, since a Token value on its own has no way to know
// whether it has since been revoked.
func (t Token) Valid(now time.Time) bool {
	return !now.Before(t.IssuedAt) && now.Before(t.ExpiresAt)
}

// HasCapability reports whether the token's cap-set contains cap.
func (t Token) HasCapability(cap Capability) bool {
	return t.Caps.Contains(cap)
}

// DefaultTTL is the default token lifetime applied when Issue is called
// with a non-positive ttl.
const DefaultTTL = 24 * time.Hour
