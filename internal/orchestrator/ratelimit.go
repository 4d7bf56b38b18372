package orchestrator

import (
	"sync"

	"golang.org/x/time/rate"
)

// defaultRequestsPerSecond and defaultBurst bound a single session+user pair
// absent an explicit Config override; generous enough not to interfere with
// normal interactive use while still capping abuse.
const (
	defaultRequestsPerSecond = 5
	defaultBurst             = 10
)

// sessionLimiters hands out one token-bucket rate.Limiter per session+user
// key, lazily creating and caching each limiter in a guarded map so a
// burst from one session never consumes another session's budget.
type sessionLimiters struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newSessionLimiters(rps rate.Limit, burst int) *sessionLimiters {
	return &sessionLimiters{
		byKey: make(map[string]*rate.Limiter),
		rps:   rps,
		burst: burst,
	}
}

// allow reports whether key may proceed now, consuming a token if so.
func (l *sessionLimiters) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.byKey[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
