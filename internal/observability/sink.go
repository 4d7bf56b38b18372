// Package observability provides an explicit, non-global Sink handle for
// audit log entries, metrics counters/gauges, and operator alerts. Each
// orchestrator owns and wires its own Sink rather than relying on
// process-wide singletons, so tests can run concurrently against isolated
// state and a single process can host multiple independently-audited
// kernel instances.
package observability

import (
	"log"
	"sync"
	"time"
)

// AuditEntry is one row of the audit log every component writes through its
// Sink, recorded before the call it describes returns to its caller.
type AuditEntry struct {
	Action       string
	Agent        string
	Resource     string
	Success      bool
	ErrorMessage string
	At           time.Time
}

// Sink is the handle injected into every component. It never holds
// process-global state; each orchestrator owns and wires its own Sink.
type Sink struct {
	mu       sync.Mutex
	logger   *log.Logger
	audit    []AuditEntry
	counts   map[string]int64
	gauges   map[string]float64
	notifier Notifier
	store    *AuditStore
}

// Notifier delivers operator-facing alerts (desktop toast, terminal flash,
// dashboard banner). Kept pluggable so production can wire all channels and
// tests can wire none.
type Notifier interface {
	Notify(title, message string) error
}

// NoopNotifier discards all notifications.
type NoopNotifier struct{}

// Notify does nothing and never errors.
func (NoopNotifier) Notify(string, string) error { return nil }

// New creates a Sink. A nil logger defaults to log.Default(); a nil notifier
// defaults to NoopNotifier so callers that don't care about alerts never
// need a nil check.
func New(logger *log.Logger, notifier Notifier) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Sink{
		logger:   logger,
		counts:   make(map[string]int64),
		gauges:   make(map[string]float64),
		notifier: notifier,
	}
}

// AttachStore wires a durable AuditStore into the Sink; every Audit call
// after this persists a copy of the entry, best-effort, alongside the
// existing in-memory log. A Sink with no attached store is unchanged.
func (s *Sink) AttachStore(store *AuditStore) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// Audit appends an audit entry and logs it. The audit log always records
// unauthorized accesses, even when the caller never inspects the return
// value, so a denied capability check still leaves a trail. A failure to
// persist to an attached store is logged, never returned: durability is
// best-effort and must never itself fail the caller's operation.
func (s *Sink) Audit(e AuditEntry) {
	s.mu.Lock()
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.audit = append(s.audit, e)
	store := s.store
	s.mu.Unlock()

	if e.Success {
		s.logger.Printf("[audit] %s agent=%s resource=%s", e.Action, e.Agent, e.Resource)
	} else {
		s.logger.Printf("[audit] %s agent=%s resource=%s FAILED: %s", e.Action, e.Agent, e.Resource, e.ErrorMessage)
	}

	if store != nil {
		if err := store.Record(e); err != nil {
			s.logger.Printf("[audit] persisting to durable store failed: %v", err)
		}
	}
}

// AuditLog returns a snapshot of all recorded audit entries.
func (s *Sink) AuditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// IncrCounter bumps a named counter (e.g. "broker.dropped_messages") by an
// optional delta, defaulting to 1 when omitted.
func (s *Sink) IncrCounter(name string, delta ...int64) {
	d := int64(1)
	if len(delta) > 0 {
		d = delta[0]
	}
	s.mu.Lock()
	s.counts[name] += d
	s.mu.Unlock()
}

// Counter returns the current value of a named counter.
func (s *Sink) Counter(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// SetGauge records the current value of a named gauge (e.g.
// "registry.match_latency_p95_ms").
func (s *Sink) SetGauge(name string, value float64) {
	s.mu.Lock()
	s.gauges[name] = value
	s.mu.Unlock()
}

// Gauge returns the current value of a named gauge.
func (s *Sink) Gauge(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gauges[name]
}

// Warnf logs a structured warning, e.g. an SLO breach.
func (s *Sink) Warnf(format string, args ...any) {
	s.logger.Printf("[warn] "+format, args...)
}

// Alert raises an operator-facing notification through the configured
// Notifier. Failures to notify are logged, never returned: a broken alert
// channel must not fail the operation that triggered the alert.
func (s *Sink) Alert(title, message string) {
	if err := s.notifier.Notify(title, message); err != nil {
		s.logger.Printf("[alert] notify failed: %v", err)
	}
}
