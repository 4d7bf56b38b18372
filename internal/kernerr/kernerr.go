// Package kernerr defines the kernel's uniform error taxonomy. Every public
// kernel operation that fails returns an error that errors.Is-matches
// exactly one of the sentinels below, optionally wrapped with
// fmt.Errorf("...: %w", err) for context, so callers can branch on error
// class without string matching.
package kernerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Compare with errors.Is, never by string.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrQueueFull        = errors.New("queue full")
	ErrInboxFull        = errors.New("inbox full")
	ErrTimeout          = errors.New("timeout")
	ErrValidationFailed = errors.New("validation failed")
	ErrDependencyCycle  = errors.New("dependency cycle")
	ErrParseError       = errors.New("parse error")
	ErrInternal         = errors.New("internal invariant violation")
	ErrAlreadyAssigned  = errors.New("already assigned")
	ErrNoMatch          = errors.New("no matching agent")
)

// NotFound wraps ErrNotFound with the identifier kind and value.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// InvalidState reports an operation that is not permitted from the given
// current state.
func InvalidState(op, current string) error {
	return fmt.Errorf("%s: invalid from state %q: %w", op, current, ErrInvalidState)
}

// Unauthorized reports a failed capability check.
func Unauthorized(agent, resource string) error {
	return fmt.Errorf("agent %s lacks access to %s: %w", agent, resource, ErrUnauthorized)
}

// ValidationFailed wraps ErrValidationFailed with the reason a quality or
// methodology gate rejected its input.
func ValidationFailed(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrValidationFailed)
}

// DependencyCycle wraps ErrDependencyCycle with the id the cycle was
// detected at.
func DependencyCycle(id string) error {
	return fmt.Errorf("cycle at %s: %w", id, ErrDependencyCycle)
}

// ParseError wraps ErrParseError with a source location.
func ParseError(location string) error {
	return fmt.Errorf("%s: %w", location, ErrParseError)
}

// Internal wraps ErrInternal; callers must also log this at error level,
// since it signals a broken invariant rather than an expected failure mode.
func Internal(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrInternal)
}

// InboxFull wraps ErrInboxFull with the destination agent id whose bounded
// inbox rejected an incoming message.
func InboxFull(agent string) error {
	return fmt.Errorf("agent %s inbox full: %w", agent, ErrInboxFull)
}
