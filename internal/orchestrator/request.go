package orchestrator

import (
	"github.com/FlexNetOS/agentaskit/internal/deliverable"
	"github.com/FlexNetOS/agentaskit/internal/ids"
	"github.com/FlexNetOS/agentaskit/internal/verification"
)

// Request is one accepted submission entering the orchestrator's
// per-request pipeline: the raw message plus the session/user pair the
// rate limiter keys on.
type Request struct {
	UserID   string
	Session  string
	RawInput string
}

// rateLimitKey combines UserID and Session so the rate limiter tracks
// budget per session+user rather than globally.
func (r Request) rateLimitKey() string {
	return r.UserID + "\x00" + r.Session
}

// Status is the terminal disposition of a processed Request.
type Status int

const (
	// StatusRejected means the request was refused: by shutdown, the rate
	// limiter, ingestion security validation or the quality gate before any
	// task was submitted, or by a submission, plan, output or verification
	// error after its tasks were submitted.
	StatusRejected Status = iota
	// StatusDelivered means the verdict was Passed and every deliverable
	// was validated and delivered.
	StatusDelivered
	// StatusFailed means the verdict was Failed: pending tasks were
	// cancelled and the ledger archived as a failure record.
	StatusFailed
	// StatusRequiresReview means the verdict requires an operator
	// decision; the subject is held pending that external hook.
	StatusRequiresReview
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "Delivered"
	case StatusFailed:
		return "Failed"
	case StatusRequiresReview:
		return "RequiresReview"
	default:
		return "Rejected"
	}
}

// Result is the orchestrator's complete account of one processed Request.
type Result struct {
	Status       Status
	RejectReason string
	TaskIDs      []ids.TaskID
	Verdict      verification.Verdict
	Receipts     []deliverable.DeliveryReceipt
}
