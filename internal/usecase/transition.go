package usecase

import (
	"time"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
)

// PollStatus is the reconciliation engine's answer to a status poll. It is a
// superset of the stored payment status: expiry and user cancellation are
// both persisted as failed, but the poller reports them distinctly.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollSuccess   PollStatus = "success"
	PollFailed    PollStatus = "failed"
	PollExpired   PollStatus = "expired"
	PollCancelled PollStatus = "cancelled"
)

// EventKind is what a poll learned about a payment.
type EventKind int

const (
	// EventClock consults only the record and the current time; it is
	// applied before any gateway round-trip.
	EventClock EventKind = iota
	EventGatewaySuccess
	EventGatewayFailed
	EventGatewayCancelled
	EventGatewayPending
	// EventGatewayUnreachable covers timeouts, connection failures and
	// non-200 answers. It never produces a terminal state.
	EventGatewayUnreachable
)

type Event struct {
	Kind   EventKind
	Reason string // gateway's explanation, for failed events
}

// Outcome is the poller's report to the storefront.
type Outcome struct {
	Status      PollStatus
	Message     string
	AlreadyPaid bool
	Retry       bool // the storefront should offer a retry
	// Mutated reports that the record changed and must be persisted.
	Mutated bool
}

// User-facing poll messages.
const (
	msgPaid      = "Payment completed! Enjoy your movie."
	msgWaiting   = "Waiting for you to complete the payment on your phone..."
	msgVerifying = "Verifying payment..."
	msgFailed    = "Payment failed. Please try again."
)

// Transition applies one polling event to a payment record and reports the
// outcome. It performs no I/O; the caller persists the record when
// Outcome.Mutated is set. Success is absorbing and every other terminal
// state answers from what was stored, so a record resolves exactly once.
func Transition(rec *model.PaymentRecord, ev Event, now time.Time, expiry time.Duration) Outcome {
	if rec.IsSuccess() {
		return Outcome{Status: PollSuccess, Message: msgPaid, AlreadyPaid: true}
	}
	if rec.IsTerminal() {
		return cachedOutcome(rec)
	}

	switch ev.Kind {
	case EventClock:
		if rec.Age(now) > expiry {
			rec.MarkFailed(model.FailureExpired, now)
			return Outcome{Status: PollExpired, Message: model.FailureExpired, Retry: true, Mutated: true}
		}
		return Outcome{Status: PollPending, Message: msgWaiting}

	case EventGatewaySuccess:
		rec.MarkPaid(now)
		return Outcome{Status: PollSuccess, Message: msgPaid, Mutated: true}

	case EventGatewayFailed:
		reason := ev.Reason
		if reason == "" {
			reason = msgFailed
		}
		rec.MarkFailed(reason, now)
		return Outcome{Status: PollFailed, Message: reason, Retry: true, Mutated: true}

	case EventGatewayCancelled:
		rec.MarkFailed(model.FailureCancelled, now)
		return Outcome{Status: PollCancelled, Message: model.FailureCancelled, Retry: true, Mutated: true}

	case EventGatewayUnreachable:
		return Outcome{Status: PollPending, Message: msgVerifying}

	default: // EventGatewayPending
		return Outcome{Status: PollPending, Message: msgWaiting}
	}
}

// cachedOutcome rebuilds the poll answer for a record that already resolved.
// No gateway query happens on this path.
func cachedOutcome(rec *model.PaymentRecord) Outcome {
	switch rec.ErrorMessage {
	case model.FailureExpired:
		return Outcome{Status: PollExpired, Message: model.FailureExpired, Retry: true}
	case model.FailureCancelled:
		return Outcome{Status: PollCancelled, Message: model.FailureCancelled, Retry: true}
	}
	msg := rec.ErrorMessage
	if msg == "" {
		msg = msgFailed
	}
	return Outcome{Status: PollFailed, Message: msg, Retry: true}
}
