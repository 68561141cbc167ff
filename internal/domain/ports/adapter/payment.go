package adapter

import "context"

// ChargeResult is the gateway's answer to a charge initiation.
//
// A transport-level failure (timeout, connection error, non-200) is returned
// as an error instead, and callers must treat it as retryable; it is never a
// declined payment.
type ChargeResult struct {
	Accepted      bool
	TransactionID string // gateway transaction handle, set when accepted
	Message       string // STK prompt text when accepted, classified guidance when rejected
	Raw           []byte // raw response body, persisted for audit
}

// TxState is the gateway-side state of a transaction, already folded down to
// the four shapes the reconciliation engine cares about. Unknown gateway
// statuses map to TxPending so a flaky read never fails a live payment.
type TxState string

const (
	TxPending   TxState = "pending"
	TxSuccess   TxState = "success"
	TxFailed    TxState = "failed"
	TxCancelled TxState = "cancelled"
)

type TxStatus struct {
	State  TxState
	Reason string // gateway's failure explanation, when it gave one
	Raw    []byte
}

// PaymentGateway is the hex port for mobile-money charge providers.
type PaymentGateway interface {
	Name() string

	// InitiateCharge asks the gateway to push an STK prompt to the phone.
	// phone is in gateway format (254XXXXXXXXX), amount in minor units.
	InitiateCharge(ctx context.Context, reference, phone string, amountCents int64) (ChargeResult, error)

	// QueryTransaction looks a charge up by its gateway handle, falling back
	// to the merchant reference when the handle is empty.
	QueryTransaction(ctx context.Context, transactionID, reference string) (TxStatus, error)
}
