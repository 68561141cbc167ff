package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // charge may or may not be in flight at the gateway
	PaymentStatusSuccess  PaymentStatus = "success"  // gateway confirmed the M-PESA debit
	PaymentStatusFailed   PaymentStatus = "failed"   // declined, cancelled by user, or expired
	PaymentStatusRefunded PaymentStatus = "refunded" // manual reversal recorded by an operator
)

// Messages stored on failed records. Polling uses them to tell an expiry or a
// user cancellation apart from an ordinary decline after the fact.
const (
	FailureExpired   = "Payment request expired. Please try again."
	FailureCancelled = "Payment was cancelled by user."
)

// PaymentRecord is a single attempt by one phone number to buy access to one
// video. The reference is the idempotency key toward the gateway: a retry of
// the same attempt reuses it, a fresh attempt mints a new one.
type PaymentRecord struct {
	ID        string // UUID
	Reference string // LUMEN_<ULID>; unique, sent to the gateway verbatim
	Phone     string // display form, e.g. "0712345678"
	RawPhone  string // as the customer typed it
	Name      string
	Email     string

	// VideoID is nulled when the video is deleted so the payment trail
	// outlives the catalog entry.
	VideoID *string

	AmountCents int64 // minor units (KES cents)
	Currency    string

	Status PaymentStatus
	// Paid mirrors Status == success for the storefront's boolean checks.
	// The two must never disagree; every mutation path sets both.
	Paid bool

	TransactionID  string // gateway transaction handle, set once a charge is accepted
	ErrorMessage   string
	GatewayPayload []byte // raw body of the last gateway response, for audit

	PaidAt *time.Time
	// CreatedAt marks the start of the current attempt; a retry resets it so
	// the expiry window restarts.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PayerSummary is one row of the dashboard's customer list, aggregated from
// the payment trail. Name is whatever the customer typed on their most recent
// attempt.
type PayerSummary struct {
	Phone         string
	Name          string
	Purchases     int   // successful payments
	SpentCents    int64 // sum over successful payments
	LastPaymentAt time.Time
}

func NewPaymentRecord(id, reference, phone, rawPhone, name, email, videoID string, amountCents int64, currency string, now time.Time) *PaymentRecord {
	vid := videoID
	return &PaymentRecord{
		ID:          id,
		Reference:   reference,
		Phone:       phone,
		RawPhone:    rawPhone,
		Name:        name,
		Email:       email,
		VideoID:     &vid,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *PaymentRecord) IsPending() bool  { return p.Status == PaymentStatusPending }
func (p *PaymentRecord) IsSuccess() bool  { return p.Status == PaymentStatusSuccess }
func (p *PaymentRecord) IsTerminal() bool { return p.Status != PaymentStatusPending }

// Age reports how long the current attempt has been open.
func (p *PaymentRecord) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// MarkPaid moves the record to success. Callers must have checked the record
// is still pending; success is never reached from a terminal state.
func (p *PaymentRecord) MarkPaid(now time.Time) {
	p.Status = PaymentStatusSuccess
	p.Paid = true
	p.ErrorMessage = ""
	t := now
	p.PaidAt = &t
	p.UpdatedAt = now
}

func (p *PaymentRecord) MarkFailed(message string, now time.Time) {
	p.Status = PaymentStatusFailed
	p.Paid = false
	p.ErrorMessage = message
	p.UpdatedAt = now
}

// ResetForRetry reopens a non-success record for another charge attempt with
// the same reference. The creation timestamp moves so the expiry clock
// restarts.
func (p *PaymentRecord) ResetForRetry(now time.Time) {
	p.Status = PaymentStatusPending
	p.Paid = false
	p.ErrorMessage = ""
	p.PaidAt = nil
	p.CreatedAt = now
	p.UpdatedAt = now
}
