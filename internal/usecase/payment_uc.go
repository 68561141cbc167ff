package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/adapter"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/phone"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const msgGatewayDown = "Payment service is temporarily unavailable. Please try again."

// CheckoutConfig carries the product and timing knobs of the checkout flow.
type CheckoutConfig struct {
	PriceCents  int64
	Currency    string
	EmailDomain string // synthetic billing email domain, e.g. "lumendeo.tv"
	// PendingReuse is how far back checkout looks for an open attempt to
	// reuse instead of minting a new reference.
	PendingReuse time.Duration
	// PaymentExpiry is the hard cutoff after which a pending attempt is
	// declared dead without asking the gateway.
	PaymentExpiry time.Duration
	// LockTTL bounds the checkout dedup critical section.
	LockTTL time.Duration
}

// CheckoutResult is the answer to a checkout or retry request.
type CheckoutResult struct {
	Accepted      bool // the gateway accepted the charge and pushed the STK prompt
	AlreadyPaid   bool
	PaymentID     string
	Reference     string
	TransactionID string
	Status        PollStatus
	Message       string
	Retry         bool
	VideoID       string
}

// PollResult is the answer to a status poll.
type PollResult struct {
	Outcome
	PaymentID string
	Reference string
	VideoID   string
}

type PaymentUseCase interface {
	// Checkout validates the request, dedups against earlier attempts and
	// initiates an M-PESA charge inline.
	Checkout(ctx context.Context, name, rawPhone, videoID string) (*CheckoutResult, error)
	// Poll reconciles one payment against the clock and the gateway.
	Poll(ctx context.Context, paymentID, reference string) (*PollResult, error)
	// Retry reopens a non-success attempt and re-issues the charge with the
	// same reference.
	Retry(ctx context.Context, paymentID, reference string) (*CheckoutResult, error)
	// Refund records a manual reversal on a successful payment. The money
	// moves outside the system; this only updates the record.
	Refund(ctx context.Context, paymentID string) error
}

type paymentUC struct {
	payments repository.PaymentRepository
	videos   repository.VideoRepository
	gateway  adapter.PaymentGateway
	locker   adapter.Locker // nil disables cross-process checkout locking

	cfg CheckoutConfig
	log *zerolog.Logger
	now nowFunc
}

func NewPaymentUseCase(payments repository.PaymentRepository, videos repository.VideoRepository, gateway adapter.PaymentGateway, locker adapter.Locker, cfg CheckoutConfig, logger *zerolog.Logger) *paymentUC {
	return &paymentUC{
		payments: payments,
		videos:   videos,
		gateway:  gateway,
		locker:   locker,
		cfg:      cfg,
		log:      logger,
		now:      defaultNow,
	}
}

// newReference mints the merchant reference: a fixed prefix plus an
// uppercase, crypto-random ULID.
func newReference() string {
	return "LUMEN_" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

func checkoutLockKey(phone, videoID string) string {
	return fmt.Sprintf("checkout:%s:%s", phone, videoID)
}

func (u *paymentUC) Checkout(ctx context.Context, name, rawPhone, videoID string) (*CheckoutResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(rawPhone) == "" || videoID == "" {
		return nil, domain.ErrInvalidArgument
	}
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	video, err := u.videos.FindByID(ctx, repository.NoTX, videoID)
	if err != nil {
		return nil, err
	}
	if video.IsExpired(u.now()) {
		return nil, domain.ErrVideoExpired
	}

	rec, already, err := u.dedupOrCreate(ctx, num, rawPhone, name, videoID)
	if err != nil {
		return nil, err
	}
	if already != nil {
		return already, nil
	}
	return u.initiate(ctx, rec, num.Gateway)
}

// dedupOrCreate resolves the record for this attempt: an already-paid
// short-circuit, a reusable open attempt, or a fresh record. The lock closes
// the window between the lookups and the insert.
func (u *paymentUC) dedupOrCreate(ctx context.Context, num phone.Number, rawPhone, name, videoID string) (*model.PaymentRecord, *CheckoutResult, error) {
	if u.locker != nil {
		key := checkoutLockKey(num.Display, videoID)
		token, err := u.locker.TryLock(ctx, key, u.cfg.LockTTL)
		if err != nil {
			return nil, nil, domain.ErrCheckoutInProgress
		}
		defer func() { _ = u.locker.Unlock(ctx, key, token) }()
	}

	paid, err := u.payments.FindSuccessByPhoneAndVideo(ctx, repository.NoTX, num.Display, videoID)
	if err == nil {
		return nil, &CheckoutResult{
			Accepted:    true,
			AlreadyPaid: true,
			PaymentID:   paid.ID,
			Reference:   paid.Reference,
			Status:      PollSuccess,
			Message:     msgPaid,
			VideoID:     videoID,
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	now := u.now()
	open, err := u.payments.FindPendingByPhoneAndVideo(ctx, repository.NoTX, num.Display, videoID, now.Add(-u.cfg.PendingReuse))
	if err == nil {
		u.log.Debug().Str("payment_id", open.ID).Str("reference", open.Reference).Msg("reusing open payment attempt")
		return open, nil, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	email := num.Gateway + "@" + u.cfg.EmailDomain
	rec := model.NewPaymentRecord(uuid.NewString(), newReference(), num.Display, rawPhone, name, email, videoID, u.cfg.PriceCents, u.cfg.Currency, now)
	if err := u.payments.Save(ctx, repository.NoTX, rec); err != nil {
		// The partial unique index on (phone, video_id) pending rows backs
		// the lock up; a loser of the race lands here.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, nil, domain.ErrCheckoutInProgress
		}
		return nil, nil, err
	}
	return rec, nil, nil
}

// initiate issues the charge and folds the gateway's answer into the record.
// A transport error leaves the record pending and retryable; it is never a
// declined payment.
func (u *paymentUC) initiate(ctx context.Context, rec *model.PaymentRecord, gatewayPhone string) (*CheckoutResult, error) {
	res, err := u.gateway.InitiateCharge(ctx, rec.Reference, gatewayPhone, rec.AmountCents)
	now := u.now()
	out := &CheckoutResult{PaymentID: rec.ID, Reference: rec.Reference, Status: PollPending}
	if rec.VideoID != nil {
		out.VideoID = *rec.VideoID
	}

	if err != nil {
		u.log.Warn().Err(err).Str("reference", rec.Reference).Msg("charge initiation unreachable")
		rec.ErrorMessage = msgGatewayDown
		rec.UpdatedAt = now
		if serr := u.payments.Save(ctx, repository.NoTX, rec); serr != nil {
			u.log.Error().Err(serr).Str("payment_id", rec.ID).Msg("failed to save payment after gateway outage")
		}
		out.Message = msgGatewayDown
		out.Retry = true
		return out, nil
	}

	rec.GatewayPayload = res.Raw
	if !res.Accepted {
		rec.ErrorMessage = res.Message
		rec.UpdatedAt = now
		if serr := u.payments.Save(ctx, repository.NoTX, rec); serr != nil {
			u.log.Error().Err(serr).Str("payment_id", rec.ID).Msg("failed to save rejected charge")
		}
		out.Message = res.Message
		out.Retry = true
		return out, nil
	}

	rec.TransactionID = res.TransactionID
	rec.ErrorMessage = ""
	rec.UpdatedAt = now
	if err := u.payments.Save(ctx, repository.NoTX, rec); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", rec.ID).Str("reference", rec.Reference).Str("transaction_id", rec.TransactionID).Msg("charge initiated")

	out.Accepted = true
	out.TransactionID = res.TransactionID
	out.Message = res.Message
	return out, nil
}

func (u *paymentUC) Poll(ctx context.Context, paymentID, reference string) (*PollResult, error) {
	rec, err := u.find(ctx, paymentID, reference)
	if err != nil {
		return nil, err
	}
	now := u.now()

	out := Transition(rec, Event{Kind: EventClock}, now, u.cfg.PaymentExpiry)
	if out.Mutated {
		return u.persistTerminal(ctx, rec, out)
	}
	if out.Status != PollPending {
		return u.pollResult(rec, out), nil
	}
	if rec.TransactionID == "" && rec.Reference == "" {
		// Nothing to ask the gateway about yet.
		return u.pollResult(rec, out), nil
	}

	st, qerr := u.gateway.QueryTransaction(ctx, rec.TransactionID, rec.Reference)
	if qerr != nil {
		u.log.Warn().Err(qerr).Str("reference", rec.Reference).Msg("transaction query unreachable")
		out = Transition(rec, Event{Kind: EventGatewayUnreachable}, now, u.cfg.PaymentExpiry)
		return u.pollResult(rec, out), nil
	}

	out = Transition(rec, eventFromTx(st), now, u.cfg.PaymentExpiry)
	if out.Mutated {
		return u.persistTerminal(ctx, rec, out)
	}
	return u.pollResult(rec, out), nil
}

func (u *paymentUC) Retry(ctx context.Context, paymentID, reference string) (*CheckoutResult, error) {
	rec, err := u.find(ctx, paymentID, reference)
	if err != nil {
		return nil, err
	}
	if rec.IsSuccess() {
		out := &CheckoutResult{Accepted: true, AlreadyPaid: true, PaymentID: rec.ID, Reference: rec.Reference, Status: PollSuccess, Message: msgPaid}
		if rec.VideoID != nil {
			out.VideoID = *rec.VideoID
		}
		return out, nil
	}
	num, err := phone.Normalize(rec.Phone)
	if err != nil {
		return nil, err
	}

	rec.ResetForRetry(u.now())
	if err := u.payments.Save(ctx, repository.NoTX, rec); err != nil {
		return nil, err
	}
	u.log.Info().Str("payment_id", rec.ID).Str("reference", rec.Reference).Msg("retrying payment attempt")
	return u.initiate(ctx, rec, num.Gateway)
}

func (u *paymentUC) Refund(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return domain.ErrInvalidArgument
	}
	rec, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return err
	}
	if !rec.IsSuccess() {
		return domain.ErrInvalidArgument
	}
	ok, err := u.payments.MarkRefunded(ctx, repository.NoTX, rec.ID)
	if err != nil {
		return err
	}
	if !ok {
		// lost to another operator's refund of the same record
		return nil
	}
	u.log.Info().Str("payment_id", rec.ID).Str("reference", rec.Reference).Msg("payment refunded")
	return nil
}

func (u *paymentUC) find(ctx context.Context, paymentID, reference string) (*model.PaymentRecord, error) {
	switch {
	case paymentID != "":
		return u.payments.FindByID(ctx, repository.NoTX, paymentID)
	case reference != "":
		return u.payments.FindByReference(ctx, repository.NoTX, reference)
	default:
		return nil, domain.ErrInvalidArgument
	}
}

// persistTerminal writes a terminal transition through the compare-and-set.
// When a concurrent poll already resolved the record, the stored state wins
// and this poll answers from it.
func (u *paymentUC) persistTerminal(ctx context.Context, rec *model.PaymentRecord, out Outcome) (*PollResult, error) {
	// Success passes an explicit empty message so the CAS clears any transient
	// rejection text left on the row by an earlier initiation attempt.
	var errMsg *string
	if rec.ErrorMessage != "" || rec.IsSuccess() {
		errMsg = &rec.ErrorMessage
	}
	ok, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, rec.ID, rec.Status, errMsg, rec.PaidAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, err := u.payments.FindByID(ctx, repository.NoTX, rec.ID)
		if err != nil {
			return nil, err
		}
		out = Transition(fresh, Event{Kind: EventClock}, u.now(), u.cfg.PaymentExpiry)
		return u.pollResult(fresh, out), nil
	}
	u.log.Info().Str("payment_id", rec.ID).Str("status", string(out.Status)).Msg("payment resolved")
	return u.pollResult(rec, out), nil
}

func (u *paymentUC) pollResult(rec *model.PaymentRecord, out Outcome) *PollResult {
	r := &PollResult{Outcome: out, PaymentID: rec.ID, Reference: rec.Reference}
	if rec.VideoID != nil {
		r.VideoID = *rec.VideoID
	}
	return r
}

func eventFromTx(st adapter.TxStatus) Event {
	switch st.State {
	case adapter.TxSuccess:
		return Event{Kind: EventGatewaySuccess}
	case adapter.TxFailed:
		return Event{Kind: EventGatewayFailed, Reason: st.Reason}
	case adapter.TxCancelled:
		return Event{Kind: EventGatewayCancelled}
	default:
		return Event{Kind: EventGatewayPending}
	}
}
