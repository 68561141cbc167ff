package repository

import (
	"context"
	"time"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
)

// PaymentRepository persists payment attempts.
//
// Terminal transitions go through UpdateStatusIfPending, a compare-and-set
// that only fires while the row is still pending; concurrent polls of the
// same record therefore resolve it exactly once.
type PaymentRepository interface {
	// Save upserts the full record (initiation and retry paths).
	Save(ctx context.Context, qx any, p *model.PaymentRecord) error
	FindByID(ctx context.Context, qx any, id string) (*model.PaymentRecord, error)
	FindByReference(ctx context.Context, qx any, reference string) (*model.PaymentRecord, error)

	// Dedup lookups for checkout.
	FindSuccessByPhoneAndVideo(ctx context.Context, qx any, phone, videoID string) (*model.PaymentRecord, error)
	FindPendingByPhoneAndVideo(ctx context.Context, qx any, phone, videoID string, since time.Time) (*model.PaymentRecord, error)

	// UpdateStatusIfPending atomically moves a still-pending record to the
	// given status. paidAt is only written for success. Returns false when
	// the record was no longer pending.
	UpdateStatusIfPending(ctx context.Context, qx any, id string, status model.PaymentStatus, errorMessage *string, paidAt *time.Time) (bool, error)

	// ListPendingOlderThan feeds the stale-payment sweeper.
	ListPendingOlderThan(ctx context.Context, qx any, cutoff time.Time, limit int) ([]*model.PaymentRecord, error)

	// MarkRefunded records a manual reversal on a successful payment.
	// Returns false when the record was not in success.
	MarkRefunded(ctx context.Context, qx any, id string) (bool, error)

	// Dashboard queries.
	ListRecent(ctx context.Context, qx any, limit int) ([]*model.PaymentRecord, error)
	ListPayers(ctx context.Context, qx any, limit int) ([]*model.PayerSummary, error)
	ListByPhone(ctx context.Context, qx any, phone string) ([]*model.PaymentRecord, error)
	CountByVideo(ctx context.Context, qx any, videoID string) (int, error)
	CountDistinctPayers(ctx context.Context, qx any) (int, error)
	SumRevenue(ctx context.Context, qx any) (int64, error)
	SumRevenueSince(ctx context.Context, qx any, since time.Time) (int64, error)
	SumRevenueByVideo(ctx context.Context, qx any, videoID string) (int64, error)

	// DetachVideo nulls the video reference on every payment for a video
	// that is being deleted, preserving the payment trail.
	DetachVideo(ctx context.Context, qx any, videoID string) error
}
