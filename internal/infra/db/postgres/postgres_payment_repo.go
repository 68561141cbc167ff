package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, phone, raw_phone, name, email, video_id, amount_cents, currency, status, paid, transaction_id, error_message, gateway_payload, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.PaymentRecord, error) {
	p := &model.PaymentRecord{}
	err := row.Scan(&p.ID, &p.Reference, &p.Phone, &p.RawPhone, &p.Name, &p.Email, &p.VideoID, &p.AmountCents, &p.Currency, &p.Status, &p.Paid, &p.TransactionID, &p.ErrorMessage, &p.GatewayPayload, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx any, p *model.PaymentRecord) error {
	const q = `
INSERT INTO payments (
  id, reference, phone, raw_phone, name, email, video_id, amount_cents, currency, status, paid, transaction_id, error_message, gateway_payload, paid_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (id) DO UPDATE SET
  phone=$3, raw_phone=$4, name=$5, email=$6, video_id=$7, amount_cents=$8, currency=$9, status=$10, paid=$11, transaction_id=$12, error_message=$13, gateway_payload=$14, paid_at=$15, created_at=$16, updated_at=$17;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.Phone, p.RawPhone, p.Name, p.Email, p.VideoID, p.AmountCents, p.Currency, p.Status, p.Paid, p.TransactionID, p.ErrorMessage, p.GatewayPayload, p.PaidAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// reference collision, or the partial unique index on open
			// attempts per (phone, video)
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx any, id string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx any, reference string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += " LIMIT 1;"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindSuccessByPhoneAndVideo(ctx context.Context, tx any, phone, videoID string) (*model.PaymentRecord, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE phone=$1 AND video_id=$2 AND status='success' ORDER BY paid_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, phone, videoID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindPendingByPhoneAndVideo(ctx context.Context, tx any, phone, videoID string, since time.Time) (*model.PaymentRecord, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE phone=$1 AND video_id=$2 AND status='pending' AND created_at >= $3 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, phone, videoID, since)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// UpdateStatusIfPending atomically resolves a record that is still pending.
// The paid flag is derived from the new status inside the statement so the
// boolean mirror can never drift.
func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx any, id string, status model.PaymentStatus, errorMessage *string, paidAt *time.Time) (bool, error) {
	const q = `
    UPDATE payments
       SET status = $2,
           paid = ($2 = 'success'),
           error_message = COALESCE($3, error_message),
           paid_at = COALESCE($4, paid_at),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), errorMessage, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// MarkRefunded is the refund counterpart of UpdateStatusIfPending: it only
// fires while the record is in success, so a double-submitted refund is a
// no-op the second time.
func (r *paymentRepo) MarkRefunded(ctx context.Context, tx any, id string) (bool, error) {
	const q = `
    UPDATE payments
       SET status = 'refunded',
           paid = FALSE,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'success';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx any, cutoff time.Time, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *paymentRepo) ListRecent(ctx context.Context, tx any, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *paymentRepo) ListByPhone(ctx context.Context, tx any, phone string) ([]*model.PaymentRecord, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE phone=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ListPayers folds the payment trail into one row per phone number, most
// recently active first.
func (r *paymentRepo) ListPayers(ctx context.Context, tx any, limit int) ([]*model.PayerSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
    SELECT phone,
           (ARRAY_AGG(name ORDER BY created_at DESC))[1] AS name,
           COUNT(*) FILTER (WHERE status = 'success') AS purchases,
           COALESCE(SUM(amount_cents) FILTER (WHERE status = 'success'), 0) AS spent_cents,
           MAX(created_at) AS last_payment_at
      FROM payments
     GROUP BY phone
     ORDER BY last_payment_at DESC
     LIMIT $1;`

	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.PayerSummary
	for rows.Next() {
		p := &model.PayerSummary{}
		if err := rows.Scan(&p.Phone, &p.Name, &p.Purchases, &p.SpentCents, &p.LastPaymentAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *paymentRepo) CountByVideo(ctx context.Context, tx any, videoID string) (int, error) {
	const q = `SELECT COUNT(*) FROM payments WHERE video_id=$1 AND status='success';`
	return r.scanInt(ctx, tx, q, videoID)
}

func (r *paymentRepo) CountDistinctPayers(ctx context.Context, tx any) (int, error) {
	const q = `SELECT COUNT(DISTINCT phone) FROM payments;`
	return r.scanInt(ctx, tx, q)
}

func (r *paymentRepo) SumRevenue(ctx context.Context, tx any) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_cents),0) FROM payments WHERE status='success';`
	return r.scanInt64(ctx, tx, q)
}

func (r *paymentRepo) SumRevenueSince(ctx context.Context, tx any, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_cents),0) FROM payments WHERE status='success' AND paid_at >= $1;`
	return r.scanInt64(ctx, tx, q, since)
}

func (r *paymentRepo) SumRevenueByVideo(ctx context.Context, tx any, videoID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount_cents),0) FROM payments WHERE video_id=$1 AND status='success';`
	return r.scanInt64(ctx, tx, q, videoID)
}

func (r *paymentRepo) DetachVideo(ctx context.Context, tx any, videoID string) error {
	const q = `UPDATE payments SET video_id=NULL, updated_at=NOW() WHERE video_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, videoID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) scanInt(ctx context.Context, tx any, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *paymentRepo) scanInt64(ctx context.Context, tx any, q string, args ...interface{}) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func collectPayments(rows pgx.Rows) ([]*model.PaymentRecord, error) {
	var out []*model.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func wrapQueryErr(err error) error {
	switch err {
	case pgx.ErrNoRows:
		return domain.ErrNotFound
	case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
		return err
	default:
		return domain.ErrOperationFailed
	}
}
