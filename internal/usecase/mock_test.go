//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/adapter"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
)

// -----------------------------
// Payment repository mock
// -----------------------------

type MockPaymentRepo struct {
	mu    sync.Mutex
	data  map[string]*model.PaymentRecord // by id
	byRef map[string]string               // reference -> id

	SaveFunc                  func(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error
	FindByIDFunc              func(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRecord, error)
	UpdateStatusIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.PaymentRecord{}, byRef: map[string]string{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	if p.Reference != "" {
		r.byRef[p.Reference] = p.ID
	}
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRecord, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byRef[reference]; ok {
		cp := *r.data[id]
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindSuccessByPhoneAndVideo(ctx context.Context, tx repository.Tx, phone, videoID string) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.Phone == phone && p.VideoID != nil && *p.VideoID == videoID && p.Status == model.PaymentStatusSuccess {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindPendingByPhoneAndVideo(ctx context.Context, tx repository.Tx, phone, videoID string, since time.Time) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *model.PaymentRecord
	for _, p := range r.data {
		if p.Phone != phone || p.VideoID == nil || *p.VideoID != videoID {
			continue
		}
		if p.Status != model.PaymentStatusPending || p.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (r *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, errorMessage *string, paidAt *time.Time) (bool, error) {
	if r.UpdateStatusIfPendingFunc != nil {
		return r.UpdateStatusIfPendingFunc(ctx, tx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.Paid = status == model.PaymentStatusSuccess
	if errorMessage != nil {
		p.ErrorMessage = *errorMessage
	}
	if paidAt != nil {
		t := *paidAt
		p.PaidAt = &t
	}
	return true, nil
}

func (r *MockPaymentRepo) MarkRefunded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusSuccess {
		return false, nil
	}
	p.Status = model.PaymentStatusRefunded
	p.Paid = false
	return true, nil
}

func (r *MockPaymentRepo) ListPayers(ctx context.Context, tx repository.Tx, limit int) ([]*model.PayerSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byPhone := map[string]*model.PayerSummary{}
	for _, p := range r.data {
		s, ok := byPhone[p.Phone]
		if !ok {
			s = &model.PayerSummary{Phone: p.Phone}
			byPhone[p.Phone] = s
		}
		if p.CreatedAt.After(s.LastPaymentAt) {
			s.LastPaymentAt = p.CreatedAt
			s.Name = p.Name
		}
		if p.Status == model.PaymentStatusSuccess {
			s.Purchases++
			s.SpentCents += p.AmountCents
		}
	}
	out := make([]*model.PayerSummary, 0, len(byPhone))
	for _, s := range byPhone {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastPaymentAt.After(out[j].LastPaymentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentRecord
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.PaymentRecord, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) ListByPhone(ctx context.Context, tx repository.Tx, phone string) ([]*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentRecord
	for _, p := range r.data {
		if p.Phone == phone {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) CountByVideo(ctx context.Context, tx repository.Tx, videoID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.data {
		if p.VideoID != nil && *p.VideoID == videoID && p.Status == model.PaymentStatusSuccess {
			n++
		}
	}
	return n, nil
}

func (r *MockPaymentRepo) CountDistinctPayers(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	for _, p := range r.data {
		seen[p.Phone] = struct{}{}
	}
	return len(seen), nil
}

func (r *MockPaymentRepo) SumRevenue(ctx context.Context, tx repository.Tx) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusSuccess {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func (r *MockPaymentRepo) SumRevenueSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.Status == model.PaymentStatusSuccess && p.PaidAt != nil && !p.PaidAt.Before(since) {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func (r *MockPaymentRepo) SumRevenueByVideo(ctx context.Context, tx repository.Tx, videoID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, p := range r.data {
		if p.VideoID != nil && *p.VideoID == videoID && p.Status == model.PaymentStatusSuccess {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

func (r *MockPaymentRepo) DetachVideo(ctx context.Context, tx repository.Tx, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.VideoID != nil && *p.VideoID == videoID {
			p.VideoID = nil
		}
	}
	return nil
}

// Get returns the stored record for assertions (not part of the port).
func (r *MockPaymentRepo) Get(id string) *model.PaymentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// -----------------------------
// Video repository mock
// -----------------------------

type MockVideoRepo struct {
	mu   sync.Mutex
	data map[string]*model.VideoAsset

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.VideoAsset, error)
}

var _ repository.VideoRepository = (*MockVideoRepo)(nil)

func NewMockVideoRepo() *MockVideoRepo {
	return &MockVideoRepo{data: map[string]*model.VideoAsset{}}
}

func (r *MockVideoRepo) Save(ctx context.Context, tx repository.Tx, v *model.VideoAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	cp := *v
	r.data[v.ID] = &cp
	return nil
}

func (r *MockVideoRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.VideoAsset, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.data[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockVideoRepo) ListActive(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.VideoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.VideoAsset
	for _, v := range r.data {
		if !v.IsExpired(now) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateUploaded.After(out[j].DateUploaded) })
	return out, nil
}

func (r *MockVideoRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.VideoAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.VideoAsset, 0, len(r.data))
	for _, v := range r.data {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockVideoRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MockVideoRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data), nil
}

func (r *MockVideoRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.data {
		if !v.IsExpired(now) {
			n++
		}
	}
	return n, nil
}

// -----------------------------
// Payment gateway mock
// -----------------------------

type MockPaymentGateway struct {
	InitiateChargeFunc   func(ctx context.Context, reference, phone string, amountCents int64) (adapter.ChargeResult, error)
	QueryTransactionFunc func(ctx context.Context, transactionID, reference string) (adapter.TxStatus, error)

	mu          sync.Mutex
	InitiateLog []string // references, in call order
	QueryLog    []string
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) InitiateCharge(ctx context.Context, reference, phone string, amountCents int64) (adapter.ChargeResult, error) {
	g.mu.Lock()
	g.InitiateLog = append(g.InitiateLog, reference)
	g.mu.Unlock()
	if g.InitiateChargeFunc != nil {
		return g.InitiateChargeFunc(ctx, reference, phone, amountCents)
	}
	return adapter.ChargeResult{Accepted: true, TransactionID: "txn-" + reference, Message: "Check your phone"}, nil
}

func (g *MockPaymentGateway) QueryTransaction(ctx context.Context, transactionID, reference string) (adapter.TxStatus, error) {
	g.mu.Lock()
	g.QueryLog = append(g.QueryLog, transactionID)
	g.mu.Unlock()
	if g.QueryTransactionFunc != nil {
		return g.QueryTransactionFunc(ctx, transactionID, reference)
	}
	return adapter.TxStatus{State: adapter.TxPending}, nil
}

// -----------------------------
// Locker mock
// -----------------------------

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	FailNext bool // simulate a contended lock on the next TryLock
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext {
		l.FailNext = false
		return "", errors.New("lock held")
	}
	if _, ok := l.held[key]; ok {
		return "", errors.New("lock held")
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// -----------------------------
// Transaction manager mock
// -----------------------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// -----------------------------
// Helpers
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
