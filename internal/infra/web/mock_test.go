//go:build !integration

package web

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// --- Mock Use Cases ---

type mockPaymentUC struct {
	CheckoutFunc func(ctx context.Context, name, rawPhone, videoID string) (*usecase.CheckoutResult, error)
	PollFunc     func(ctx context.Context, paymentID, reference string) (*usecase.PollResult, error)
	RetryFunc    func(ctx context.Context, paymentID, reference string) (*usecase.CheckoutResult, error)
	RefundFunc   func(ctx context.Context, paymentID string) error
}

func (m *mockPaymentUC) Checkout(ctx context.Context, name, rawPhone, videoID string) (*usecase.CheckoutResult, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, name, rawPhone, videoID)
	}
	return &usecase.CheckoutResult{Accepted: true, PaymentID: "pay-1", Reference: "LUMEN_TEST", Status: usecase.PollPending, VideoID: videoID}, nil
}

func (m *mockPaymentUC) Poll(ctx context.Context, paymentID, reference string) (*usecase.PollResult, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, paymentID, reference)
	}
	return &usecase.PollResult{
		Outcome:   usecase.Outcome{Status: usecase.PollPending, Message: "Waiting..."},
		PaymentID: paymentID,
		Reference: reference,
	}, nil
}

func (m *mockPaymentUC) Retry(ctx context.Context, paymentID, reference string) (*usecase.CheckoutResult, error) {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, paymentID, reference)
	}
	return &usecase.CheckoutResult{Accepted: true, PaymentID: paymentID, Reference: reference, Status: usecase.PollPending}, nil
}

func (m *mockPaymentUC) Refund(ctx context.Context, paymentID string) error {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, paymentID)
	}
	return nil
}

type mockAccessUC struct {
	HasAccessFunc func(ctx context.Context, rawPhone, videoID string) (bool, error)
}

func (m *mockAccessUC) HasAccess(ctx context.Context, rawPhone, videoID string) (bool, error) {
	if m.HasAccessFunc != nil {
		return m.HasAccessFunc(ctx, rawPhone, videoID)
	}
	return false, nil
}

type mockCatalogUC struct {
	videos map[string]*model.VideoAsset

	ListActiveFunc func(ctx context.Context) ([]*model.VideoAsset, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *mockCatalogUC) ListActive(ctx context.Context) ([]*model.VideoAsset, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	out := make([]*model.VideoAsset, 0, len(m.videos))
	for _, v := range m.videos {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockCatalogUC) ListAll(ctx context.Context) ([]*model.VideoAsset, error) {
	return m.ListActive(ctx)
}

func (m *mockCatalogUC) Get(ctx context.Context, id string) (*model.VideoAsset, error) {
	if v, ok := m.videos[id]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalogUC) Stats(ctx context.Context, id string) (usecase.VideoStats, error) {
	return usecase.VideoStats{Purchases: 3, RevenueCents: 3000}, nil
}

func (m *mockCatalogUC) Create(ctx context.Context, v *model.VideoAsset) (*model.VideoAsset, error) {
	if m.videos == nil {
		m.videos = make(map[string]*model.VideoAsset)
	}
	if v.ID == "" {
		v.ID = "vid-new"
	}
	m.videos[v.ID] = v
	return v, nil
}

func (m *mockCatalogUC) Update(ctx context.Context, v *model.VideoAsset) error {
	if _, ok := m.videos[v.ID]; !ok {
		return domain.ErrNotFound
	}
	m.videos[v.ID] = v
	return nil
}

func (m *mockCatalogUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	if _, ok := m.videos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

type mockStatsUC struct {
	TotalsFunc func(ctx context.Context) (usecase.DashboardTotals, error)
	recent     []*model.PaymentRecord
	byPhone    map[string][]*model.PaymentRecord
	payers     []*model.PayerSummary
}

func (m *mockStatsUC) Totals(ctx context.Context) (usecase.DashboardTotals, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx)
	}
	return usecase.DashboardTotals{Payers: 2, Videos: 5, ActiveVideos: 4, RevenueCents: 2000, TodayRevenueCents: 1000}, nil
}

func (m *mockStatsUC) RecentPayments(ctx context.Context, limit int) ([]*model.PaymentRecord, error) {
	return m.recent, nil
}

func (m *mockStatsUC) PaymentsByPhone(ctx context.Context, phone string) ([]*model.PaymentRecord, error) {
	return m.byPhone[phone], nil
}

func (m *mockStatsUC) PaymentByID(ctx context.Context, id string) (*model.PaymentRecord, error) {
	for _, p := range m.recent {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStatsUC) Payers(ctx context.Context, limit int) ([]*model.PayerSummary, error) {
	return m.payers, nil
}
