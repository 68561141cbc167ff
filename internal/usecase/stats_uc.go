package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// DashboardTotals feeds the admin landing page.
type DashboardTotals struct {
	Payers            int
	Videos            int
	ActiveVideos      int
	RevenueCents      int64
	TodayRevenueCents int64
}

type StatsUseCase interface {
	Totals(ctx context.Context) (DashboardTotals, error)
	RecentPayments(ctx context.Context, limit int) ([]*model.PaymentRecord, error)
	PaymentsByPhone(ctx context.Context, phone string) ([]*model.PaymentRecord, error)
	PaymentByID(ctx context.Context, id string) (*model.PaymentRecord, error)
	// Payers lists customers derived from the payment trail, most recently
	// active first.
	Payers(ctx context.Context, limit int) ([]*model.PayerSummary, error)
}

type statsUC struct {
	payments repository.PaymentRepository
	videos   repository.VideoRepository

	log *zerolog.Logger
	now nowFunc
}

func NewStatsUseCase(payments repository.PaymentRepository, videos repository.VideoRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{payments: payments, videos: videos, log: logger, now: defaultNow}
}

func (s *statsUC) Totals(ctx context.Context) (DashboardTotals, error) {
	payers, err := s.payments.CountDistinctPayers(ctx, repository.NoTX)
	if err != nil {
		return DashboardTotals{}, err
	}
	videos, err := s.videos.Count(ctx, repository.NoTX)
	if err != nil {
		return DashboardTotals{}, err
	}
	now := s.now()
	active, err := s.videos.CountActive(ctx, repository.NoTX, now)
	if err != nil {
		return DashboardTotals{}, err
	}
	revenue, err := s.payments.SumRevenue(ctx, repository.NoTX)
	if err != nil {
		return DashboardTotals{}, err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.payments.SumRevenueSince(ctx, repository.NoTX, midnight)
	if err != nil {
		return DashboardTotals{}, err
	}
	return DashboardTotals{
		Payers:            payers,
		Videos:            videos,
		ActiveVideos:      active,
		RevenueCents:      revenue,
		TodayRevenueCents: today,
	}, nil
}

func (s *statsUC) RecentPayments(ctx context.Context, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.payments.ListRecent(ctx, repository.NoTX, limit)
}

func (s *statsUC) PaymentsByPhone(ctx context.Context, phone string) ([]*model.PaymentRecord, error) {
	return s.payments.ListByPhone(ctx, repository.NoTX, phone)
}

func (s *statsUC) PaymentByID(ctx context.Context, id string) (*model.PaymentRecord, error) {
	return s.payments.FindByID(ctx, repository.NoTX, id)
}

func (s *statsUC) Payers(ctx context.Context, limit int) ([]*model.PayerSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.payments.ListPayers(ctx, repository.NoTX, limit)
}
