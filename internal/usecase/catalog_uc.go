package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
)

// Compile-time check
var _ CatalogUseCase = (*catalogUC)(nil)

// VideoStats summarizes the commercial performance of one catalog entry.
type VideoStats struct {
	Purchases    int
	RevenueCents int64
}

type CatalogUseCase interface {
	// ListActive returns the storefront catalog: unexpired videos, newest
	// upload first.
	ListActive(ctx context.Context) ([]*model.VideoAsset, error)
	ListAll(ctx context.Context) ([]*model.VideoAsset, error)
	Get(ctx context.Context, id string) (*model.VideoAsset, error)
	Stats(ctx context.Context, id string) (VideoStats, error)

	Create(ctx context.Context, v *model.VideoAsset) (*model.VideoAsset, error)
	Update(ctx context.Context, v *model.VideoAsset) error
	// Delete removes the catalog entry while keeping its payment trail:
	// the payments' video references are nulled in the same transaction.
	Delete(ctx context.Context, id string) error
}

type catalogUC struct {
	videos   repository.VideoRepository
	payments repository.PaymentRepository
	tm       repository.TransactionManager

	log *zerolog.Logger
	now nowFunc
}

func NewCatalogUseCase(videos repository.VideoRepository, payments repository.PaymentRepository, tm repository.TransactionManager, logger *zerolog.Logger) *catalogUC {
	return &catalogUC{videos: videos, payments: payments, tm: tm, log: logger, now: defaultNow}
}

func (u *catalogUC) ListActive(ctx context.Context) ([]*model.VideoAsset, error) {
	return u.videos.ListActive(ctx, repository.NoTX, u.now())
}

func (u *catalogUC) ListAll(ctx context.Context) ([]*model.VideoAsset, error) {
	return u.videos.ListAll(ctx, repository.NoTX)
}

func (u *catalogUC) Get(ctx context.Context, id string) (*model.VideoAsset, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.videos.FindByID(ctx, repository.NoTX, id)
}

func (u *catalogUC) Stats(ctx context.Context, id string) (VideoStats, error) {
	n, err := u.payments.CountByVideo(ctx, repository.NoTX, id)
	if err != nil {
		return VideoStats{}, err
	}
	rev, err := u.payments.SumRevenueByVideo(ctx, repository.NoTX, id)
	if err != nil {
		return VideoStats{}, err
	}
	return VideoStats{Purchases: n, RevenueCents: rev}, nil
}

func (u *catalogUC) Create(ctx context.Context, v *model.VideoAsset) (*model.VideoAsset, error) {
	if strings.TrimSpace(v.Title) == "" || v.ExpireDate.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.DateUploaded.IsZero() {
		v.DateUploaded = u.now()
	}
	if err := u.videos.Save(ctx, repository.NoTX, v); err != nil {
		return nil, err
	}
	u.log.Info().Str("video_id", v.ID).Str("title", v.Title).Msg("video created")
	return v, nil
}

func (u *catalogUC) Update(ctx context.Context, v *model.VideoAsset) error {
	if v.ID == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := u.videos.FindByID(ctx, repository.NoTX, v.ID); err != nil {
		return err
	}
	return u.videos.Save(ctx, repository.NoTX, v)
}

func (u *catalogUC) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := u.videos.FindByID(ctx, repository.NoTX, id); err != nil {
		return err
	}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.DetachVideo(ctx, tx, id); err != nil {
			return err
		}
		return u.videos.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	u.log.Info().Str("video_id", id).Msg("video deleted; payment trail detached")
	return nil
}
