package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/repository"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/phone"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

type AccessUseCase interface {
	// HasAccess reports whether the phone number may play the video: a
	// success payment exists and the video has not passed its expire date.
	HasAccess(ctx context.Context, rawPhone, videoID string) (bool, error)
}

type accessUC struct {
	payments repository.PaymentRepository
	videos   repository.VideoRepository

	log *zerolog.Logger
	now nowFunc
}

func NewAccessUseCase(payments repository.PaymentRepository, videos repository.VideoRepository, logger *zerolog.Logger) *accessUC {
	return &accessUC{payments: payments, videos: videos, log: logger, now: defaultNow}
}

func (u *accessUC) HasAccess(ctx context.Context, rawPhone, videoID string) (bool, error) {
	if videoID == "" {
		return false, domain.ErrInvalidArgument
	}
	num, err := phone.Normalize(rawPhone)
	if err != nil {
		return false, err
	}
	video, err := u.videos.FindByID(ctx, repository.NoTX, videoID)
	if err != nil {
		return false, err
	}
	// Expiry beats payment: a paid video past its cutoff is unplayable.
	if video.IsExpired(u.now()) {
		return false, nil
	}
	if _, err := u.payments.FindSuccessByPhoneAndVideo(ctx, repository.NoTX, num.Display, videoID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
