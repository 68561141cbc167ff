package repository

import (
	"context"
	"time"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
)

type VideoRepository interface {
	Save(ctx context.Context, qx any, v *model.VideoAsset) error
	FindByID(ctx context.Context, qx any, id string) (*model.VideoAsset, error)
	// ListActive returns unexpired videos, newest upload first.
	ListActive(ctx context.Context, qx any, now time.Time) ([]*model.VideoAsset, error)
	ListAll(ctx context.Context, qx any) ([]*model.VideoAsset, error)
	Delete(ctx context.Context, qx any, id string) error
	Count(ctx context.Context, qx any) (int, error)
	CountActive(ctx context.Context, qx any, now time.Time) (int, error)
}
