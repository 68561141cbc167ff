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

var _ repository.VideoRepository = (*videoRepo)(nil)

type videoRepo struct{ pool *pgxpool.Pool }

func NewVideoRepo(pool *pgxpool.Pool) *videoRepo {
	return &videoRepo{pool: pool}
}

const videoColumns = `id, title, video_path, trailer_path, thumbnail_path, year_published, introduction, cast_members, theme, length, movie_type, date_uploaded, expire_date`

func scanVideo(row pgx.Row) (*model.VideoAsset, error) {
	v := &model.VideoAsset{}
	err := row.Scan(&v.ID, &v.Title, &v.VideoPath, &v.TrailerPath, &v.ThumbnailPath, &v.YearPublished, &v.Introduction, &v.CastMembers, &v.Theme, &v.Length, &v.MovieType, &v.DateUploaded, &v.ExpireDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return v, nil
}

func (r *videoRepo) Save(ctx context.Context, tx any, v *model.VideoAsset) error {
	const q = `
INSERT INTO videos (
  id, title, video_path, trailer_path, thumbnail_path, year_published, introduction, cast_members, theme, length, movie_type, date_uploaded, expire_date
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  title=$2, video_path=$3, trailer_path=$4, thumbnail_path=$5, year_published=$6, introduction=$7, cast_members=$8, theme=$9, length=$10, movie_type=$11, date_uploaded=$12, expire_date=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.Title, v.VideoPath, v.TrailerPath, v.ThumbnailPath, v.YearPublished, v.Introduction, v.CastMembers, v.Theme, v.Length, v.MovieType, v.DateUploaded, v.ExpireDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *videoRepo) FindByID(ctx context.Context, tx any, id string) (*model.VideoAsset, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanVideo(row)
}

func (r *videoRepo) ListActive(ctx context.Context, tx any, now time.Time) ([]*model.VideoAsset, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE expire_date >= $1 ORDER BY date_uploaded DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

func (r *videoRepo) ListAll(ctx context.Context, tx any) ([]*model.VideoAsset, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos ORDER BY date_uploaded DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

func (r *videoRepo) Delete(ctx context.Context, tx any, id string) error {
	const q = `DELETE FROM videos WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *videoRepo) Count(ctx context.Context, tx any) (int, error) {
	return r.scanInt(ctx, tx, `SELECT COUNT(*) FROM videos;`)
}

func (r *videoRepo) CountActive(ctx context.Context, tx any, now time.Time) (int, error) {
	return r.scanInt(ctx, tx, `SELECT COUNT(*) FROM videos WHERE expire_date >= $1;`, now)
}

func (r *videoRepo) scanInt(ctx context.Context, tx any, q string, args ...interface{}) (int, error) {
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

func collectVideos(rows pgx.Rows) ([]*model.VideoAsset, error) {
	var out []*model.VideoAsset
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
