package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
)

// PostMediaRepository links uploaded assets to posts. Display order follows
// the order of the ids given to Attach.
type PostMediaRepository interface {
	Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error
	AssetIDs(ctx context.Context, postID int64) ([]int64, error)
	URLs(ctx context.Context, postID int64) ([]string, error)
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO post_media (post_id, asset_id, display_order)
		SELECT $1, a.asset_id, a.ord - 1
		FROM unnest($2::bigint[]) WITH ORDINALITY AS a(asset_id, ord)
		ON CONFLICT (post_id, asset_id) DO NOTHING
	`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, postID, pq.Array(assetIDs)); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postMediaRepository) AssetIDs(ctx context.Context, postID int64) ([]int64, error) {
	var ids []int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(asset_id ORDER BY display_order), '{}')
		FROM post_media WHERE post_id = $1`,
		postID,
	).Scan(pq.Array(&ids))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return ids, nil
}

func (r *postMediaRepository) URLs(ctx context.Context, postID int64) ([]string, error) {
	var urls []string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(a.file_url ORDER BY pm.display_order), '{}')
		FROM post_media pm
		JOIN media_assets a ON a.id = pm.asset_id
		WHERE pm.post_id = $1 AND a.file_url <> ''`,
		postID,
	).Scan(pq.Array(&urls))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return urls, nil
}
