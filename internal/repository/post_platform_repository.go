package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
)

type PostPlatformRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostPlatform, error)
	SetStatus(ctx context.Context, postID int64, platformID, status string) error
	MarkPublished(ctx context.Context, postID int64, platformID, externalPostID string) error
	MarkFailed(ctx context.Context, postID int64, platformID, errorMessage string) error
}

type postPlatformRepository struct {
	db *sql.DB
}

func NewPostPlatformRepository(db *sql.DB) PostPlatformRepository {
	return &postPlatformRepository{db: db}
}

func (r *postPlatformRepository) Create(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) error {
	query := `
		INSERT INTO post_platforms (post_id, platform_id, status)
		VALUES ($1, $2, $3)
	`
	_, err := conn(r.db, tx).ExecContext(ctx, query, pp.PostID, pp.PlatformID, pp.Status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostPlatform, error) {
	query := `
		SELECT post_id, platform_id, status, external_post_id, error_message, published_at, created_at, updated_at
		FROM post_platforms
		WHERE post_id = $1
		ORDER BY created_at, platform_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var platforms []*models.PostPlatform
	for rows.Next() {
		var pp models.PostPlatform
		var publishedAt sql.NullTime
		if err := rows.Scan(&pp.PostID, &pp.PlatformID, &pp.Status, &pp.ExternalPostID, &pp.ErrorMessage,
			&publishedAt, &pp.CreatedAt, &pp.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if publishedAt.Valid {
			pp.PublishedAt = &publishedAt.Time
		}
		platforms = append(platforms, &pp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return platforms, nil
}

func (r *postPlatformRepository) SetStatus(ctx context.Context, postID int64, platformID, status string) error {
	query := `UPDATE post_platforms SET status = $1, updated_at = $2 WHERE post_id = $3 AND platform_id = $4`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), postID, platformID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) MarkPublished(ctx context.Context, postID int64, platformID, externalPostID string) error {
	query := `
		UPDATE post_platforms
		SET status = $1,
			external_post_id = $2,
			error_message = '',
			published_at = $3,
			updated_at = $3
		WHERE post_id = $4 AND platform_id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, externalPostID, time.Now(), postID, platformID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) MarkFailed(ctx context.Context, postID int64, platformID, errorMessage string) error {
	query := `
		UPDATE post_platforms
		SET status = $1,
			error_message = $2,
			updated_at = $3
		WHERE post_id = $4 AND platform_id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, time.Now(), postID, platformID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
