package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialdesk/internal/models"
)

type MentionRepository interface {
	ListUnread(ctx context.Context, platformIDs []int64) ([]*models.Mention, error)
	MarkRead(ctx context.Context, mentionID int64, platformIDs []int64) (bool, error)
}

type mentionRepository struct {
	db *sql.DB
}

func NewMentionRepository(db *sql.DB) MentionRepository {
	return &mentionRepository{db: db}
}

// ListUnread returns unread mentions of the given connected platforms,
// newest first.
func (r *mentionRepository) ListUnread(ctx context.Context, platformIDs []int64) ([]*models.Mention, error) {
	query := `
		SELECT id, platform_id, author_username, content, created_at, is_read
		FROM mentions
		WHERE platform_id = ANY($1) AND is_read = FALSE
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(platformIDs))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var mentions []*models.Mention
	for rows.Next() {
		var m models.Mention
		if err := rows.Scan(&m.ID, &m.PlatformID, &m.AuthorUsername, &m.Content, &m.CreatedAt, &m.IsRead); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		mentions = append(mentions, &m)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return mentions, nil
}

// MarkRead flags the mention as read when it belongs to one of the given
// platforms. It reports whether a row was changed.
func (r *mentionRepository) MarkRead(ctx context.Context, mentionID int64, platformIDs []int64) (bool, error) {
	query := `UPDATE mentions SET is_read = TRUE WHERE id = $1 AND platform_id = ANY($2) AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, mentionID, pq.Array(platformIDs))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected > 0, nil
}
