package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialdesk/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, before time.Time) ([]*models.Post, error)
	// Update and Remove only touch draft or scheduled posts and report
	// whether a row matched.
	Update(ctx context.Context, post *models.Post) (bool, error)
	UpdatePostStatus(ctx context.Context, status string, postID int64, publishedAt *time.Time) error
	ClaimScheduled(ctx context.Context, postID int64, now time.Time) (bool, error)
	Transition(ctx context.Context, postID int64, to string, from ...string) (bool, error)
	Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

var editableStatuses = []string{models.PostStatusDraft, models.PostStatusScheduled}

const postColumns = `id, user_id, title, content, type, status, scheduled_for, published_at, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, title, content, type, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.UserID, post.Title, post.Content, post.Type, post.Status, post.ScheduledFor).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListScheduled returns the user's scheduled posts, soonest first.
func (r *postRepository) ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 AND status = $2 ORDER BY scheduled_for ASC`
	return r.list(ctx, query, userID, models.PostStatusScheduled)
}

// ListDue returns scheduled posts of every user whose time is before the
// given instant, soonest first.
func (r *postRepository) ListDue(ctx context.Context, before time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_for <= $2 ORDER BY scheduled_for ASC`
	return r.list(ctx, query, models.PostStatusScheduled, before)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) (bool, error) {
	query := `
		UPDATE posts
		SET title = $1,
			content = $2,
			scheduled_for = $3,
			status = $4,
			updated_at = $5
		WHERE id = $6 AND status = ANY($7)
	`
	result, err := r.db.ExecContext(ctx, query, post.Title, post.Content, post.ScheduledFor, post.Status, time.Now(), post.ID, pq.Array(editableStatuses))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return rowsMatched(result)
}

func (r *postRepository) UpdatePostStatus(ctx context.Context, status string, postID int64, publishedAt *time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = COALESCE($2, published_at),
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, publishedAt, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimScheduled moves a due scheduled post to publishing. Only one caller
// can win the claim, and a post whose time has not come is never claimed.
func (r *postRepository) ClaimScheduled(ctx context.Context, postID int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND scheduled_for <= $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now(), postID, models.PostStatusScheduled, now)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return rowsMatched(result)
}

// Transition sets the post status to `to` when it currently holds one of
// the `from` statuses.
func (r *postRepository) Transition(ctx context.Context, postID int64, to string, from ...string) (bool, error) {
	query := `UPDATE posts SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), postID, pq.Array(from))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return rowsMatched(result)
}

func (r *postRepository) Remove(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND status = ANY($2)`
	result, err := conn(r.db, tx).ExecContext(ctx, query, id, pq.Array(editableStatuses))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return rowsMatched(result)
}

func rowsMatched(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n > 0, nil
}

func scanPost(row scanner) (*models.Post, error) {
	var post models.Post
	var scheduledFor, publishedAt sql.NullTime

	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &post.Type, &post.Status,
		&scheduledFor, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if scheduledFor.Valid {
		post.ScheduledFor = &scheduledFor.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return &post, nil
}
