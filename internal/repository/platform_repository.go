package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/pkg/utils"
)

// PlatformSettings is a partial update of a connected platform. Nil fields
// are left untouched.
type PlatformSettings struct {
	SyncFrequency  *string
	NotifyMentions *bool
	NotifyMessages *bool
	AccountName    *string
}

type PlatformRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, p *models.ConnectedPlatform) (int64, error)
	GetByPlatform(ctx context.Context, userID int64, platformID string) (*models.ConnectedPlatform, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedPlatform, error)
	ListConnected(ctx context.Context, userID int64) ([]*models.ConnectedPlatform, error)
	ListExpiring(ctx context.Context, platformID string, before time.Time) ([]*models.ConnectedPlatform, error)
	SetToken(ctx context.Context, id int64, accessToken string, expiresAt *time.Time) error
	UpdateSettings(ctx context.Context, userID int64, platformID string, s *PlatformSettings) (bool, error)
	Remove(ctx context.Context, userID int64, platformID string) (bool, error)
}

type platformRepository struct {
	db     *sql.DB
	tokens *utils.TokenCipher
}

// NewPlatformRepository returns a repository that encrypts tokens at rest.
func NewPlatformRepository(db *sql.DB, tokens *utils.TokenCipher) PlatformRepository {
	return &platformRepository{db: db, tokens: tokens}
}

const platformColumns = `
	id, user_id, platform_id, name, icon, account_name, account_id,
	access_token, refresh_token, token_expires_at, is_connected, last_sync,
	sync_frequency, notify_mentions, notify_messages, metadata, created_at, updated_at`

// Upsert inserts the platform or, when the user already has a row for the
// same platform, replaces its credentials and account data. User settings
// (sync frequency, notifications) survive a reconnect.
func (r *platformRepository) Upsert(ctx context.Context, tx *sql.Tx, p *models.ConnectedPlatform) (int64, error) {
	accessToken, err := r.tokens.Seal(p.AccessToken)
	if err != nil {
		return 0, err
	}
	refreshToken, err := r.tokens.Seal(p.RefreshToken)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO social_platforms (
			user_id,
			platform_id,
			name,
			icon,
			account_name,
			account_id,
			access_token,
			refresh_token,
			token_expires_at,
			is_connected,
			last_sync,
			sync_frequency,
			notify_mentions,
			notify_messages,
			metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id, platform_id) DO UPDATE SET
			name = EXCLUDED.name,
			icon = EXCLUDED.icon,
			account_name = EXCLUDED.account_name,
			account_id = EXCLUDED.account_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_connected = EXCLUDED.is_connected,
			last_sync = EXCLUDED.last_sync,
			metadata = EXCLUDED.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		p.UserID,
		p.PlatformID,
		p.Name,
		p.Icon,
		p.AccountName,
		p.AccountID,
		accessToken,
		refreshToken,
		p.TokenExpiresAt,
		p.IsConnected,
		p.LastSync,
		p.SyncFrequency,
		p.Notifications.Mentions,
		p.Notifications.Messages,
		p.Metadata,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *platformRepository) GetByPlatform(ctx context.Context, userID int64, platformID string) (*models.ConnectedPlatform, error) {
	query := `SELECT` + platformColumns + ` FROM social_platforms WHERE user_id = $1 AND platform_id = $2`
	row := r.db.QueryRowContext(ctx, query, userID, platformID)

	p, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return p, nil
}

func (r *platformRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedPlatform, error) {
	query := `SELECT` + platformColumns + ` FROM social_platforms WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, userID)
}

func (r *platformRepository) ListConnected(ctx context.Context, userID int64) ([]*models.ConnectedPlatform, error) {
	query := `SELECT` + platformColumns + ` FROM social_platforms WHERE user_id = $1 AND is_connected = TRUE ORDER BY id`
	return r.list(ctx, query, userID)
}

// ListExpiring returns connected rows of a platform whose token expires
// before the given instant.
func (r *platformRepository) ListExpiring(ctx context.Context, platformID string, before time.Time) ([]*models.ConnectedPlatform, error) {
	query := `SELECT` + platformColumns + ` FROM social_platforms
		WHERE platform_id = $1 AND is_connected = TRUE AND token_expires_at IS NOT NULL AND token_expires_at < $2
		ORDER BY token_expires_at`
	return r.list(ctx, query, platformID, before)
}

func (r *platformRepository) SetToken(ctx context.Context, id int64, accessToken string, expiresAt *time.Time) error {
	sealed, err := r.tokens.Seal(accessToken)
	if err != nil {
		return err
	}

	query := `
		UPDATE social_platforms
		SET access_token = $1,
			token_expires_at = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err = r.db.ExecContext(ctx, query, sealed, expiresAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformRepository) list(ctx context.Context, query string, args ...any) ([]*models.ConnectedPlatform, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var platforms []*models.ConnectedPlatform
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		platforms = append(platforms, p)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return platforms, nil
}

func (r *platformRepository) UpdateSettings(ctx context.Context, userID int64, platformID string, s *PlatformSettings) (bool, error) {
	query := `
		UPDATE social_platforms
		SET
			sync_frequency = COALESCE($3, sync_frequency),
			notify_mentions = COALESCE($4, notify_mentions),
			notify_messages = COALESCE($5, notify_messages),
			account_name = COALESCE($6, account_name),
			updated_at = $7
		WHERE user_id = $1 AND platform_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, platformID,
		s.SyncFrequency, s.NotifyMentions, s.NotifyMessages, s.AccountName, time.Now())
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

func (r *platformRepository) Remove(ctx context.Context, userID int64, platformID string) (bool, error) {
	query := `DELETE FROM social_platforms WHERE user_id = $1 AND platform_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, platformID)
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

type scanner interface {
	Scan(dest ...any) error
}

func (r *platformRepository) scan(row scanner) (*models.ConnectedPlatform, error) {
	var p models.ConnectedPlatform
	var tokenExpiresAt, lastSync sql.NullTime

	err := row.Scan(&p.ID, &p.UserID, &p.PlatformID, &p.Name, &p.Icon, &p.AccountName, &p.AccountID,
		&p.AccessToken, &p.RefreshToken, &tokenExpiresAt, &p.IsConnected, &lastSync,
		&p.SyncFrequency, &p.Notifications.Mentions, &p.Notifications.Messages, &p.Metadata,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if tokenExpiresAt.Valid {
		p.TokenExpiresAt = &tokenExpiresAt.Time
	}
	if lastSync.Valid {
		p.LastSync = &lastSync.Time
	}

	if p.AccessToken, err = r.tokens.Open(p.AccessToken); err != nil {
		return nil, err
	}
	if p.RefreshToken, err = r.tokens.Open(p.RefreshToken); err != nil {
		return nil, err
	}

	return &p, nil
}
