package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/socialdesk/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, bool, error)
	// UpsertGoogle returns the account for the user's email, creating it on
	// first sign-in. Google profile fields are filled only while the account
	// has no Google id yet.
	UpsertGoogle(ctx context.Context, user *models.User) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, google_id, email, name, profile_picture, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		slog.Info(err.Error())
		return nil, false, err
	}
	return user, true, nil
}

func (r *userRepository) UpsertGoogle(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (google_id, email, name, profile_picture)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			name = CASE WHEN users.google_id = '' THEN EXCLUDED.name ELSE users.name END,
			profile_picture = CASE WHEN users.google_id = '' THEN EXCLUDED.profile_picture ELSE users.profile_picture END,
			google_id = CASE WHEN users.google_id = '' THEN EXCLUDED.google_id ELSE users.google_id END,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + userColumns

	saved, err := scanUser(r.db.QueryRowContext(ctx, query, user.GoogleID, user.Email, user.Name, user.ProfilePicture))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return saved, nil
}
