package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

type PlatformService interface {
	List(ctx context.Context, userID int64) []*models.ConnectedPlatform
	Get(ctx context.Context, userID int64, platformID string) (*models.ConnectedPlatform, error)
	Save(ctx context.Context, userID int64, platformID string, token *functions.TokenResponse) (*models.ConnectedPlatform, error)
	UpdateSettings(ctx context.Context, userID int64, platformID string, update *transfer.PlatformSettingsUpdate) (*models.ConnectedPlatform, error)
	Disconnect(ctx context.Context, userID int64, platformID string) error
}

type platformService struct {
	pr  repository.PlatformRepository
	fn  functions.Invoker
	now func() time.Time
}

func NewPlatformService(pr repository.PlatformRepository, fn functions.Invoker) PlatformService {
	return &platformService{
		pr:  pr,
		fn:  fn,
		now: time.Now,
	}
}

// List returns the user's platforms. Without a session, on a store error or
// when nothing is stored yet, it falls back to the default unconnected set.
func (s *platformService) List(ctx context.Context, userID int64) []*models.ConnectedPlatform {
	if userID == 0 {
		return platforms.Defaults()
	}

	list, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		slog.Error("list platforms", "user_id", userID, "error", err)
		return platforms.Defaults()
	}
	if len(list) == 0 {
		return platforms.Defaults()
	}
	return list
}

func (s *platformService) Get(ctx context.Context, userID int64, platformID string) (*models.ConnectedPlatform, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if _, ok := platforms.Lookup(platformID); !ok {
		return nil, ErrUnknownPlatform
	}

	p, err := s.pr.GetByPlatform(ctx, userID, platformID)
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	if p == nil {
		return nil, ErrPlatformNotConnected
	}
	return p, nil
}

// Save normalizes a successful connection and upserts it by user and platform.
func (s *platformService) Save(ctx context.Context, userID int64, platformID string, token *functions.TokenResponse) (*models.ConnectedPlatform, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchangeFailed)
	}

	info, ok := platforms.Lookup(platformID)
	if !ok {
		return nil, ErrUnknownPlatform
	}

	now := s.now()
	p := &models.ConnectedPlatform{
		UserID:        userID,
		PlatformID:    info.ID,
		Name:          info.Name,
		Icon:          info.Icon,
		AccountName:   token.AccountName,
		AccountID:     token.AccountID,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		IsConnected:   true,
		LastSync:      &now,
		SyncFrequency: models.SyncDaily,
		Notifications: models.Notifications{Mentions: true, Messages: true},
		Metadata:      token.Metadata,
	}
	if token.ExpiresIn > 0 {
		expiresAt := now.Add(time.Duration(token.ExpiresIn) * time.Second)
		p.TokenExpiresAt = &expiresAt
	}

	id, err := s.pr.Upsert(ctx, nil, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	p.ID = id

	slog.Info("platform connected", "user_id", userID, "platform", platformID)
	return p, nil
}

func (s *platformService) UpdateSettings(ctx context.Context, userID int64, platformID string, update *transfer.PlatformSettingsUpdate) (*models.ConnectedPlatform, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if _, ok := platforms.Lookup(platformID); !ok {
		return nil, ErrUnknownPlatform
	}
	if update == nil {
		return nil, validationError("empty settings update")
	}
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	settings := &repository.PlatformSettings{
		SyncFrequency: update.SyncFrequency,
		AccountName:   update.AccountName,
	}
	if update.Notifications != nil {
		settings.NotifyMentions = update.Notifications.Mentions
		settings.NotifyMessages = update.Notifications.Messages
	}

	found, err := s.pr.UpdateSettings(ctx, userID, platformID, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !found {
		return nil, ErrPlatformNotConnected
	}

	return s.Get(ctx, userID, platformID)
}

// Disconnect revokes the provider grant when possible and deletes the row.
// Revocation failures are logged and do not block the delete.
func (s *platformService) Disconnect(ctx context.Context, userID int64, platformID string) error {
	p, err := s.Get(ctx, userID, platformID)
	if err != nil {
		return err
	}

	if p.AccessToken != "" {
		err := s.fn.Invoke(ctx, functions.Revoke(p.PlatformID), functions.RevokeRequest{
			AccessToken: p.AccessToken,
			AccountID:   p.AccountID,
			Metadata:    p.Metadata,
		}, nil)
		if err != nil && !errors.Is(err, functions.ErrFunctionNotFound) {
			slog.Warn("revoke failed", "platform", p.PlatformID, "error", err)
		}
	}

	removed, err := s.pr.Remove(ctx, userID, p.PlatformID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !removed {
		return ErrPlatformNotConnected
	}
	return nil
}
