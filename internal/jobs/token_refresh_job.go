package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository"
)

// TokenRefreshJob extends Instagram long-lived tokens before they expire.
type TokenRefreshJob struct {
	pr     repository.PlatformRepository
	fn     functions.Invoker
	window time.Duration
	now    func() time.Time
}

func NewTokenRefreshJob(pr repository.PlatformRepository, fn functions.Invoker, window time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{
		pr:     pr,
		fn:     fn,
		window: window,
		now:    time.Now,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := j.pr.ListExpiring(ctx, platforms.Instagram, j.now().Add(j.window))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, acc := range accounts {
		if acc.Metadata.String("connected_via") == functions.ConnectedViaFacebook {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.ConnectedPlatform) {
			defer wg.Done()
			defer func() { <-semaphore }()

			var token functions.TokenResponse
			err := j.fn.Invoke(ctx, functions.Refresh(acc.PlatformID), functions.RefreshRequest{
				AccessToken:  acc.AccessToken,
				RefreshToken: acc.RefreshToken,
			}, &token)
			if err != nil {
				slog.Info("Unable to refresh tokens for Instagram", "platform_row", acc.ID, "error", err)
				return
			}

			var expiresAt *time.Time
			if token.ExpiresIn > 0 {
				t := j.now().Add(time.Duration(token.ExpiresIn) * time.Second)
				expiresAt = &t
			}
			if err := j.pr.SetToken(ctx, acc.ID, token.AccessToken, expiresAt); err != nil {
				slog.Info(err.Error())
			}
		}(acc)
	}

	wg.Wait()
}
