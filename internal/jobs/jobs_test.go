package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository/repotest"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, store *repotest.Store, userID int64, at time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := store.Posts().Create(ctx, nil, &models.Post{
		UserID:       userID,
		Title:        "Launch",
		Content:      "We are live",
		Type:         models.PostTypeSocial,
		Status:       models.PostStatusScheduled,
		ScheduledFor: &at,
	})
	require.NoError(t, err)
	require.NoError(t, store.PostPlatforms().Create(ctx, nil, &models.PostPlatform{
		PostID:     id,
		PlatformID: platforms.Facebook,
		Status:     models.PostStatusScheduled,
	}))
	return id
}

func TestSweeperJob_DispatchOverdue(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()

	_, err := store.Platforms().Upsert(ctx, nil, &models.ConnectedPlatform{
		UserID:      1,
		PlatformID:  platforms.Facebook,
		AccessToken: "page-token",
		IsConnected: true,
	})
	require.NoError(t, err)

	var calls atomic.Int32
	registry := functions.NewRegistry()
	registry.Register(functions.Publish(platforms.Facebook), func(context.Context, json.RawMessage) (any, error) {
		calls.Add(1)
		return functions.PublishResponse{ExternalPostID: "fb_1"}, nil
	})

	media := service.NewMediaService(nil, store.Assets(), store.PostMedia(), "")
	publisher := service.NewPublisher(registry, store.Platforms(), store.Posts(), store.PostPlatforms(), media)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	overdue := seedPost(t, store, 1, now.Add(-10*time.Minute))
	future := seedPost(t, store, 1, now.Add(time.Hour))

	job := NewSweeperJob(store.Posts(), publisher, time.Minute)
	job.now = func() time.Time { return now }

	job.DispatchOverdue()
	job.DispatchOverdue()

	assert.EqualValues(t, 1, calls.Load())

	post, err := store.Posts().GetByID(ctx, overdue)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)

	pps, err := store.PostPlatforms().ListByPostID(ctx, overdue)
	require.NoError(t, err)
	require.Len(t, pps, 1)
	assert.Equal(t, "fb_1", pps[0].ExternalPostID)

	post, err = store.Posts().GetByID(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
}

func TestSweeperJob_WithinGrace(t *testing.T) {
	store := repotest.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := seedPost(t, store, 1, now.Add(-30*time.Second))

	pub := &countingPublisher{}
	job := NewSweeperJob(store.Posts(), pub, time.Minute)
	job.now = func() time.Time { return now }

	job.DispatchOverdue()

	assert.Empty(t, pub.ids)
	post, err := store.Posts().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
}

func TestSweeperJob_DispatchInScheduleOrder(t *testing.T) {
	store := repotest.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	third := seedPost(t, store, 1, now.Add(-1*time.Hour))
	first := seedPost(t, store, 1, now.Add(-3*time.Hour))
	second := seedPost(t, store, 1, now.Add(-2*time.Hour))

	pub := &countingPublisher{}
	job := NewSweeperJob(store.Posts(), pub, time.Minute)
	job.now = func() time.Time { return now }
	job.limit = 1

	job.DispatchOverdue()

	assert.Equal(t, []int64{first, second, third}, pub.ids)
}

type countingPublisher struct {
	service.Publisher
	ids []int64
}

func (p *countingPublisher) Dispatch(_ context.Context, postID int64) (*models.Post, error) {
	p.ids = append(p.ids, postID)
	return nil, nil
}

func TestTokenRefreshJob_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	soon := now.Add(24 * time.Hour)
	later := now.Add(40 * 24 * time.Hour)

	expiring, err := store.Platforms().Upsert(ctx, nil, &models.ConnectedPlatform{
		UserID: 1, PlatformID: platforms.Instagram, AccessToken: "old",
		TokenExpiresAt: &soon, IsConnected: true,
	})
	require.NoError(t, err)
	viaSDK, err := store.Platforms().Upsert(ctx, nil, &models.ConnectedPlatform{
		UserID: 2, PlatformID: platforms.Instagram, AccessToken: "page-token",
		TokenExpiresAt: &soon, IsConnected: true,
		Metadata: models.Metadata{"connected_via": functions.ConnectedViaFacebook},
	})
	require.NoError(t, err)
	fresh, err := store.Platforms().Upsert(ctx, nil, &models.ConnectedPlatform{
		UserID: 3, PlatformID: platforms.Instagram, AccessToken: "fresh",
		TokenExpiresAt: &later, IsConnected: true,
	})
	require.NoError(t, err)

	var seen []string
	registry := functions.NewRegistry()
	registry.Register(functions.Refresh(platforms.Instagram), func(_ context.Context, payload json.RawMessage) (any, error) {
		var req functions.RefreshRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		seen = append(seen, req.AccessToken)
		return functions.TokenResponse{AccessToken: "new", ExpiresIn: 5184000}, nil
	})

	job := NewTokenRefreshJob(store.Platforms(), registry, 7*24*time.Hour)
	job.now = func() time.Time { return now }
	job.RefreshTokens()

	assert.Equal(t, []string{"old"}, seen)

	p, err := store.Platforms().GetByPlatform(ctx, 1, platforms.Instagram)
	require.NoError(t, err)
	assert.Equal(t, expiring, p.ID)
	assert.Equal(t, "new", p.AccessToken)
	require.NotNil(t, p.TokenExpiresAt)
	assert.True(t, p.TokenExpiresAt.Equal(now.Add(60*24*time.Hour)))

	p, err = store.Platforms().GetByPlatform(ctx, 2, platforms.Instagram)
	require.NoError(t, err)
	assert.Equal(t, viaSDK, p.ID)
	assert.Equal(t, "page-token", p.AccessToken)

	p, err = store.Platforms().GetByPlatform(ctx, 3, platforms.Instagram)
	require.NoError(t, err)
	assert.Equal(t, fresh, p.ID)
	assert.Equal(t, "fresh", p.AccessToken)
}

func TestTokenRefreshJob_FailureKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	now := time.Now()
	soon := now.Add(time.Hour)

	_, err := store.Platforms().Upsert(ctx, nil, &models.ConnectedPlatform{
		UserID: 1, PlatformID: platforms.Instagram, AccessToken: "old",
		TokenExpiresAt: &soon, IsConnected: true,
	})
	require.NoError(t, err)

	registry := functions.NewRegistry()
	registry.Register(functions.Refresh(platforms.Instagram), func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("token expired")
	})

	NewTokenRefreshJob(store.Platforms(), registry, 24*time.Hour).RefreshTokens()

	p, err := store.Platforms().GetByPlatform(ctx, 1, platforms.Instagram)
	require.NoError(t, err)
	assert.Equal(t, "old", p.AccessToken)
	assert.True(t, p.TokenExpiresAt.Equal(soon))
}
