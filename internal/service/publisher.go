package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository"
)

type PublishRequest struct {
	PostID    int64
	Title     string
	Content   string
	MediaURLs []string
}

type Publisher interface {
	PublishNow(ctx context.Context, userID int64, platformID string, req *PublishRequest) (*functions.PublishResponse, error)
	PublishPost(ctx context.Context, postID int64) (*models.Post, error)
	Dispatch(ctx context.Context, postID int64) (*models.Post, error)
}

type publisher struct {
	fn    functions.Invoker
	pr    repository.PlatformRepository
	posts repository.PostRepository
	pp    repository.PostPlatformRepository
	media MediaService
	now   func() time.Time
}

func NewPublisher(
	fn functions.Invoker,
	pr repository.PlatformRepository,
	posts repository.PostRepository,
	pp repository.PostPlatformRepository,
	media MediaService) Publisher {
	return &publisher{
		fn:    fn,
		pr:    pr,
		posts: posts,
		pp:    pp,
		media: media,
		now:   time.Now,
	}
}

// PublishNow sends content to one connected platform.
func (p *publisher) PublishNow(ctx context.Context, userID int64, platformID string, req *PublishRequest) (*functions.PublishResponse, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}

	conn, err := p.pr.GetByPlatform(ctx, userID, platformID)
	if err != nil {
		return nil, &PublishError{PlatformID: platformID, Err: err}
	}
	if conn == nil || !conn.IsConnected || conn.AccessToken == "" {
		return nil, &PublishError{PlatformID: platformID, Err: ErrPlatformNotConnected}
	}

	var res functions.PublishResponse
	err = p.fn.Invoke(ctx, functions.Publish(platformID), functions.PublishRequest{
		PostID:      req.PostID,
		Title:       req.Title,
		Content:     req.Content,
		AccessToken: conn.AccessToken,
		AccountID:   conn.AccountID,
		Metadata:    conn.Metadata,
		MediaURLs:   req.MediaURLs,
	}, &res)
	if err != nil {
		return nil, &PublishError{PlatformID: platformID, Err: err}
	}
	return &res, nil
}

// Dispatch publishes a scheduled post once its time has come. The post is
// claimed first so concurrent dispatchers publish it once. Posts that are
// not due or no longer scheduled are returned untouched.
func (p *publisher) Dispatch(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	claimed, err := p.posts.ClaimScheduled(ctx, postID, p.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !claimed {
		slog.Info("skip dispatch", "post_id", postID, "status", post.Status, "scheduled_for", post.ScheduledFor)
		return post, nil
	}

	post.Status = models.PostStatusPublishing
	return p.publish(ctx, post)
}

// PublishPost publishes a scheduled or publishing post to each of its
// platforms in turn. One platform failing does not stop the others. The
// post is published when at least one platform succeeded.
func (p *publisher) PublishPost(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	switch post.Status {
	case models.PostStatusScheduled:
		return p.Dispatch(ctx, postID)
	case models.PostStatusPublishing:
		return p.publish(ctx, post)
	default:
		slog.Info("skip publish", "post_id", postID, "status", post.Status)
		return post, nil
	}
}

func (p *publisher) publish(ctx context.Context, post *models.Post) (_ *models.Post, err error) {
	postID := post.ID
	defer func() {
		if err != nil {
			p.release(context.WithoutCancel(ctx), post)
		}
	}()

	targets, err := p.pp.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list post platforms: %w", err)
	}

	mediaURLs, err := p.media.URLs(ctx, postID)
	if err != nil {
		return nil, err
	}

	req := &PublishRequest{
		PostID:    post.ID,
		Title:     post.Title,
		Content:   post.Content,
		MediaURLs: mediaURLs,
	}

	succeeded := 0
	for _, target := range targets {
		if target.Status == models.PostStatusPublished {
			succeeded++
			continue
		}

		res, err := p.PublishNow(ctx, post.UserID, target.PlatformID, req)
		if err != nil {
			slog.Warn("publish failed", "post_id", postID, "platform", target.PlatformID, "error", err)
			if err := p.pp.MarkFailed(ctx, postID, target.PlatformID, err.Error()); err != nil {
				slog.Info(err.Error())
			}
			continue
		}

		succeeded++
		if err := p.pp.MarkPublished(ctx, postID, target.PlatformID, res.ExternalPostID); err != nil {
			slog.Info(err.Error())
		}
	}

	status := models.PostStatusFailed
	var publishedAt *time.Time
	if succeeded > 0 {
		status = models.PostStatusPublished
		now := p.now()
		publishedAt = &now
	}
	if err := p.posts.UpdatePostStatus(ctx, status, postID, publishedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	slog.Info("post dispatched", "post_id", postID, "status", status, "succeeded", succeeded, "targets", len(targets))

	post.Status = status
	post.PublishedAt = publishedAt
	post.Platforms, err = p.pp.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list post platforms: %w", err)
	}
	return post, nil
}

// release hands back a post that stopped publishing before its final status
// was written. It returns to scheduled while its time is still ahead and to
// draft otherwise, so it can be edited or published again. Targets already
// published are skipped on the next attempt.
func (p *publisher) release(ctx context.Context, post *models.Post) {
	to := models.PostStatusDraft
	if post.ScheduledFor != nil && post.ScheduledFor.After(p.now()) {
		to = models.PostStatusScheduled
	}
	released, err := p.posts.Transition(ctx, post.ID, to, models.PostStatusPublishing)
	if err != nil {
		slog.Error("release post", "post_id", post.ID, "error", err)
		return
	}
	if released {
		slog.Warn("publish interrupted", "post_id", post.ID, "status", to)
	}
}
