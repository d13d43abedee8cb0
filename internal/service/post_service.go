package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

// Scheduler dispatches a post at a given time.
type Scheduler interface {
	Schedule(ctx context.Context, postID int64, at time.Time) error
	Unschedule(ctx context.Context, postID int64) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error)
	Edit(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (*models.Post, error)
	Cancel(ctx context.Context, userID, postID int64) error
	Publish(ctx context.Context, userID, postID int64) (*models.Post, error)
}

type postService struct {
	tx        repository.Transactor
	pr        repository.PostRepository
	pp        repository.PostPlatformRepository
	pm        repository.PostMediaRepository
	platforms repository.PlatformRepository
	media     MediaService
	publisher Publisher
	scheduler Scheduler
	now       func() time.Time
}

func NewPostService(
	tx repository.Transactor,
	pr repository.PostRepository,
	pp repository.PostPlatformRepository,
	pm repository.PostMediaRepository,
	platforms repository.PlatformRepository,
	media MediaService,
	publisher Publisher,
	scheduler Scheduler) PostService {
	return &postService{
		tx:        tx,
		pr:        pr,
		pp:        pp,
		pm:        pm,
		platforms: platforms,
		media:     media,
		publisher: publisher,
		scheduler: scheduler,
		now:       time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if pc == nil {
		return nil, validationError("post is empty")
	}
	if len(pc.Platforms) == 0 {
		return nil, validationError("select at least one platform")
	}
	if err := pc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	post := &models.Post{
		UserID:  userID,
		Title:   pc.Title,
		Content: pc.Content,
		Type:    models.PostTypeSocial,
	}

	switch pc.Mode {
	case transfer.ModeSchedule:
		if !pc.ScheduledFor.After(s.now()) {
			return nil, validationError("scheduled time must be in the future")
		}
		at := pc.ScheduledFor.UTC()
		post.Status = models.PostStatusScheduled
		post.ScheduledFor = &at
	case transfer.ModeNow:
		post.Status = models.PostStatusPublishing
	default:
		post.Status = models.PostStatusDraft
	}

	targets, err := s.resolveTargets(ctx, userID, pc.Platforms, pc.Mode != transfer.ModeDraft)
	if err != nil {
		return nil, err
	}

	if err := s.media.Owned(ctx, userID, pc.MediaIDs); err != nil {
		return nil, err
	}

	targetStatus := models.PostStatusScheduled
	if post.Status == models.PostStatusDraft {
		targetStatus = models.PostStatusDraft
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		id, err := s.pr.Create(ctx, tx, post)
		if err != nil {
			return fmt.Errorf("error creating post: %w", err)
		}
		post.ID = id

		for _, platformID := range targets {
			err := s.pp.Create(ctx, tx, &models.PostPlatform{
				PostID:     id,
				PlatformID: platformID,
				Status:     targetStatus,
			})
			if err != nil {
				return fmt.Errorf("error saving platform %s: %w", platformID, err)
			}
		}

		if err := s.pm.Attach(ctx, tx, id, pc.MediaIDs); err != nil {
			return fmt.Errorf("error saving media: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	switch post.Status {
	case models.PostStatusScheduled:
		if err := s.scheduler.Schedule(ctx, post.ID, *post.ScheduledFor); err != nil {
			// the overdue sweep picks the post up
			slog.Error("schedule post", "post_id", post.ID, "error", err)
		}
	case models.PostStatusPublishing:
		if _, err := s.publisher.PublishPost(ctx, post.ID); err != nil {
			return nil, err
		}
	}

	return s.PostInfo(ctx, userID, post.ID)
}

// resolveTargets expands the all pseudo target and checks every platform.
// Publishing targets must be connected.
func (s *postService) resolveTargets(ctx context.Context, userID int64, requested []string, requireConnected bool) ([]string, error) {
	connected, err := s.platforms.ListConnected(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connected platforms: %w", err)
	}
	isConnected := make(map[string]bool, len(connected))
	for _, p := range connected {
		isConnected[p.PlatformID] = true
	}

	seen := make(map[string]bool)
	var targets []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}

	for _, id := range requested {
		if id == platforms.All {
			for _, p := range connected {
				add(p.PlatformID)
			}
			continue
		}

		p, err := lookupAvailable(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		if requireConnected && !isConnected[p.ID] {
			return nil, fmt.Errorf("%s: %w", p.ID, ErrPlatformNotConnected)
		}
		add(p.ID)
	}

	if len(targets) == 0 {
		return nil, validationError("no connected platforms to post to")
	}
	return targets, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}

	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.withPlatforms(ctx, posts)
}

// ListScheduled returns scheduled posts, soonest first.
func (s *postService) ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return []*models.Post{}, nil
	}

	posts, err := s.pr.ListScheduled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	return s.withPlatforms(ctx, posts)
}

func (s *postService) withPlatforms(ctx context.Context, posts []*models.Post) ([]*models.Post, error) {
	for _, post := range posts {
		pps, err := s.pp.ListByPostID(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("list post platforms: %w", err)
		}
		post.Platforms = pps
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}

	post.Platforms, err = s.pp.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list post platforms: %w", err)
	}

	post.MediaIDs, err = s.pm.AssetIDs(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list post media: %w", err)
	}
	return post, nil
}

func editable(status string) bool {
	return status == models.PostStatusScheduled || status == models.PostStatusDraft
}

// Edit replaces title, content and schedule of a draft or scheduled post and
// re-enqueues its dispatch. Target platforms stay as created.
func (s *postService) Edit(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (*models.Post, error) {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !editable(post.Status) {
		return nil, validationError("a %s post can no longer be edited", post.Status)
	}
	if pu == nil {
		return nil, validationError("update is empty")
	}
	if err := pu.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if pu.Title != nil {
		post.Title = *pu.Title
	}
	if pu.Content != nil {
		post.Content = *pu.Content
	}
	if pu.ScheduledFor != nil {
		if !pu.ScheduledFor.After(s.now()) {
			return nil, validationError("scheduled time must be in the future")
		}
		at := pu.ScheduledFor.UTC()
		post.ScheduledFor = &at
		post.Status = models.PostStatusScheduled
	}
	if post.Status == models.PostStatusScheduled && (post.ScheduledFor == nil || !post.ScheduledFor.After(s.now())) {
		return nil, validationError("scheduled time must be in the future")
	}

	updated, err := s.pr.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !updated {
		return nil, validationError("post %d is being published and can no longer be edited", postID)
	}
	for _, pp := range post.Platforms {
		if pp.Status != post.Status && pp.Status != models.PostStatusPublished {
			if err := s.pp.SetStatus(ctx, postID, pp.PlatformID, post.Status); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
			}
		}
	}

	if post.Status == models.PostStatusScheduled {
		if err := s.scheduler.Unschedule(ctx, postID); err != nil {
			slog.Info(err.Error())
		}
		if err := s.scheduler.Schedule(ctx, postID, *post.ScheduledFor); err != nil {
			slog.Error("schedule post", "post_id", postID, "error", err)
		}
	}

	return s.PostInfo(ctx, userID, postID)
}

// Cancel removes a draft or scheduled post together with its queued dispatch.
func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !editable(post.Status) {
		return validationError("a %s post can no longer be cancelled", post.Status)
	}

	var removed bool
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		removed, err = s.pr.Remove(ctx, tx, postID)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !removed {
		return validationError("post %d is being published and can no longer be cancelled", postID)
	}

	if post.Status == models.PostStatusScheduled {
		if err := s.scheduler.Unschedule(ctx, postID); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

// Publish sends a draft or scheduled post right away.
func (s *postService) Publish(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !editable(post.Status) {
		return nil, validationError("a %s post cannot be published again", post.Status)
	}

	if _, err := s.resolveTargets(ctx, userID, targetIDs(post.Platforms), true); err != nil {
		return nil, err
	}

	claimed, err := s.pr.Transition(ctx, postID, models.PostStatusPublishing, models.PostStatusDraft, models.PostStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	if !claimed {
		return nil, validationError("post %d is already being published", postID)
	}

	// A failed attempt releases the post and keeps its queued dispatch.
	if _, err := s.publisher.PublishPost(ctx, postID); err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusScheduled {
		if err := s.scheduler.Unschedule(ctx, postID); err != nil {
			slog.Info(err.Error())
		}
	}
	return s.PostInfo(ctx, userID, postID)
}

func targetIDs(pps []*models.PostPlatform) []string {
	ids := make([]string, 0, len(pps))
	for _, pp := range pps {
		ids = append(ids, pp.PlatformID)
	}
	return ids
}
