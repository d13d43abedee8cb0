package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository"
)

type MentionService interface {
	Load(ctx context.Context, userID int64) ([]*models.Mention, error)
	Reply(ctx context.Context, userID, mentionID int64, text string) error
	MarkRead(ctx context.Context, userID, mentionID int64) error
}

type mentionService struct {
	pr  repository.PlatformRepository
	mr  repository.MentionRepository
	now func() time.Time
}

func NewMentionService(pr repository.PlatformRepository, mr repository.MentionRepository) MentionService {
	return &mentionService{
		pr:  pr,
		mr:  mr,
		now: time.Now,
	}
}

// TimeAgo renders the age of t relative to now in minutes, hours or days.
func TimeAgo(now, t time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}

func (s *mentionService) connectedIDs(ctx context.Context, userID int64) ([]int64, error) {
	connected, err := s.pr.ListConnected(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connected platforms: %w", err)
	}

	ids := make([]int64, 0, len(connected))
	for _, p := range connected {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// Load returns unread mentions for the user's connected platforms, newest
// first.
func (s *mentionService) Load(ctx context.Context, userID int64) ([]*models.Mention, error) {
	if userID == 0 {
		return []*models.Mention{}, nil
	}

	ids, err := s.connectedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Mention{}, nil
	}

	mentions, err := s.mr.ListUnread(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list mentions: %w", err)
	}

	now := s.now()
	for _, m := range mentions {
		m.TimeAgo = TimeAgo(now, m.CreatedAt)
	}
	if mentions == nil {
		mentions = []*models.Mention{}
	}
	return mentions, nil
}

// Reply marks the mention read.
// TODO: deliver text through a reply-<platform> function once providers expose comment replies.
func (s *mentionService) Reply(ctx context.Context, userID, mentionID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyReply
	}

	changed, err := s.markRead(ctx, userID, mentionID)
	if err != nil {
		return err
	}
	if changed {
		slog.Info("mention reply", "mention_id", mentionID, "length", len(text))
	}
	return nil
}

// MarkRead is a no-op for unknown mentions and mentions of other users.
func (s *mentionService) MarkRead(ctx context.Context, userID, mentionID int64) error {
	_, err := s.markRead(ctx, userID, mentionID)
	return err
}

func (s *mentionService) markRead(ctx context.Context, userID, mentionID int64) (bool, error) {
	if userID == 0 {
		return false, ErrNotAuthenticated
	}

	ids, err := s.connectedIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}

	changed, err := s.mr.MarkRead(ctx, mentionID, ids)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	return changed, nil
}
