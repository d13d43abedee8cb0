package service

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/maheshrc27/socialdesk/internal/models"
)

type DashboardQuery struct {
	PlatformID string
	MentionID  int64
	PostID     int64
	Callback   CallbackParams
}

type DashboardState struct {
	Platforms       []*models.ConnectedPlatform `json:"platforms"`
	Mentions        []*models.Mention           `json:"mentions"`
	ScheduledPosts  []*models.Post              `json:"scheduled_posts"`
	ActivePlatform  *models.ConnectedPlatform   `json:"active_platform,omitempty"`
	ActiveMention   *models.Mention             `json:"active_mention,omitempty"`
	ActivePost      *models.Post                `json:"active_post,omitempty"`
	OAuthProcessing bool                        `json:"oauth_processing"`
	OAuth           *CallbackResult             `json:"oauth,omitempty"`
}

// DashboardService composes the social dashboard from the platform, mention,
// post and OAuth services.
type DashboardService interface {
	Load(ctx context.Context, userID int64, q DashboardQuery) (*DashboardState, error)
	DrainCallback(ctx context.Context, userID int64, q url.Values) CallbackResult
}

type dashboardService struct {
	ps    PlatformService
	ms    MentionService
	posts PostService
	oauth OAuthService
}

func NewDashboardService(ps PlatformService, ms MentionService, posts PostService, oauth OAuthService) DashboardService {
	return &dashboardService{
		ps:    ps,
		ms:    ms,
		posts: posts,
		oauth: oauth,
	}
}

func (s *dashboardService) DrainCallback(ctx context.Context, userID int64, q url.Values) CallbackResult {
	return s.oauth.Complete(ctx, userID, ParseCallback(q))
}

// Load drains a pending OAuth callback first so the platform list reflects
// the new connection.
func (s *dashboardService) Load(ctx context.Context, userID int64, q DashboardQuery) (*DashboardState, error) {
	state := &DashboardState{}

	if q.Callback.Present() {
		res := s.oauth.Complete(ctx, userID, q.Callback)
		state.OAuthProcessing = true
		state.OAuth = &res
	}

	state.Platforms = s.ps.List(ctx, userID)

	mentions, err := s.ms.Load(ctx, userID)
	if err != nil {
		slog.Error("load mentions", "user_id", userID, "error", err)
		mentions = []*models.Mention{}
	}
	state.Mentions = mentions

	scheduled, err := s.posts.ListScheduled(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.ScheduledPosts = scheduled

	for _, p := range state.Platforms {
		if q.PlatformID != "" && p.PlatformID == q.PlatformID {
			state.ActivePlatform = p
		}
	}
	for _, m := range state.Mentions {
		if q.MentionID != 0 && m.ID == q.MentionID {
			state.ActiveMention = m
		}
	}
	for _, p := range state.ScheduledPosts {
		if q.PostID != 0 && p.ID == q.PostID {
			state.ActivePost = p
		}
	}

	return state, nil
}
