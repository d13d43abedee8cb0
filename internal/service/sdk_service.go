package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

var sdkScopes = map[string][]string{
	platforms.Facebook:  {"public_profile", "pages_show_list", "pages_read_engagement", "pages_manage_posts"},
	platforms.Instagram: {"pages_show_list", "instagram_basic", "instagram_content_publish"},
}

type GraphClient interface {
	Session(accessToken, code, redirectURI string) graph.Session
	Me(ctx context.Context, accessToken string) (*graph.User, error)
	Pages(ctx context.Context, accessToken string) ([]graph.Page, error)
}

type GraphLoader interface {
	Load(ctx context.Context) (GraphClient, error)
}

type graphLoader struct {
	l *graph.Loader
}

func NewGraphLoader(l *graph.Loader) GraphLoader {
	return &graphLoader{l: l}
}

func (g *graphLoader) Load(ctx context.Context) (GraphClient, error) {
	c, err := g.l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type SDKService interface {
	Connect(ctx context.Context, userID int64, platformID string, req *transfer.SDKConnectRequest) (*models.ConnectedPlatform, error)
}

type sdkService struct {
	loader      GraphLoader
	ps          PlatformService
	redirectURI func(platformID string) string
}

func NewSDKService(loader GraphLoader, ps PlatformService, redirectURI func(platformID string) string) SDKService {
	return &sdkService{
		loader:      loader,
		ps:          ps,
		redirectURI: redirectURI,
	}
}

// Connect links Facebook or Instagram from a browser SDK login. A valid
// existing login is reused, otherwise the SDK code is exchanged.
func (s *sdkService) Connect(ctx context.Context, userID int64, platformID string, req *transfer.SDKConnectRequest) (*models.ConnectedPlatform, error) {
	p, err := lookupAvailable(platformID)
	if err != nil {
		return nil, err
	}
	if !p.SDKLogin {
		return nil, ErrPlatformUnsupported
	}
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if req == nil {
		return nil, validationError("sdk login result is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	client, err := s.loader.Load(ctx)
	if err != nil {
		slog.Info(err.Error())
		if errors.Is(err, graph.ErrLoadTimeout) {
			return nil, ErrSdkLoadTimeout
		}
		return nil, err
	}

	session := client.Session(req.AccessToken, req.Code, s.redirectURI(p.ID))
	status, err := session.LoginStatus(ctx)
	if err != nil || !status.Connected {
		status, err = session.Login(ctx, sdkScopes[p.ID])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
		}
	}

	me, err := client.Me(ctx, status.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	pages, err := client.Pages(ctx, status.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	var token *functions.TokenResponse
	switch p.ID {
	case platforms.Instagram:
		token, err = instagramFromPages(status.AccessToken, pages)
		if err != nil {
			return nil, err
		}
	default:
		meta := functions.PagesMetadata(pages)
		meta["connected_via"] = functions.ConnectedViaFacebook
		token = &functions.TokenResponse{
			AccessToken: status.AccessToken,
			AccountID:   me.ID,
			AccountName: me.Name,
			Metadata:    meta,
		}
	}

	return s.ps.Save(ctx, userID, p.ID, token)
}

// instagramFromPages selects the first page with a linked Instagram
// business account.
func instagramFromPages(accessToken string, pages []graph.Page) (*functions.TokenResponse, error) {
	for _, page := range pages {
		ig := page.InstagramBusinessAccount
		if ig == nil || ig.ID == "" {
			continue
		}

		name := ig.Username
		if name == "" {
			name = page.Name
		}
		return &functions.TokenResponse{
			AccessToken: accessToken,
			AccountID:   ig.ID,
			AccountName: name,
			Metadata: map[string]any{
				"instagram_business_account_id": ig.ID,
				"page_id":                       page.ID,
				"page_name":                     page.Name,
				"connected_via":                 functions.ConnectedViaFacebook,
			},
		}, nil
	}
	return nil, ErrNoBusinessAccount
}
