package functions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

type FacebookConfig struct {
	AppID     string
	AppSecret string
	Graph     graph.Config
	// TokenURL overrides the OAuth token endpoint.
	TokenURL string
}

type Facebook struct {
	oauth *oauth2.Config
	graph *graph.Client
}

func NewFacebook(cfg FacebookConfig) *Facebook {
	endpoint := facebook.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	p, _ := platforms.Lookup(platforms.Facebook)
	return &Facebook{
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			Endpoint:     endpoint,
			Scopes:       p.Scopes,
		},
		graph: graph.NewClient(cfg.Graph),
	}
}

func (f *Facebook) Register(r *Registry) {
	r.Register(OAuth(platforms.Facebook), handle(f.exchange))
	r.Register(Publish(platforms.Facebook), handle(f.publish))
	r.Register(Revoke(platforms.Facebook), handle(f.revoke))
}

func (f *Facebook) exchange(ctx context.Context, in OAuthRequest) (*TokenResponse, error) {
	if in.Code == "" {
		return nil, errors.New("missing code")
	}

	conf := *f.oauth
	conf.RedirectURL = in.RedirectURI

	token, err := conf.Exchange(ctx, in.Code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	me, err := f.graph.Me(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	pages, err := f.graph.Pages(ctx, token.AccessToken)
	if err != nil {
		slog.Info(err.Error())
	}

	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn(token),
		AccountID:    me.ID,
		AccountName:  me.Name,
		Metadata:     PagesMetadata(pages),
	}, nil
}

// PagesMetadata stores the managed pages without their tokens and selects
// the first page as the publishing target.
func PagesMetadata(pages []graph.Page) map[string]any {
	list := make([]map[string]string, 0, len(pages))
	for _, p := range pages {
		list = append(list, map[string]string{"id": p.ID, "name": p.Name})
	}

	meta := map[string]any{"pages": list}
	if len(pages) > 0 {
		meta["page_id"] = pages[0].ID
		meta["page_name"] = pages[0].Name
	}
	return meta
}

func (f *Facebook) publish(ctx context.Context, in PublishRequest) (*PublishResponse, error) {
	if in.AccessToken == "" {
		return nil, errors.New("missing access token")
	}

	target, token := "me", in.AccessToken
	if pageID := metaString(in.Metadata, "page_id"); pageID != "" {
		pageToken, err := f.graph.PageToken(ctx, pageID, in.AccessToken)
		if err != nil {
			return nil, err
		}
		target, token = pageID, pageToken
	}

	var link string
	if len(in.MediaURLs) > 0 {
		link = in.MediaURLs[0]
	}

	id, err := f.graph.PostToFeed(ctx, target, token, in.Content, link)
	if err != nil {
		return nil, err
	}
	return &PublishResponse{ExternalPostID: id, URL: "https://www.facebook.com/" + id}, nil
}

func (f *Facebook) revoke(ctx context.Context, in RevokeRequest) (*struct{}, error) {
	if err := f.graph.RevokePermissions(ctx, in.AccessToken); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func expiresIn(token *oauth2.Token) int64 {
	if token.Expiry.IsZero() {
		return 0
	}
	return int64(token.Expiry.Sub(timeNow()).Seconds())
}
