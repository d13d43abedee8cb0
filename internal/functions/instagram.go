package functions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/socialdesk/internal/platforms"
)

var timeNow = time.Now

type InstagramConfig struct {
	ClientID     string
	ClientSecret string
	// APIURL hosts the short-lived token endpoint.
	APIURL string
	// GraphURL hosts the long-lived token, profile and publishing endpoints.
	GraphURL     string
	GraphVersion string
	// FacebookGraphURL serves accounts linked through Facebook login.
	FacebookGraphURL string
}

type Instagram struct {
	cfg    InstagramConfig
	client *resty.Client
}

type instagramError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (e instagramError) message() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	return e.ErrorMessage
}

func NewInstagram(cfg InstagramConfig) *Instagram {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.instagram.com"
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.instagram.com"
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = "v21.0"
	}
	if cfg.FacebookGraphURL == "" {
		cfg.FacebookGraphURL = "https://graph.facebook.com"
	}
	cfg.FacebookGraphURL = strings.TrimRight(cfg.FacebookGraphURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")

	return &Instagram{
		cfg:    cfg,
		client: resty.New().SetTimeout(30*time.Second).SetHeader("User-Agent", "socialdesk-instagram"),
	}
}

func (ig *Instagram) Register(r *Registry) {
	r.Register(OAuth(platforms.Instagram), handle(ig.exchange))
	r.Register(Publish(platforms.Instagram), handle(ig.publish))
	r.Register(Refresh(platforms.Instagram), handle(ig.refresh))
}

func (ig *Instagram) do(req *resty.Request, method, url string, out any) error {
	var failure instagramError
	resp, err := req.SetResult(out).SetError(&failure).Execute(method, url)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if resp.IsError() {
		if msg := failure.message(); msg != "" {
			return fmt.Errorf("instagram: %s", msg)
		}
		return fmt.Errorf("instagram: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func (ig *Instagram) exchange(ctx context.Context, in OAuthRequest) (*TokenResponse, error) {
	if in.Code == "" {
		return nil, errors.New("missing code")
	}

	var short struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	err := ig.do(ig.client.R().SetContext(ctx).SetFormData(map[string]string{
		"client_id":     ig.cfg.ClientID,
		"client_secret": ig.cfg.ClientSecret,
		"grant_type":    "authorization_code",
		"redirect_uri":  in.RedirectURI,
		"code":          in.Code,
	}), resty.MethodPost, ig.cfg.APIURL+"/oauth/access_token", &short)
	if err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}
	if short.AccessToken == "" {
		return nil, errors.New("empty short-lived token")
	}

	var long struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err = ig.do(ig.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"grant_type":    "ig_exchange_token",
		"client_secret": ig.cfg.ClientSecret,
		"access_token":  short.AccessToken,
	}), resty.MethodGet, ig.cfg.GraphURL+"/access_token", &long)
	if err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}

	var user struct {
		ID       string `json:"id"`
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	err = ig.do(ig.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"fields":       "id,user_id,username,name",
		"access_token": long.AccessToken,
	}), resty.MethodGet, ig.cfg.GraphURL+"/me", &user)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	accountID := user.UserID
	if accountID == "" {
		accountID = user.ID
	}
	if accountID == "" {
		accountID = strconv.FormatInt(short.UserID, 10)
	}

	return &TokenResponse{
		AccessToken: long.AccessToken,
		ExpiresIn:   long.ExpiresIn,
		AccountID:   accountID,
		AccountName: user.Username,
		Metadata:    map[string]any{"username": user.Username, "name": user.Name},
	}, nil
}

func (ig *Instagram) publish(ctx context.Context, in PublishRequest) (*PublishResponse, error) {
	accountID := metaString(in.Metadata, "instagram_business_account_id")
	if accountID == "" {
		accountID = in.AccountID
	}
	if accountID == "" {
		return nil, errors.New("missing instagram account id")
	}
	if len(in.MediaURLs) == 0 {
		return nil, errors.New("instagram posts require at least one image")
	}

	base := ig.cfg.GraphURL
	if metaString(in.Metadata, "connected_via") == ConnectedViaFacebook {
		base = ig.cfg.FacebookGraphURL
	}
	mediaURL := fmt.Sprintf("%s/%s/%s/media", base, ig.cfg.GraphVersion, accountID)

	var creationID string
	var err error
	if len(in.MediaURLs) == 1 {
		creationID, err = ig.container(ctx, mediaURL, in.AccessToken, map[string]string{
			"image_url": in.MediaURLs[0],
			"caption":   in.Content,
		})
	} else {
		creationID, err = ig.carousel(ctx, mediaURL, in.AccessToken, in.Content, in.MediaURLs)
	}
	if err != nil {
		return nil, err
	}

	var result struct {
		ID string `json:"id"`
	}
	err = ig.do(ig.client.R().SetContext(ctx).SetFormData(map[string]string{
		"creation_id":  creationID,
		"access_token": in.AccessToken,
	}), resty.MethodPost, mediaURL+"_publish", &result)
	if err != nil {
		return nil, fmt.Errorf("failed to publish media: %w", err)
	}
	if result.ID == "" {
		return nil, errors.New("no media ID returned from Instagram")
	}

	return &PublishResponse{ExternalPostID: result.ID}, nil
}

func (ig *Instagram) container(ctx context.Context, mediaURL, accessToken string, fields map[string]string) (string, error) {
	fields["access_token"] = accessToken

	var result struct {
		ID string `json:"id"`
	}
	err := ig.do(ig.client.R().SetContext(ctx).SetFormData(fields), resty.MethodPost, mediaURL, &result)
	if err != nil {
		return "", fmt.Errorf("failed to create media container: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (ig *Instagram) carousel(ctx context.Context, mediaURL, accessToken, caption string, mediaURLs []string) (string, error) {
	children := make([]string, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		id, err := ig.container(ctx, mediaURL, accessToken, map[string]string{
			"image_url":        u,
			"is_carousel_item": "true",
		})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return ig.container(ctx, mediaURL, accessToken, map[string]string{
		"media_type": "CAROUSEL",
		"caption":    caption,
		"children":   strings.Join(children, ","),
	})
}

// refresh extends a long-lived Instagram token. Tokens linked through
// Facebook login are not refreshable here.
func (ig *Instagram) refresh(ctx context.Context, in RefreshRequest) (*TokenResponse, error) {
	if in.AccessToken == "" {
		return nil, errors.New("missing access token")
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := ig.do(ig.client.R().SetContext(ctx).SetQueryParams(map[string]string{
		"grant_type":   "ig_refresh_token",
		"access_token": in.AccessToken,
	}), resty.MethodGet, ig.cfg.GraphURL+"/refresh_access_token", &result)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if result.AccessToken == "" {
		return nil, errors.New("empty refreshed token")
	}

	return &TokenResponse{AccessToken: result.AccessToken, ExpiresIn: result.ExpiresIn}, nil
}
