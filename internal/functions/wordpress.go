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
	"golang.org/x/oauth2"
)

type WordPressConfig struct {
	ClientID     string
	ClientSecret string
	// APIURL is the WordPress.com public API host.
	APIURL string
}

type WordPress struct {
	cfg    WordPressConfig
	oauth  *oauth2.Config
	client *resty.Client
}

type wordpressError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewWordPress(cfg WordPressConfig) *WordPress {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://public-api.wordpress.com"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	p, _ := platforms.Lookup(platforms.WordPress)
	return &WordPress{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.APIURL + "/oauth2/authorize",
				TokenURL:  cfg.APIURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: p.Scopes,
		},
		client: resty.New().SetTimeout(30*time.Second).SetHeader("User-Agent", "socialdesk-wordpress"),
	}
}

func (wp *WordPress) Register(r *Registry) {
	r.Register(ConnectWordPress, handle(wp.connect))
	r.Register(ConnectWordPressSelfHosted, handle(wp.connectSelfHosted))
	r.Register(OAuth(platforms.WordPress), handle(wp.exchange))
	r.Register(Publish(platforms.WordPress), handle(wp.publish))
}

func (wp *WordPress) do(req *resty.Request, method, url string, out any) error {
	var failure wordpressError
	resp, err := req.SetResult(out).SetError(&failure).Execute(method, url)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = failure.Error
		}
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("wordpress: %s", msg)
	}
	return nil
}

// connect returns the WordPress.com authorization URL, or asks for
// application password credentials when no OAuth client is configured.
func (wp *WordPress) connect(_ context.Context, in WordPressConnectRequest) (*WordPressConnectResponse, error) {
	if wp.cfg.ClientID == "" {
		return &WordPressConnectResponse{NeedsManualCredentials: true}, nil
	}

	conf := *wp.oauth
	conf.RedirectURL = in.RedirectURI
	return &WordPressConnectResponse{AuthURL: conf.AuthCodeURL(in.State)}, nil
}

func (wp *WordPress) exchange(ctx context.Context, in OAuthRequest) (*TokenResponse, error) {
	if in.Code == "" {
		return nil, errors.New("missing code")
	}

	conf := *wp.oauth
	conf.RedirectURL = in.RedirectURI

	token, err := conf.Exchange(ctx, in.Code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	meta := map[string]any{
		"blog_id":  extraString(token, "blog_id"),
		"site_url": extraString(token, "blog_url"),
	}

	var me struct {
		ID          int64  `json:"ID"`
		DisplayName string `json:"display_name"`
		Username    string `json:"username"`
	}
	err = wp.do(wp.client.R().SetContext(ctx).SetAuthToken(token.AccessToken), resty.MethodGet, wp.cfg.APIURL+"/rest/v1.1/me", &me)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	name := me.DisplayName
	if name == "" {
		name = me.Username
	}
	return &TokenResponse{
		AccessToken: token.AccessToken,
		AccountID:   strconv.FormatInt(me.ID, 10),
		AccountName: name,
		Metadata:    meta,
	}, nil
}

func (wp *WordPress) connectSelfHosted(ctx context.Context, in SelfHostedRequest) (*TokenResponse, error) {
	site := strings.TrimRight(in.SiteURL, "/")
	if site == "" || in.Username == "" || in.ApplicationPassword == "" {
		return nil, errors.New("site url, username and application password are required")
	}

	var me struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	err := wp.do(wp.client.R().SetContext(ctx).
		SetBasicAuth(in.Username, in.ApplicationPassword).
		SetQueryParam("context", "edit"),
		resty.MethodGet, site+"/wp-json/wp/v2/users/me", &me)
	if err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	name := me.Name
	if name == "" {
		name = in.Username
	}
	return &TokenResponse{
		AccessToken: in.ApplicationPassword,
		AccountID:   strconv.FormatInt(me.ID, 10),
		AccountName: name,
		Metadata: map[string]any{
			"site_url":    site,
			"username":    in.Username,
			"self_hosted": true,
		},
	}, nil
}

func (wp *WordPress) publish(ctx context.Context, in PublishRequest) (*PublishResponse, error) {
	if in.AccessToken == "" {
		return nil, errors.New("missing access token")
	}
	title := in.Title
	if title == "" {
		title = firstLine(in.Content)
	}

	if metaString(in.Metadata, "self_hosted") == "true" {
		site := metaString(in.Metadata, "site_url")
		var result struct {
			ID   int64  `json:"id"`
			Link string `json:"link"`
		}
		err := wp.do(wp.client.R().SetContext(ctx).
			SetBasicAuth(metaString(in.Metadata, "username"), in.AccessToken).
			SetBody(map[string]string{"title": title, "content": in.Content, "status": "publish"}),
			resty.MethodPost, site+"/wp-json/wp/v2/posts", &result)
		if err != nil {
			return nil, err
		}
		return &PublishResponse{ExternalPostID: strconv.FormatInt(result.ID, 10), URL: result.Link}, nil
	}

	blogID := metaString(in.Metadata, "blog_id")
	if blogID == "" {
		return nil, errors.New("missing blog id")
	}
	var result struct {
		ID  int64  `json:"ID"`
		URL string `json:"URL"`
	}
	err := wp.do(wp.client.R().SetContext(ctx).
		SetAuthToken(in.AccessToken).
		SetFormData(map[string]string{"title": title, "content": in.Content, "status": "publish"}),
		resty.MethodPost, fmt.Sprintf("%s/rest/v1.1/sites/%s/posts/new", wp.cfg.APIURL, blogID), &result)
	if err != nil {
		return nil, err
	}
	return &PublishResponse{ExternalPostID: strconv.FormatInt(result.ID, 10), URL: result.URL}, nil
}

func extraString(token *oauth2.Token, key string) string {
	return metaString(map[string]any{key: token.Extra(key)}, key)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > 80 {
		line = line[:80]
	}
	return line
}
