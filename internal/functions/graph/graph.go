// Package graph is a small client for the Facebook Graph API used by the
// Facebook and Instagram connectors.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://graph.facebook.com"

type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string
	Version   string
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type BusinessAccount struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type Page struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	AccessToken              string           `json:"access_token,omitempty"`
	InstagramBusinessAccount *BusinessAccount `json:"instagram_business_account,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Client struct {
	cfg  Config
	http *resty.Client

	mu       sync.Mutex
	appToken string
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version != "" {
		base += "/" + cfg.Version
	}

	return &Client{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(15*time.Second).
			SetHeader("User-Agent", "socialdesk-graph"),
	}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(&failure).
		Get(path)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if resp.IsError() {
		return graphError(resp, failure)
	}
	return nil
}

func graphError(resp *resty.Response, failure apiError) error {
	if failure.Error.Message != "" {
		return fmt.Errorf("graph: %s (code %d)", failure.Error.Message, failure.Error.Code)
	}
	return fmt.Errorf("graph: unexpected status %d", resp.StatusCode())
}

// Ready fetches an app access token, which proves the app credentials work
// and the API is reachable.
func (c *Client) Ready(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appToken != "" {
		return nil
	}
	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return errors.New("graph: app credentials are not configured")
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := c.get(ctx, "/oauth/access_token", map[string]string{
		"client_id":     c.cfg.AppID,
		"client_secret": c.cfg.AppSecret,
		"grant_type":    "client_credentials",
	}, &result)
	if err != nil {
		return err
	}
	if result.AccessToken == "" {
		return errors.New("graph: empty app access token")
	}

	c.appToken = result.AccessToken
	return nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var user User
	err := c.get(ctx, "/me", map[string]string{
		"fields":       "id,name,email",
		"access_token": accessToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Pages lists the pages the user manages together with their linked
// Instagram business accounts.
func (c *Client) Pages(ctx context.Context, accessToken string) ([]Page, error) {
	var result struct {
		Data []Page `json:"data"`
	}
	err := c.get(ctx, "/me/accounts", map[string]string{
		"fields":       "id,name,access_token,instagram_business_account{id,username}",
		"access_token": accessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) PageToken(ctx context.Context, pageID, accessToken string) (string, error) {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := c.get(ctx, "/"+pageID, map[string]string{
		"fields":       "access_token",
		"access_token": accessToken,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("graph: no access token for page %s", pageID)
	}
	return result.AccessToken, nil
}

func (c *Client) PostToFeed(ctx context.Context, targetID, accessToken, message string, link string) (string, error) {
	body := map[string]string{
		"message":      message,
		"access_token": accessToken,
	}
	if link != "" {
		body["link"] = link
	}

	var result struct {
		ID string `json:"id"`
	}
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(body).
		SetResult(&result).
		SetError(&failure).
		Post("/" + targetID + "/feed")
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if resp.IsError() {
		return "", graphError(resp, failure)
	}
	if result.ID == "" {
		return "", errors.New("graph: no post id returned")
	}
	return result.ID, nil
}

func (c *Client) RevokePermissions(ctx context.Context, accessToken string) error {
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("access_token", accessToken).
		SetError(&failure).
		Delete("/me/permissions")
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if resp.IsError() {
		return graphError(resp, failure)
	}
	return nil
}

type tokenInfo struct {
	Data struct {
		AppID   string   `json:"app_id"`
		UserID  string   `json:"user_id"`
		IsValid bool     `json:"is_valid"`
		Scopes  []string `json:"scopes"`
	} `json:"data"`
}

func (c *Client) debugToken(ctx context.Context, accessToken string) (*tokenInfo, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	appToken := c.appToken
	c.mu.Unlock()

	var info tokenInfo
	err := c.get(ctx, "/debug_token", map[string]string{
		"input_token":  accessToken,
		"access_token": appToken,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) exchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := c.get(ctx, "/oauth/access_token", map[string]string{
		"client_id":     c.cfg.AppID,
		"client_secret": c.cfg.AppSecret,
		"redirect_uri":  redirectURI,
		"code":          code,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", errors.New("graph: empty user access token")
	}
	return result.AccessToken, nil
}
