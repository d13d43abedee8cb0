package graph

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

var (
	ErrLoadTimeout  = errors.New("graph: sdk load timed out")
	ErrLoginFailed  = errors.New("graph: login failed")
	ErrScopeMissing = errors.New("graph: required scope not granted")
)

// Loader waits until the Graph client is usable.
type Loader struct {
	client   *Client
	timeout  time.Duration
	interval time.Duration
}

func NewLoader(client *Client, timeout, interval time.Duration) *Loader {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Loader{client: client, timeout: timeout, interval: interval}
}

// Load polls the client until it reports ready or the timeout elapses.
func (l *Loader) Load(ctx context.Context) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		err := l.client.Ready(ctx)
		if err == nil {
			return l.client, nil
		}
		slog.Info(err.Error())

		select {
		case <-ctx.Done():
			return nil, ErrLoadTimeout
		case <-ticker.C:
		}
	}
}

type LoginStatus struct {
	Connected   bool
	AccessToken string
	UserID      string
	Scopes      []string
}

// Session is the login state of one browser session, carried to the server
// as the token and/or code produced by the JavaScript SDK.
type Session interface {
	LoginStatus(ctx context.Context) (*LoginStatus, error)
	Login(ctx context.Context, scopes []string) (*LoginStatus, error)
}

type session struct {
	client      *Client
	accessToken string
	code        string
	redirectURI string
}

func (c *Client) Session(accessToken, code, redirectURI string) Session {
	return &session{client: c, accessToken: accessToken, code: code, redirectURI: redirectURI}
}

func (s *session) LoginStatus(ctx context.Context) (*LoginStatus, error) {
	if s.accessToken == "" {
		return &LoginStatus{}, nil
	}

	info, err := s.client.debugToken(ctx, s.accessToken)
	if err != nil {
		return nil, err
	}
	if !info.Data.IsValid || (info.Data.AppID != "" && info.Data.AppID != s.client.cfg.AppID) {
		return &LoginStatus{}, nil
	}

	return &LoginStatus{
		Connected:   true,
		AccessToken: s.accessToken,
		UserID:      info.Data.UserID,
		Scopes:      info.Data.Scopes,
	}, nil
}

func (s *session) Login(ctx context.Context, scopes []string) (*LoginStatus, error) {
	if s.code == "" {
		return nil, ErrLoginFailed
	}

	token, err := s.client.exchangeCode(ctx, s.code, s.redirectURI)
	if err != nil {
		slog.Info(err.Error())
		return nil, ErrLoginFailed
	}
	s.accessToken = token

	status, err := s.LoginStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Connected {
		return nil, ErrLoginFailed
	}
	for _, scope := range scopes {
		if len(status.Scopes) > 0 && !slices.Contains(status.Scopes, scope) {
			return nil, ErrScopeMissing
		}
	}
	return status, nil
}
