package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/transfer"
	"github.com/maheshrc27/socialdesk/pkg/utils"
)

const stateTTL = 15 * time.Minute

// CallbackPath is where providers send the browser back after consent.
const CallbackPath = "/dashboard/social"

type ConnectAction string

const (
	ActionRedirect      ConnectAction = "redirect"
	ActionManualConnect ConnectAction = "manual_connect"
)

type ConnectResult struct {
	Action     ConnectAction `json:"action"`
	PlatformID string        `json:"platform"`
	URL        string        `json:"url,omitempty"`
}

type CallbackOutcome string

const (
	OutcomeSuccess        CallbackOutcome = "success"
	OutcomeAuthMissing    CallbackOutcome = "auth_missing"
	OutcomeExchangeFailed CallbackOutcome = "exchange_failed"
	OutcomeUserDenied     CallbackOutcome = "user_denied"
)

// CallbackParams are the query parameters a provider appends to the
// redirect URI.
type CallbackParams struct {
	PlatformID       string
	Code             string
	State            string
	Error            string
	ErrorReason      string
	ErrorDescription string
}

// CallbackKeys are stripped from the URL once a callback is processed.
var CallbackKeys = []string{"code", "error", "error_reason", "error_description", "state", "connected"}

func ParseCallback(q url.Values) CallbackParams {
	return CallbackParams{
		PlatformID:       q.Get("connected"),
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorReason:      q.Get("error_reason"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Present reports whether the parameters describe a provider callback.
func (p CallbackParams) Present() bool {
	return p.Code != "" || p.Error != ""
}

// StripCallback removes the callback parameters from q.
func StripCallback(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = v
	}
	for _, k := range CallbackKeys {
		out.Del(k)
	}
	return out
}

type CallbackResult struct {
	Outcome    CallbackOutcome           `json:"outcome"`
	PlatformID string                    `json:"platform"`
	Message    string                    `json:"message,omitempty"`
	Platform   *models.ConnectedPlatform `json:"connected_platform,omitempty"`
}

type OAuthConfig struct {
	AppURL    string
	SecretKey string
	// ClientIDs holds the OAuth client id of each platform that builds its
	// authorization URL locally.
	ClientIDs map[string]string
}

type OAuthService interface {
	Connect(ctx context.Context, userID int64, platformID string) (*ConnectResult, error)
	HandleCallback(ctx context.Context, userID int64, platformID, code string) (*models.ConnectedPlatform, error)
	ConnectSelfHosted(ctx context.Context, userID int64, creds *transfer.SelfHostedCredentials) (*models.ConnectedPlatform, error)
	Complete(ctx context.Context, userID int64, params CallbackParams) CallbackResult
	RedirectURI(platformID string) string
}

type oauthService struct {
	cfg OAuthConfig
	fn  functions.Invoker
	ps  PlatformService
}

func NewOAuthService(cfg OAuthConfig, fn functions.Invoker, ps PlatformService) OAuthService {
	return &oauthService{
		cfg: cfg,
		fn:  fn,
		ps:  ps,
	}
}

// RedirectURI is identical for the authorization request and the token
// exchange of a platform.
func (s *oauthService) RedirectURI(platformID string) string {
	return fmt.Sprintf("%s%s?connected=%s", s.cfg.AppURL, CallbackPath, url.QueryEscape(platformID))
}

func lookupAvailable(platformID string) (platforms.Platform, error) {
	p, ok := platforms.Lookup(platformID)
	if !ok {
		return p, ErrUnknownPlatform
	}
	if p.Status != platforms.StatusAvailable {
		return p, ErrPlatformUnsupported
	}
	return p, nil
}

func (s *oauthService) Connect(ctx context.Context, userID int64, platformID string) (*ConnectResult, error) {
	p, err := lookupAvailable(platformID)
	if err != nil {
		slog.Info(err.Error(), "platform", platformID)
		return nil, err
	}
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}

	state, err := utils.GenerateState(s.cfg.SecretKey, userID, p.ID, stateTTL)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	redirectURI := s.RedirectURI(p.ID)

	if p.Method == platforms.MethodServerAssisted {
		var res functions.WordPressConnectResponse
		err := s.fn.Invoke(ctx, functions.ConnectWordPress, functions.WordPressConnectRequest{
			RedirectURI: redirectURI,
			State:       state,
		}, &res)
		if err != nil {
			return nil, fmt.Errorf("start %s connection: %w", p.ID, err)
		}

		switch {
		case res.NeedsManualCredentials:
			return &ConnectResult{Action: ActionManualConnect, PlatformID: p.ID}, nil
		case res.AuthURL != "":
			return &ConnectResult{Action: ActionRedirect, PlatformID: p.ID, URL: res.AuthURL}, nil
		default:
			return nil, fmt.Errorf("start %s connection: no authorization url returned", p.ID)
		}
	}

	clientID := s.cfg.ClientIDs[p.ID]
	if clientID == "" {
		return nil, fmt.Errorf("%s client id is not configured", p.ID)
	}

	authURL, err := platforms.AuthURL(p.ID, clientID, redirectURI, state)
	if err != nil {
		return nil, err
	}
	return &ConnectResult{Action: ActionRedirect, PlatformID: p.ID, URL: authURL}, nil
}

// HandleCallback exchanges an authorization code and stores the connection.
// Nothing is written when the exchange fails.
func (s *oauthService) HandleCallback(ctx context.Context, userID int64, platformID, code string) (*models.ConnectedPlatform, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	p, err := lookupAvailable(platformID)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, validationError("authorization code is missing")
	}

	var token functions.TokenResponse
	err = s.fn.Invoke(ctx, functions.OAuth(p.ID), functions.OAuthRequest{
		Code:        code,
		RedirectURI: s.RedirectURI(p.ID),
	}, &token)
	if err != nil {
		slog.Info(err.Error(), "platform", p.ID)
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token returned", ErrTokenExchangeFailed)
	}

	return s.ps.Save(ctx, userID, p.ID, &token)
}

func (s *oauthService) ConnectSelfHosted(ctx context.Context, userID int64, creds *transfer.SelfHostedCredentials) (*models.ConnectedPlatform, error) {
	if userID == 0 {
		return nil, ErrNotAuthenticated
	}
	if creds == nil {
		return nil, validationError("credentials are required")
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var token functions.TokenResponse
	err := s.fn.Invoke(ctx, functions.ConnectWordPressSelfHosted, functions.SelfHostedRequest{
		SiteURL:             creds.SiteURL,
		Username:            creds.Username,
		ApplicationPassword: creds.ApplicationPassword,
	}, &token)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}

	return s.ps.Save(ctx, userID, platforms.WordPress, &token)
}

// Complete processes a provider callback once. Provider errors take
// precedence over a code, in which case no exchange is attempted.
func (s *oauthService) Complete(ctx context.Context, userID int64, params CallbackParams) CallbackResult {
	res := CallbackResult{PlatformID: params.PlatformID}

	if params.Error != "" {
		res.Outcome = OutcomeUserDenied
		res.Message = params.ErrorDescription
		if res.Message == "" {
			res.Message = params.ErrorReason
		}
		if res.Message == "" {
			res.Message = ErrOAuthDenied.Error()
		}
		slog.Info("oauth denied", "platform", params.PlatformID, "error", params.Error, "reason", params.ErrorReason)
		return res
	}

	if userID == 0 {
		res.Outcome = OutcomeAuthMissing
		res.Message = ErrNotAuthenticated.Error()
		return res
	}

	// Server assisted connections may come back without our state.
	switch {
	case params.State != "":
		claims, err := utils.ValidateState(s.cfg.SecretKey, params.State)
		if err != nil || claims.UserID != userID || (params.PlatformID != "" && claims.PlatformID != params.PlatformID) {
			res.Outcome = OutcomeExchangeFailed
			res.Message = "invalid state"
			return res
		}
		res.PlatformID = claims.PlatformID
	case requiresState(params.PlatformID):
		slog.Info("oauth callback without state", "platform", params.PlatformID)
		res.Outcome = OutcomeExchangeFailed
		res.Message = "missing state"
		return res
	}

	p, err := s.HandleCallback(ctx, userID, res.PlatformID, params.Code)
	if err != nil {
		res.Outcome = ClassifyCallbackError(err)
		res.Message = err.Error()
		return res
	}

	res.Outcome = OutcomeSuccess
	res.Platform = p
	return res
}

func requiresState(platformID string) bool {
	p, ok := platforms.Lookup(platformID)
	return ok && p.Method == platforms.MethodOAuth
}

func ClassifyCallbackError(err error) CallbackOutcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotAuthenticated):
		return OutcomeAuthMissing
	case errors.Is(err, ErrOAuthDenied):
		return OutcomeUserDenied
	default:
		return OutcomeExchangeFailed
	}
}
