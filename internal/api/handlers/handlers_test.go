package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialdesk/configs"
	"github.com/maheshrc27/socialdesk/internal/api/middleware"
	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/repository/repotest"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-key-0123456789abcdef"
	frontendURL = "https://web.example.com"
)

type nopScheduler struct{}

func (nopScheduler) Schedule(context.Context, int64, time.Time) error { return nil }
func (nopScheduler) Unschedule(context.Context, int64) error          { return nil }

type memStore struct{ objects map[string][]byte }

func (m *memStore) Put(_ context.Context, key string, body []byte, _ string) error {
	m.objects[key] = body
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type timeoutLoader struct{}

func (timeoutLoader) Load(context.Context) (service.GraphClient, error) {
	return nil, graph.ErrLoadTimeout
}

type testApp struct {
	app       *fiber.App
	store     *repotest.Store
	fn        *functions.Registry
	exchanges int
	cfg       config.Config
	token     string
	userID    int64
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	ta := &testApp{
		store: repotest.NewStore(),
		fn:    functions.NewRegistry(),
		cfg: config.Config{
			AppURL:      "https://api.example.com",
			FrontendURL: frontendURL,
			SecretKey:   testSecret,
			CookieName:  "session",
		},
	}
	ta.userID = ta.store.AddUser(models.User{Email: "jane@example.com", Name: "Jane"})

	token, err := utils.GenerateToken(testSecret, ta.userID, "jane@example.com", time.Hour)
	require.NoError(t, err)
	ta.token = token

	ta.fn.Register(functions.OAuth(platforms.Facebook), func(_ context.Context, payload json.RawMessage) (any, error) {
		ta.exchanges++
		var req functions.OAuthRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		if req.Code != "good" {
			return nil, errors.New("invalid code")
		}
		return functions.TokenResponse{AccessToken: "user-token", AccountID: "fb_1", AccountName: "Acme"}, nil
	})
	ta.fn.Register(functions.Publish(platforms.Facebook), func(context.Context, json.RawMessage) (any, error) {
		return functions.PublishResponse{ExternalPostID: "fb_post"}, nil
	})

	ps := service.NewPlatformService(ta.store.Platforms(), ta.fn)
	oauth := service.NewOAuthService(service.OAuthConfig{
		AppURL:    ta.cfg.AppURL,
		SecretKey: testSecret,
		ClientIDs: map[string]string{platforms.Facebook: "fb-client"},
	}, ta.fn, ps)
	sdk := service.NewSDKService(timeoutLoader{}, ps, oauth.RedirectURI)
	media := service.NewMediaService(&memStore{objects: map[string][]byte{}}, ta.store.Assets(), ta.store.PostMedia(), "https://media.example.com")
	publisher := service.NewPublisher(ta.fn, ta.store.Platforms(), ta.store.Posts(), ta.store.PostPlatforms(), media)
	posts := service.NewPostService(ta.store.Transactor(), ta.store.Posts(), ta.store.PostPlatforms(), ta.store.PostMedia(), ta.store.Platforms(), media, publisher, nopScheduler{})
	mentions := service.NewMentionService(ta.store.Platforms(), ta.store.Mentions())
	dashboard := service.NewDashboardService(ps, mentions, posts, oauth)

	auth := middleware.NewAuthMiddleware(testSecret, ta.cfg.CookieName)
	app := fiber.New()
	app.Use(auth.Session())

	NewAuthHandler(ta.cfg, service.NewAuthService(service.GoogleConfig{}, ta.store.Users())).Mount(app)
	dash := NewDashboardHandler(dashboard, frontendURL)
	dash.Mount(app)

	api := app.Group("/api")
	dash.MountAPI(api)
	api.Use(auth.RequireSession())
	NewUserHandler(service.NewUserService(ta.store.Users())).Mount(api)
	NewPlatformHandler(ps, oauth, sdk).Mount(api)
	NewPostHandler(posts).Mount(api)
	NewMentionHandler(mentions).Mount(api)
	NewMediaHandler(media).Mount(api)

	ta.app = app
	return ta
}

func (ta *testApp) do(t *testing.T, method, target string, body any, authed bool) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ta.send(t, req, authed)
}

func (ta *testApp) send(t *testing.T, req *http.Request, authed bool) (*http.Response, []byte) {
	t.Helper()
	if authed {
		req.AddCookie(&http.Cookie{Name: ta.cfg.CookieName, Value: ta.token})
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotAuthenticated, fiber.StatusUnauthorized},
		{fmt.Errorf("x: %w", service.ErrPostNotFound), fiber.StatusNotFound},
		{service.ErrEmptyReply, fiber.StatusBadRequest},
		{service.ErrPlatformUnsupported, fiber.StatusBadRequest},
		{service.ErrPlatformNotConnected, fiber.StatusConflict},
		{&service.PublishError{PlatformID: "facebook", Err: errors.New("boom")}, fiber.StatusBadGateway},
		{service.ErrSdkLoadTimeout, fiber.StatusGatewayTimeout},
		{errors.New("db down"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestPlatforms(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.do(t, http.MethodGet, "/api/platforms", nil, false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := ta.do(t, http.MethodGet, "/api/platforms", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []models.ConnectedPlatform
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 3)

	resp, body = ta.do(t, http.MethodGet, "/api/platforms/catalog", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var catalog []platforms.Entry
	require.NoError(t, json.Unmarshal(body, &catalog))
	require.Len(t, catalog, 5)
	assert.Equal(t, platforms.Facebook, catalog[0].ID)
	assert.True(t, catalog[0].Supported)
	assert.Equal(t, platforms.StatusComingSoon, catalog[3].Status)

	resp, _ = ta.do(t, http.MethodPost, "/api/platforms/twitter/connect", nil, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = ta.do(t, http.MethodPost, "/api/platforms/facebook/connect", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var res service.ConnectResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, service.ActionRedirect, res.Action)
	assert.Contains(t, res.URL, "client_id=fb-client")

	resp, _ = ta.do(t, http.MethodPost, "/api/platforms/facebook/sdk", map[string]string{"access_token": "t"}, true)
	assert.Equal(t, fiber.StatusGatewayTimeout, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/api/platforms/facebook", nil, true)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func (ta *testApp) state(t *testing.T, platformID string) string {
	t.Helper()
	state, err := utils.GenerateState(testSecret, ta.userID, platformID, time.Minute)
	require.NoError(t, err)
	return state
}

func TestOAuthReturn(t *testing.T) {
	ta := newTestApp(t)

	target := "/dashboard/social?connected=facebook&code=good&tab=mentions&state=" + url.QueryEscape(ta.state(t, platforms.Facebook))
	resp, _ := ta.do(t, http.MethodGet, target, nil, true)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "web.example.com", loc.Host)
	assert.Equal(t, "/dashboard/social", loc.Path)
	assert.Equal(t, url.Values{
		"oauth_result": {"success"},
		"platform":     {"facebook"},
		"tab":          {"mentions"},
	}, loc.Query())

	p, err := ta.store.Platforms().GetByPlatform(context.Background(), ta.userID, platforms.Facebook)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsConnected)

	resp, body := ta.do(t, http.MethodGet, "/api/platforms", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []models.ConnectedPlatform
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0].AccountName)
	assert.NotContains(t, string(body), "user-token")
}

func TestOAuthReturn_MissingState(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.do(t, http.MethodGet, "/dashboard/social?connected=facebook&code=good", nil, true)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "exchange_failed", loc.Query().Get("oauth_result"))
	assert.Zero(t, ta.exchanges)
	assert.Zero(t, ta.store.PlatformCount())
}

func TestOAuthReturn_Denied(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.do(t, http.MethodGet, "/dashboard/social?connected=facebook&code=good&error=access_denied&error_description=Nope", nil, true)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "user_denied", loc.Query().Get("oauth_result"))
	assert.Equal(t, "Nope", loc.Query().Get("message"))
	assert.Empty(t, loc.Query().Get("code"))
	assert.Zero(t, ta.exchanges)
	assert.Zero(t, ta.store.PlatformCount())
}

func TestOAuthReturn_NoCallback(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.do(t, http.MethodGet, "/dashboard/social", nil, false)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, frontendURL+"/dashboard/social", resp.Header.Get("Location"))
}

func TestDashboard(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.do(t, http.MethodGet, "/api/dashboard", nil, false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var state service.DashboardState
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Len(t, state.Platforms, 3)
	assert.Empty(t, state.Mentions)
	assert.Empty(t, state.ScheduledPosts)
}

func TestPosts(t *testing.T) {
	ta := newTestApp(t)
	_, err := ta.store.Platforms().Upsert(context.Background(), nil, &models.ConnectedPlatform{
		UserID: ta.userID, PlatformID: platforms.Facebook, AccessToken: "t", IsConnected: true,
	})
	require.NoError(t, err)

	resp, _ := ta.do(t, http.MethodPost, "/api/posts", map[string]any{"content": "hi", "mode": "now", "platforms": []string{}}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, ta.store.PostCount())

	resp, body := ta.do(t, http.MethodPost, "/api/posts", map[string]any{
		"title":     "Launch",
		"content":   "We are live",
		"mode":      "now",
		"platforms": []string{"facebook"},
	}, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, models.PostStatusPublished, post.Status)

	resp, _ = ta.do(t, http.MethodGet, fmt.Sprintf("/api/posts?id=%d", post.ID), nil, true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/api/posts/abc", nil, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/api/posts/999/publish", nil, true)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp, body = ta.do(t, http.MethodPost, "/api/posts", map[string]any{
		"content":       "later",
		"mode":          "schedule",
		"scheduled_for": at,
		"platforms":     []string{"all"},
	}, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	resp, body = ta.do(t, http.MethodGet, "/api/posts/scheduled", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var scheduled []models.Post
	require.NoError(t, json.Unmarshal(body, &scheduled))
	require.Len(t, scheduled, 1)

	resp, _ = ta.do(t, http.MethodPut, fmt.Sprintf("/api/posts/%d", scheduled[0].ID), map[string]any{"content": "later, edited"}, true)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", scheduled[0].ID), nil, true)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestMentions(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.do(t, http.MethodGet, "/api/mentions", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	resp, _ = ta.do(t, http.MethodPost, "/api/mentions/404/read", nil, true)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodPost, "/api/mentions/404/reply", map[string]string{"text": " "}, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMediaUpload(t *testing.T) {
	ta := newTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, body := ta.send(t, req, true)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var asset models.MediaAsset
	require.NoError(t, json.Unmarshal(body, &asset))
	assert.Equal(t, "image/png", asset.FileType)

	resp, _ = ta.do(t, http.MethodPost, "/api/media", nil, true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUserAndLogout(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.do(t, http.MethodGet, "/api/user/info", nil, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var user models.User
	require.NoError(t, json.Unmarshal(body, &user))
	assert.Equal(t, "jane@example.com", user.Email)

	resp, _ = ta.do(t, http.MethodPost, "/logout", nil, true)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodGet, "/login/callback?code=c&state=forged", nil, false)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
