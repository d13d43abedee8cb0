package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("grant_type") == "client_credentials":
			writeJSON(w, http.StatusOK, map[string]string{"access_token": "app-token"})
		case q.Get("code") == "good-code":
			writeJSON(w, http.StatusOK, map[string]string{"access_token": "user-token"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "invalid code", "code": 100}})
		}
	})
	mux.HandleFunc("/v19.0/debug_token", func(w http.ResponseWriter, r *http.Request) {
		valid := r.URL.Query().Get("input_token") == "user-token"
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"app_id":   "app",
			"user_id":  "u1",
			"is_valid": valid,
			"scopes":   []string{"public_profile", "pages_show_list"},
		}})
	})
	mux.HandleFunc("/v19.0/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "u1", "name": "Ada"})
	})
	mux.HandleFunc("/v19.0/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": "p1", "name": "Page One"},
			{"id": "p2", "name": "Page Two", "instagram_business_account": map[string]string{"id": "ig1"}},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientPagesAndMe(t *testing.T) {
	srv := newGraphServer(t)
	c := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Version: "v19.0"})

	me, err := c.Me(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	pages, err := c.Pages(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Nil(t, pages[0].InstagramBusinessAccount)
	require.NotNil(t, pages[1].InstagramBusinessAccount)
	assert.Equal(t, "ig1", pages[1].InstagramBusinessAccount.ID)
}

func TestSessionReusesValidToken(t *testing.T) {
	srv := newGraphServer(t)
	c := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Version: "v19.0"})

	status, err := c.Session("user-token", "", "").LoginStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "u1", status.UserID)

	status, err = c.Session("stale-token", "", "").LoginStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestSessionLogin(t *testing.T) {
	srv := newGraphServer(t)
	c := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Version: "v19.0"})

	status, err := c.Session("", "good-code", "https://app/cb").Login(context.Background(), []string{"pages_show_list"})
	require.NoError(t, err)
	assert.Equal(t, "user-token", status.AccessToken)

	_, err = c.Session("", "bad-code", "https://app/cb").Login(context.Background(), nil)
	assert.ErrorIs(t, err, ErrLoginFailed)

	_, err = c.Session("", "good-code", "https://app/cb").Login(context.Background(), []string{"pages_manage_posts"})
	assert.ErrorIs(t, err, ErrScopeMissing)
}

func TestLoaderTimesOut(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: srv.URL})
	_, err := NewLoader(c, 80*time.Millisecond, 10*time.Millisecond).Load(context.Background())
	assert.ErrorIs(t, err, ErrLoadTimeout)
	assert.Greater(t, calls.Load(), int32(1))
}

func TestLoaderReady(t *testing.T) {
	srv := newGraphServer(t)
	c := NewClient(Config{AppID: "app", AppSecret: "secret", BaseURL: srv.URL, Version: "v19.0"})

	got, err := NewLoader(c, time.Second, 10*time.Millisecond).Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, got)
}
