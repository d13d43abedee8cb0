package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/maheshrc27/socialdesk/internal/models"
	"github.com/maheshrc27/socialdesk/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func googleStub(t *testing.T, profile googleUser) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"google-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAuth(srv *httptest.Server, store *repotest.Store) AuthService {
	s := NewAuthService(GoogleConfig{
		ClientID:     "google-client",
		ClientSecret: "google-secret",
		RedirectURI:  "https://app.example.com/login/callback",
	}, store.Users())
	as := s.(*authService)
	as.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	as.userInfoURL = srv.URL + "/userinfo"
	return s
}

func TestLoginURL(t *testing.T) {
	srv := googleStub(t, googleUser{})
	auth := newTestAuth(srv, repotest.NewStore())

	raw, err := auth.LoginURL("nonce-1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "google-client", q.Get("client_id"))
	assert.Equal(t, "nonce-1", q.Get("state"))
	assert.Equal(t, "https://app.example.com/login/callback", q.Get("redirect_uri"))
}

func TestLoginURLUnconfigured(t *testing.T) {
	auth := NewAuthService(GoogleConfig{}, repotest.NewStore().Users())
	_, err := auth.LoginURL("nonce-1")
	assert.Error(t, err)
}

func TestLoginCallbackCreatesUser(t *testing.T) {
	store := repotest.NewStore()
	srv := googleStub(t, googleUser{ID: "g-1", Email: "ana@example.com", Name: "Ana", Picture: "https://img/ana.png"})
	auth := newTestAuth(srv, store)

	user, err := auth.LoginCallback(context.Background(), "good-code")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "g-1", user.GoogleID)
	assert.Equal(t, "Ana", user.Name)

	again, err := auth.LoginCallback(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestLoginCallbackLinksExistingAccount(t *testing.T) {
	store := repotest.NewStore()
	id := store.AddUser(models.User{Email: "ana@example.com"})
	srv := googleStub(t, googleUser{ID: "g-1", Email: "ana@example.com", Name: "Ana"})
	auth := newTestAuth(srv, store)

	user, err := auth.LoginCallback(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "g-1", user.GoogleID)
	assert.Equal(t, "Ana", user.Name)
}

func TestLoginCallbackFailures(t *testing.T) {
	store := repotest.NewStore()
	srv := googleStub(t, googleUser{ID: "g-1"})
	auth := newTestAuth(srv, store)

	_, err := auth.LoginCallback(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = auth.LoginCallback(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)

	_, err = auth.LoginCallback(context.Background(), "good-code")
	assert.ErrorIs(t, err, ErrTokenExchangeFailed, "profile without email")
}
