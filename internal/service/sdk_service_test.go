package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/maheshrc27/socialdesk/internal/functions"
	"github.com/maheshrc27/socialdesk/internal/functions/graph"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSDK(e *testEnv, loader GraphLoader) SDKService {
	return NewSDKService(loader, e.platforms, e.oauth.RedirectURI)
}

func TestSDKService_ConnectFacebook(t *testing.T) {
	e := newTestEnv(t)
	client := &fakeGraph{
		session: &fakeSession{status: &graph.LoginStatus{Connected: true, AccessToken: "sdk-token"}},
		user:    &graph.User{ID: "u_1", Name: "Jane"},
		pages:   []graph.Page{{ID: "p_1", Name: "Acme", AccessToken: "page-token"}},
	}

	p, err := newSDK(e, &fakeLoader{client: client}).Connect(context.Background(), 1, platforms.Facebook, &transfer.SDKConnectRequest{AccessToken: "sdk-token"})
	require.NoError(t, err)

	assert.Equal(t, "sdk-token", p.AccessToken)
	assert.Equal(t, "u_1", p.AccountID)
	assert.Equal(t, "Jane", p.AccountName)
	assert.Equal(t, functions.ConnectedViaFacebook, p.Metadata.String("connected_via"))
	assert.Nil(t, client.session.scopes)
}

func TestSDKService_LoginWhenNotConnected(t *testing.T) {
	e := newTestEnv(t)
	client := &fakeGraph{
		session: &fakeSession{login: &graph.LoginStatus{Connected: true, AccessToken: "exchanged"}},
		user:    &graph.User{ID: "u_1", Name: "Jane"},
	}

	p, err := newSDK(e, &fakeLoader{client: client}).Connect(context.Background(), 1, platforms.Facebook, &transfer.SDKConnectRequest{Code: "sdk-code"})
	require.NoError(t, err)
	assert.Equal(t, "exchanged", p.AccessToken)
	assert.Equal(t, sdkScopes[platforms.Facebook], client.session.scopes)
}

func TestSDKService_LoginFailed(t *testing.T) {
	e := newTestEnv(t)
	client := &fakeGraph{session: &fakeSession{loginErr: graph.ErrLoginFailed}}

	_, err := newSDK(e, &fakeLoader{client: client}).Connect(context.Background(), 1, platforms.Facebook, &transfer.SDKConnectRequest{Code: "c"})
	assert.ErrorIs(t, err, ErrTokenExchangeFailed)
	assert.Zero(t, e.store.PlatformCount())
}

func TestSDKService_LoadTimeout(t *testing.T) {
	e := newTestEnv(t)
	loader := &fakeLoader{err: fmt.Errorf("load: %w", graph.ErrLoadTimeout)}

	_, err := newSDK(e, loader).Connect(context.Background(), 1, platforms.Facebook, &transfer.SDKConnectRequest{AccessToken: "t"})
	assert.ErrorIs(t, err, ErrSdkLoadTimeout)
	assert.Zero(t, e.store.PlatformCount())
}

func TestSDKService_Instagram(t *testing.T) {
	e := newTestEnv(t)
	client := &fakeGraph{
		session: &fakeSession{status: &graph.LoginStatus{Connected: true, AccessToken: "sdk-token"}},
		user:    &graph.User{ID: "u_1", Name: "Jane"},
		pages: []graph.Page{
			{ID: "p_1", Name: "No IG"},
			{ID: "p_2", Name: "Acme", InstagramBusinessAccount: &graph.BusinessAccount{ID: "ig_9", Username: "acme"}},
		},
	}

	p, err := newSDK(e, &fakeLoader{client: client}).Connect(context.Background(), 1, platforms.Instagram, &transfer.SDKConnectRequest{AccessToken: "sdk-token"})
	require.NoError(t, err)
	assert.Equal(t, platforms.Instagram, p.PlatformID)
	assert.Equal(t, "ig_9", p.AccountID)
	assert.Equal(t, "acme", p.AccountName)
	assert.Equal(t, "p_2", p.Metadata.String("page_id"))
	assert.Equal(t, functions.ConnectedViaFacebook, p.Metadata.String("connected_via"))
}

func TestSDKService_NoBusinessAccount(t *testing.T) {
	e := newTestEnv(t)
	client := &fakeGraph{
		session: &fakeSession{status: &graph.LoginStatus{Connected: true, AccessToken: "sdk-token"}},
		user:    &graph.User{ID: "u_1"},
		pages:   []graph.Page{{ID: "p_1", Name: "No IG"}},
	}

	_, err := newSDK(e, &fakeLoader{client: client}).Connect(context.Background(), 1, platforms.Instagram, &transfer.SDKConnectRequest{AccessToken: "sdk-token"})
	assert.ErrorIs(t, err, ErrNoBusinessAccount)
	assert.Zero(t, e.store.PlatformCount())
}

func TestSDKService_Rejects(t *testing.T) {
	e := newTestEnv(t)
	sdk := newSDK(e, &fakeLoader{client: &fakeGraph{}})
	ctx := context.Background()

	_, err := sdk.Connect(ctx, 1, platforms.WordPress, &transfer.SDKConnectRequest{AccessToken: "t"})
	assert.ErrorIs(t, err, ErrPlatformUnsupported)

	_, err = sdk.Connect(ctx, 0, platforms.Facebook, &transfer.SDKConnectRequest{AccessToken: "t"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = sdk.Connect(ctx, 1, platforms.Facebook, &transfer.SDKConnectRequest{})
	assert.ErrorIs(t, err, ErrValidationFailed)
}
