package platforms

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{Facebook, true},
		{Instagram, true},
		{WordPress, true},
		{"FACEBOOK", true},
		{Twitter, false},
		{LinkedIn, false},
		{"myspace", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.id))
		})
	}
}

func TestAuthURL(t *testing.T) {
	raw, err := AuthURL(Facebook, "app-1", "https://app.example.com/dashboard/social?connected=facebook", "st")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", u.Host)

	q := u.Query()
	assert.Equal(t, "app-1", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/dashboard/social?connected=facebook", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "pages_manage_posts")
}

func TestAuthURL_NoEndpoint(t *testing.T) {
	_, err := AuthURL(Twitter, "id", "https://x", "")
	assert.Error(t, err)

	_, err = AuthURL("unknown", "id", "https://x", "")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	require.Len(t, defaults, 3)

	ids := []string{}
	for _, p := range defaults {
		assert.False(t, p.IsConnected)
		ids = append(ids, p.PlatformID)
	}
	assert.Equal(t, []string{Facebook, Instagram, WordPress}, ids)
}

func TestList_Order(t *testing.T) {
	list := List()
	require.Len(t, list, 5)
	assert.Equal(t, Facebook, list[0].ID)
	assert.Equal(t, LinkedIn, list[4].ID)
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 5)

	byID := map[string]Entry{}
	for _, e := range catalog {
		byID[e.ID] = e
	}

	assert.True(t, byID[Facebook].Supported)
	assert.True(t, byID[Facebook].SDKLogin)
	assert.Equal(t, MethodServerAssisted, byID[WordPress].Method)
	assert.NotEmpty(t, byID[WordPress].DocsURL)
	assert.False(t, byID[Twitter].Supported)
	assert.Equal(t, StatusComingSoon, byID[LinkedIn].Status)
	assert.Equal(t, "LinkedIn", byID[LinkedIn].Name)
}
