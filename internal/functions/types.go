package functions

import "strconv"

// ConnectedViaFacebook marks Instagram accounts linked through a Facebook page.
const ConnectedViaFacebook = "facebook_sdk"

type OAuthRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// TokenResponse is what every connect function returns on success.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresIn    int64          `json:"expires_in,omitempty"`
	AccountID    string         `json:"account_id,omitempty"`
	AccountName  string         `json:"account_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type PublishRequest struct {
	PostID      int64          `json:"post_id"`
	Title       string         `json:"title,omitempty"`
	Content     string         `json:"content"`
	AccessToken string         `json:"access_token"`
	AccountID   string         `json:"account_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	MediaURLs   []string       `json:"media_urls,omitempty"`
}

type PublishResponse struct {
	ExternalPostID string `json:"external_post_id"`
	URL            string `json:"url,omitempty"`
}

type RevokeRequest struct {
	AccessToken string         `json:"access_token"`
	AccountID   string         `json:"account_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type WordPressConnectRequest struct {
	RedirectURI string `json:"redirect_uri"`
	State       string `json:"state,omitempty"`
}

type WordPressConnectResponse struct {
	AuthURL                string `json:"auth_url,omitempty"`
	NeedsManualCredentials bool   `json:"needs_manual_credentials,omitempty"`
}

type SelfHostedRequest struct {
	SiteURL             string `json:"site_url"`
	Username            string `json:"username"`
	ApplicationPassword string `json:"application_password"`
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
