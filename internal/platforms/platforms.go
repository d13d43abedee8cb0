// Package platforms holds static metadata about the social platforms a user
// can connect: display names, documentation links, OAuth scopes and
// authorization URL templates. Lookups only, no state.
package platforms

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/maheshrc27/socialdesk/internal/models"
)

const (
	Facebook  = "facebook"
	Instagram = "instagram"
	WordPress = "wordpress"
	Twitter   = "twitter"
	LinkedIn  = "linkedin"
)

// All is the pseudo target that expands to every connected platform.
const All = "all"

type Status string

const (
	StatusAvailable  Status = "available"
	StatusComingSoon Status = "coming_soon"
)

type Method string

const (
	// MethodOAuth builds the authorization URL locally and redirects.
	MethodOAuth Method = "oauth"
	// MethodServerAssisted asks a server function for the URL.
	MethodServerAssisted Method = "server_assisted"
)

type Platform struct {
	ID          string
	Name        string
	Icon        string
	DocsURL     string
	Status      Status
	Method      Method
	AuthBaseURL string
	Scopes      []string
	// ScopeSeparator joins Scopes in the authorization URL.
	ScopeSeparator string
	// SDKLogin marks platforms that can also connect through the Facebook SDK.
	SDKLogin bool
}

var registry = map[string]Platform{
	Facebook: {
		ID:             Facebook,
		Name:           "Facebook",
		Icon:           "facebook",
		DocsURL:        "https://developers.facebook.com/docs/facebook-login/",
		Status:         StatusAvailable,
		Method:         MethodOAuth,
		AuthBaseURL:    "https://www.facebook.com/v19.0/dialog/oauth",
		Scopes:         []string{"public_profile", "email", "pages_show_list", "pages_read_engagement", "pages_manage_posts"},
		ScopeSeparator: ",",
		SDKLogin:       true,
	},
	Instagram: {
		ID:             Instagram,
		Name:           "Instagram",
		Icon:           "instagram",
		DocsURL:        "https://developers.facebook.com/docs/instagram-platform/",
		Status:         StatusAvailable,
		Method:         MethodOAuth,
		AuthBaseURL:    "https://www.instagram.com/oauth/authorize",
		Scopes:         []string{"instagram_business_basic", "instagram_business_content_publish", "instagram_business_manage_comments"},
		ScopeSeparator: ",",
		SDKLogin:       true,
	},
	WordPress: {
		ID:             WordPress,
		Name:           "WordPress",
		Icon:           "wordpress",
		DocsURL:        "https://developer.wordpress.com/docs/oauth2/",
		Status:         StatusAvailable,
		Method:         MethodServerAssisted,
		AuthBaseURL:    "https://public-api.wordpress.com/oauth2/authorize",
		Scopes:         []string{"posts", "sites"},
		ScopeSeparator: " ",
	},
	Twitter: {
		ID:      Twitter,
		Name:    "Twitter",
		Icon:    "twitter",
		DocsURL: "https://developer.x.com/en/docs/authentication/oauth-2-0",
		Status:  StatusComingSoon,
		Method:  MethodOAuth,
	},
	LinkedIn: {
		ID:      LinkedIn,
		Name:    "LinkedIn",
		Icon:    "linkedin",
		DocsURL: "https://learn.microsoft.com/en-us/linkedin/shared/authentication/authorization-code-flow",
		Status:  StatusComingSoon,
		Method:  MethodOAuth,
	},
}

var order = []string{Facebook, Instagram, WordPress, Twitter, LinkedIn}

// Lookup returns the metadata for id.
func Lookup(id string) (Platform, bool) {
	p, ok := registry[strings.ToLower(id)]
	return p, ok
}

// List returns every known platform in display order.
func List() []Platform {
	out := make([]Platform, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// IsSupported reports whether id is known and not coming soon.
func IsSupported(id string) bool {
	p, ok := Lookup(id)
	return ok && p.Status == StatusAvailable
}

// Entry is the public view of a registry platform.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	DocsURL   string `json:"docs_url"`
	Status    Status `json:"status"`
	Method    Method `json:"method"`
	Supported bool   `json:"supported"`
	SDKLogin  bool   `json:"sdk_login"`
}

// Catalog lists every platform, connectable or not, in display order.
func Catalog() []Entry {
	list := List()
	out := make([]Entry, 0, len(list))
	for _, p := range list {
		out = append(out, Entry{
			ID:        p.ID,
			Name:      p.Name,
			Icon:      p.Icon,
			DocsURL:   p.DocsURL,
			Status:    p.Status,
			Method:    p.Method,
			Supported: IsSupported(p.ID),
			SDKLogin:  p.SDKLogin,
		})
	}
	return out
}

// AuthURL builds the provider authorization URL for the authorization code flow.
func AuthURL(id, clientID, redirectURI, state string) (string, error) {
	p, ok := Lookup(id)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", id)
	}
	if p.AuthBaseURL == "" {
		return "", fmt.Errorf("platform %q has no authorization endpoint", id)
	}

	params := url.Values{}
	params.Add("client_id", clientID)
	params.Add("redirect_uri", redirectURI)
	params.Add("scope", strings.Join(p.Scopes, p.ScopeSeparator))
	params.Add("response_type", "code")
	if state != "" {
		params.Add("state", state)
	}

	return fmt.Sprintf("%s?%s", p.AuthBaseURL, params.Encode()), nil
}

// Defaults is the unconnected set shown before a user connects anything.
func Defaults() []*models.ConnectedPlatform {
	ids := []string{Facebook, Instagram, WordPress}
	out := make([]*models.ConnectedPlatform, 0, len(ids))
	for _, id := range ids {
		p := registry[id]
		out = append(out, &models.ConnectedPlatform{
			PlatformID:    p.ID,
			Name:          p.Name,
			Icon:          p.Icon,
			IsConnected:   false,
			SyncFrequency: models.SyncDaily,
			Notifications: models.Notifications{Mentions: true, Messages: true},
		})
	}
	return out
}
