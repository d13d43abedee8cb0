package functions

// NewLocal registers every provider function on a fresh registry.
func NewLocal(fb FacebookConfig, ig InstagramConfig, wp WordPressConfig) *Registry {
	r := NewRegistry()
	NewFacebook(fb).Register(r)
	NewInstagram(ig).Register(r)
	NewWordPress(wp).Register(r)
	return r
}
