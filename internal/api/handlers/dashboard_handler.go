package handlers

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdesk/internal/service"
)

type DashboardHandler struct {
	s           service.DashboardService
	frontendURL string
}

func NewDashboardHandler(service service.DashboardService, frontendURL string) *DashboardHandler {
	return &DashboardHandler{s: service, frontendURL: frontendURL}
}

// Mount registers the provider return route on the app root.
func (h *DashboardHandler) Mount(router fiber.Router) {
	router.Get(service.CallbackPath, h.OAuthReturn)
}

// MountAPI registers the dashboard state route, which also serves
// anonymous visitors.
func (h *DashboardHandler) MountAPI(router fiber.Router) {
	router.Get("/dashboard", h.GetDashboard)
}

func query(c *fiber.Ctx) url.Values {
	q, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	return q
}

// OAuthReturn processes a provider callback once and sends the browser to
// the frontend dashboard with the callback parameters removed.
func (h *DashboardHandler) OAuthReturn(c *fiber.Ctx) error {
	q := query(c)
	next := service.StripCallback(q)

	if params := service.ParseCallback(q); params.Present() {
		res := h.s.DrainCallback(c.Context(), GetUserID(c), q)
		next.Set("oauth_result", string(res.Outcome))
		if res.PlatformID != "" {
			next.Set("platform", res.PlatformID)
		}
		if res.Outcome != service.OutcomeSuccess && res.Message != "" {
			next.Set("message", res.Message)
		}
	}

	target := h.frontendURL + service.CallbackPath
	if len(next) > 0 {
		target += "?" + next.Encode()
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	q := query(c)
	mentionID, _ := strconv.ParseInt(q.Get("mention"), 10, 64)
	postID, _ := strconv.ParseInt(q.Get("post"), 10, 64)

	state, err := h.s.Load(c.Context(), GetUserID(c), service.DashboardQuery{
		PlatformID: q.Get("platform"),
		MentionID:  mentionID,
		PostID:     postID,
		Callback:   service.ParseCallback(q),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(state)
}
