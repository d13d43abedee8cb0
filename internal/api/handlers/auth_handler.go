package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialdesk/configs"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/pkg/utils"
)

const (
	loginStateCookie = "login_state"
	sessionDuration  = 24 * time.Hour
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

func (h *AuthHandler) Mount(router fiber.Router) {
	router.Get("/login", h.Login)
	router.Get("/login/callback", h.LoginCallbackHandler)
	router.Post("/logout", h.Logout)
}

func (h *AuthHandler) secure() bool {
	return strings.HasPrefix(h.cfg.AppURL, "https://")
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.Nonce(16)
	if err != nil {
		return errorResponse(c, err)
	}

	authURL, err := h.s.LoginURL(state)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     loginStateCookie,
		Value:    state,
		HTTPOnly: true,
		Secure:   h.secure(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/login",
		Expires:  time.Now().Add(10 * time.Minute),
	})
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(loginStateCookie) {
		return badRequest(c, "Invalid login state")
	}
	c.ClearCookie(loginStateCookie)

	user, err := h.s.LoginCallback(c.Context(), c.Query("code"))
	if err != nil {
		slog.Info(err.Error())
		return errorResponse(c, err)
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, user.ID, user.Email, sessionDuration)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.secure(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(sessionDuration),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusNoContent)
}
