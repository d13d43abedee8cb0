package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdesk/internal/platforms"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

type PlatformHandler struct {
	ps    service.PlatformService
	oauth service.OAuthService
	sdk   service.SDKService
}

func NewPlatformHandler(ps service.PlatformService, oauth service.OAuthService, sdk service.SDKService) *PlatformHandler {
	return &PlatformHandler{
		ps:    ps,
		oauth: oauth,
		sdk:   sdk,
	}
}

func (h *PlatformHandler) Mount(router fiber.Router) {
	router.Get("/platforms", h.ListPlatforms)
	router.Get("/platforms/catalog", h.Catalog)
	router.Post("/platforms/wordpress/self-hosted", h.ConnectSelfHosted)
	router.Post("/platforms/:platform/connect", h.Connect)
	router.Post("/platforms/:platform/callback", h.Callback)
	router.Post("/platforms/:platform/sdk", h.ConnectSDK)
	router.Patch("/platforms/:platform/settings", h.UpdateSettings)
	router.Delete("/platforms/:platform", h.Disconnect)
}

func (h *PlatformHandler) ListPlatforms(c *fiber.Ctx) error {
	return c.JSON(h.ps.List(c.Context(), GetUserID(c)))
}

// Catalog lists every known platform with its support status.
func (h *PlatformHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(platforms.Catalog())
}

func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	res, err := h.oauth.Connect(c.Context(), GetUserID(c), c.Params("platform"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(res)
}

func callbackStatus(outcome service.CallbackOutcome) int {
	switch outcome {
	case service.OutcomeSuccess:
		return fiber.StatusOK
	case service.OutcomeAuthMissing:
		return fiber.StatusUnauthorized
	case service.OutcomeUserDenied:
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadGateway
	}
}

// Callback completes a connection for clients that captured the provider
// redirect themselves.
func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	var req transfer.CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	res := h.oauth.Complete(c.Context(), GetUserID(c), service.CallbackParams{
		PlatformID: c.Params("platform"),
		Code:       req.Code,
		State:      req.State,
	})
	return c.Status(callbackStatus(res.Outcome)).JSON(res)
}

func (h *PlatformHandler) ConnectSelfHosted(c *fiber.Ctx) error {
	var creds transfer.SelfHostedCredentials
	if err := c.BodyParser(&creds); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.oauth.ConnectSelfHosted(c.Context(), GetUserID(c), &creds)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PlatformHandler) ConnectSDK(c *fiber.Ctx) error {
	var req transfer.SDKConnectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.sdk.Connect(c.Context(), GetUserID(c), c.Params("platform"), &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PlatformHandler) UpdateSettings(c *fiber.Ctx) error {
	var update transfer.PlatformSettingsUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.ps.UpdateSettings(c.Context(), GetUserID(c), c.Params("platform"), &update)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(p)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.ps.Disconnect(c.Context(), GetUserID(c), c.Params("platform")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
