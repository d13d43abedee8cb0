package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

type MentionHandler struct {
	s service.MentionService
}

func NewMentionHandler(service service.MentionService) *MentionHandler {
	return &MentionHandler{s: service}
}

func (h *MentionHandler) Mount(router fiber.Router) {
	router.Get("/mentions", h.ListMentions)
	router.Post("/mentions/:id/reply", h.Reply)
	router.Post("/mentions/:id/read", h.MarkRead)
}

func (h *MentionHandler) ListMentions(c *fiber.Ctx) error {
	mentions, err := h.s.Load(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(mentions)
}

func (h *MentionHandler) Reply(c *fiber.Ctx) error {
	mentionID, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid mention id")
	}

	var req transfer.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.s.Reply(c.Context(), GetUserID(c), mentionID, req.Text); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MentionHandler) MarkRead(c *fiber.Ctx) error {
	mentionID, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid mention id")
	}

	if err := h.s.MarkRead(c.Context(), GetUserID(c), mentionID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
