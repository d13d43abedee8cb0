package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdesk/internal/service"
	"github.com/maheshrc27/socialdesk/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) Mount(router fiber.Router) {
	router.Get("/posts", h.ListPosts)
	router.Get("/posts/scheduled", h.ListScheduled)
	router.Post("/posts", h.CreatePost)
	router.Put("/posts/:id", h.UpdatePost)
	router.Delete("/posts/:id", h.RemovePost)
	router.Post("/posts/:id/publish", h.PublishPost)
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.CreatePost(c.Context(), GetUserID(c), &pc)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), userId, int64(postId))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(posts)
}

func (h *PostHandler) ListScheduled(c *fiber.Ctx) error {
	posts, err := h.s.ListScheduled(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(posts)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	postID, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	var pu transfer.PostUpdate
	if err := c.BodyParser(&pu); err != nil {
		return badRequest(c, "Invalid request body")
	}

	post, err := h.s.Edit(c.Context(), GetUserID(c), postID, &pu)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	if err := h.s.Cancel(c.Context(), GetUserID(c), postID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	postID, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid post id")
	}

	post, err := h.s.Publish(c.Context(), GetUserID(c), postID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(post)
}
