package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdesk/internal/service"
)

// GetUserID returns the session user, or 0 for anonymous requests.
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(id, 10, 64)
	return userID
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrUnknownPlatform):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrValidationFailed),
		errors.Is(err, service.ErrPlatformUnsupported),
		errors.Is(err, service.ErrNoBusinessAccount):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrPlatformNotConnected):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrOAuthDenied):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrTokenExchangeFailed),
		errors.Is(err, service.ErrPublishFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, service.ErrSdkLoadTimeout):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
		return c.Status(status).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}
