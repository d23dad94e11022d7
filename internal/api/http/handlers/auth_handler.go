package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/suggestion-box/internal/api/dto"
	"github.com/spec-kit/suggestion-box/internal/service"
	apperrors "github.com/spec-kit/suggestion-box/pkg/util/errorutil"
)

// AuthHandler exchanges Google ID tokens for roles.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Google POST /api/auth/google.
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	var req dto.GoogleAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("No token provided.", nil)
	}
	identity, err := h.service.Authenticate(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(identity)
}
