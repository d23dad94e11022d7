package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/suggestion-box/internal/api/dto"
	"github.com/spec-kit/suggestion-box/internal/domain"
	"github.com/spec-kit/suggestion-box/internal/service"
	apperrors "github.com/spec-kit/suggestion-box/pkg/util/errorutil"
)

// SuggestionsHandler serves the student and admin suggestion endpoints.
type SuggestionsHandler struct {
	service *service.SuggestionService
}

// NewSuggestionsHandler constructs handler.
func NewSuggestionsHandler(suggestionService *service.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{service: suggestionService}
}

// Submit POST /api/suggestions.
func (h *SuggestionsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitSuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	suggestion, err := h.service.Submit(c.UserContext(), service.SubmitInput{
		Email:       req.Email,
		Category:    req.Category,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.SubmitSuggestionResponse{
		Message:        "Suggestion submitted successfully",
		DepartmentHead: suggestion.DepartmentHead,
	})
}

// ListForAdmin GET /api/admin/suggestions?email=.
func (h *SuggestionsHandler) ListForAdmin(c *fiber.Ctx) error {
	items, err := h.service.ListForAdmin(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// ViewForAdmin GET /api/admin/suggestions/view/:id.
func (h *SuggestionsHandler) ViewForAdmin(c *fiber.Ctx) error {
	suggestion, err := h.service.GetForAdmin(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(suggestion)
}

// ListForStudent GET /api/student/suggestions?email=.
func (h *SuggestionsHandler) ListForStudent(c *fiber.Ctx) error {
	items, err := h.service.ListForStudent(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// ViewForStudent GET /api/student/suggestions/view/:id?email=.
func (h *SuggestionsHandler) ViewForStudent(c *fiber.Ctx) error {
	suggestion, err := h.service.GetForStudent(c.UserContext(), c.Params("id"), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(suggestion)
}

// UpdateStatus PATCH /api/admin/suggestions/:id.
func (h *SuggestionsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return apperrors.NewValidationError("Invalid status", map[string]any{"status": req.Status})
	}
	suggestion, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), domain.SuggestionStatus(req.Status), req.UpdatedBy)
	if err != nil {
		return err
	}
	return c.JSON(suggestion)
}

// Delete DELETE /api/student/suggestions/:id.
func (h *SuggestionsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Deleted successfully"})
}
