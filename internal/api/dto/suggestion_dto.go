package dto

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags on a request payload.
func Validate(v any) error {
	return validate.Struct(v)
}

// GoogleAuthRequest payload.
type GoogleAuthRequest struct {
	Token string `json:"token"`
}

// SubmitSuggestionRequest payload.
type SubmitSuggestionRequest struct {
	Email       string `json:"email"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SubmitSuggestionResponse acknowledges a stored suggestion.
type SubmitSuggestionResponse struct {
	Message        string `json:"message"`
	DepartmentHead string `json:"departmentHead"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status    string `json:"status" validate:"required,oneof=pending in-progress resolved invalid"`
	UpdatedBy string `json:"updatedBy"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
