package repository

import (
	"context"
	"time"

	"github.com/spec-kit/suggestion-box/internal/domain"
	apperrors "github.com/spec-kit/suggestion-box/pkg/util/errorutil"
)

// ErrNotFound is returned when no suggestion matches the given id.
var ErrNotFound = apperrors.ErrNotFound

// SuggestionFilter narrows List. Nil fields are ignored; results are
// always ordered newest first.
type SuggestionFilter struct {
	Email          *string
	DepartmentHead *string
}

// StaleFilter selects pending suggestions due for a reminder stage.
type StaleFilter struct {
	Stage         domain.AlertStage
	CreatedBefore time.Time
}

// SuggestionRepository encapsulates suggestion persistence.
type SuggestionRepository interface {
	Create(ctx context.Context, s *domain.Suggestion) error
	GetByID(ctx context.Context, id string) (*domain.Suggestion, error)
	List(ctx context.Context, filter SuggestionFilter) ([]domain.Suggestion, error)
	UpdateStatus(ctx context.Context, id string, status domain.SuggestionStatus, updatedBy string) error
	Delete(ctx context.Context, id string) error
	// ReassignDepartmentHead stamps head on every suggestion of category
	// whose departmentHead differs, returning the number changed.
	ReassignDepartmentHead(ctx context.Context, category domain.Category, head string) (int64, error)
	// ListStale returns pending suggestions created at or before
	// filter.CreatedBefore whose stage flag is still false.
	ListStale(ctx context.Context, filter StaleFilter) ([]domain.Suggestion, error)
	// MarkAlerted sets the stage flag on ids.
	MarkAlerted(ctx context.Context, ids []string, stage domain.AlertStage) error
}

func stringPtr(s string) *string { return &s }

// ByEmail filters on the submitter address.
func ByEmail(email string) SuggestionFilter {
	return SuggestionFilter{Email: stringPtr(email)}
}

// ByDepartmentHead filters on the responsible reviewer.
func ByDepartmentHead(head string) SuggestionFilter {
	return SuggestionFilter{DepartmentHead: stringPtr(head)}
}
