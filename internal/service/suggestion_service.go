package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/domain"
	"github.com/spec-kit/suggestion-box/internal/events"
	"github.com/spec-kit/suggestion-box/internal/repository"
	apperrors "github.com/spec-kit/suggestion-box/pkg/util/errorutil"
)

// SuggestionService coordinates suggestion workflows.
type SuggestionService struct {
	repo       repository.SuggestionRepository
	directory  *domain.Directory
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SuggestionDependencies bundles collaborators for the suggestion service.
type SuggestionDependencies struct {
	Repo       repository.SuggestionRepository
	Directory  *domain.Directory
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// SubmitInput describes a new suggestion.
type SubmitInput struct {
	Email       string
	Category    string
	Title       string
	Description string
}

// NewSuggestionService constructs the service.
func NewSuggestionService(deps SuggestionDependencies) *SuggestionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{
		repo:       deps.Repo,
		directory:  deps.Directory,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Submit stores a pending suggestion routed to its department head and
// notifies the head.
func (s *SuggestionService) Submit(ctx context.Context, input SubmitInput) (*domain.Suggestion, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, apperrors.NewValidationError("Email required", nil)
	}
	category := domain.Category(strings.TrimSpace(input.Category))
	head, ok := s.directory.HeadFor(category)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid category", map[string]any{"category": input.Category})
	}

	suggestion := domain.NewSuggestion(email, category, input.Title, input.Description, head, s.now())
	if err := s.repo.Create(ctx, suggestion); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventSuggestionSubmitted, suggestion.ID.Hex(), email,
		events.SuggestionSubmittedPayload{Suggestion: *suggestion}))
	return suggestion, nil
}

// ListForAdmin returns every suggestion to the principal and the
// department's suggestions to a head. Before listing for a head, records of
// the categories they head are re-stamped with their address so a changed
// assignment takes over older records.
func (s *SuggestionService) ListForAdmin(ctx context.Context, email string) ([]domain.Suggestion, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewUnauthorized("Unauthorized")
	}
	if s.directory.IsPrincipal(email) {
		return s.repo.List(ctx, repository.SuggestionFilter{})
	}

	categories := s.directory.CategoriesHeadedBy(email)
	if len(categories) == 0 {
		return nil, apperrors.NewUnauthorized("Unauthorized")
	}
	for _, category := range categories {
		n, err := s.repo.ReassignDepartmentHead(ctx, category, email)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			s.logger.Info("reassigned suggestions",
				zap.String("category", string(category)),
				zap.String("department_head", email),
				zap.Int64("count", n))
		}
	}
	return s.repo.List(ctx, repository.ByDepartmentHead(email))
}

// ListForStudent returns the suggestions submitted from email.
func (s *SuggestionService) ListForStudent(ctx context.Context, email string) ([]domain.Suggestion, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return []domain.Suggestion{}, nil
	}
	return s.repo.List(ctx, repository.ByEmail(email))
}

// GetForAdmin loads a suggestion by id.
func (s *SuggestionService) GetForAdmin(ctx context.Context, id string) (*domain.Suggestion, error) {
	suggestion, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Not found")
	}
	return suggestion, nil
}

// GetForStudent loads a suggestion submitted from email.
func (s *SuggestionService) GetForStudent(ctx context.Context, id, email string) (*domain.Suggestion, error) {
	suggestion, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Not found")
	}
	if suggestion.Email != strings.TrimSpace(email) {
		return nil, apperrors.NewUnauthorized("Unauthorized")
	}
	return suggestion, nil
}

// UpdateStatus records a review decision. Closing statuses notify the
// submitter.
func (s *SuggestionService) UpdateStatus(ctx context.Context, id string, status domain.SuggestionStatus, updatedBy string) (*domain.Suggestion, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("Invalid status", map[string]any{"status": string(status)})
	}

	suggestion, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Suggestion not found")
	}
	if err := s.repo.UpdateStatus(ctx, id, status, updatedBy); err != nil {
		return nil, notFound(err, "Suggestion not found")
	}

	previous := suggestion.Status
	suggestion.Status = status
	suggestion.UpdatedBy = updatedBy

	s.publish(ctx, events.NewEvent(events.EventSuggestionStatusChanged, id, updatedBy,
		events.SuggestionStatusChangedPayload{OldStatus: previous, NewStatus: status, Suggestion: *suggestion}))
	return suggestion, nil
}

// Delete removes a suggestion. Unknown ids are not an error.
func (s *SuggestionService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *SuggestionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("suggestion_id", event.SuggestionID),
			zap.Error(err))
	}
}

// notFound replaces a store miss with a 404 carrying message.
func notFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewDomainError("NOT_FOUND", message, http.StatusNotFound, nil)
	}
	return err
}
