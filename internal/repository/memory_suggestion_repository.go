package repository

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

type memorySuggestionRepository struct {
	mu   sync.RWMutex
	data map[primitive.ObjectID]domain.Suggestion
}

// NewMemorySuggestionRepository returns a process-local store used for
// development and tests.
func NewMemorySuggestionRepository() SuggestionRepository {
	return &memorySuggestionRepository{data: make(map[primitive.ObjectID]domain.Suggestion)}
}

func (r *memorySuggestionRepository) Create(_ context.Context, s *domain.Suggestion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.data[s.ID] = *s
	return nil
}

func (r *memorySuggestionRepository) GetByID(_ context.Context, id string) (*domain.Suggestion, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memorySuggestionRepository) List(_ context.Context, filter SuggestionFilter) ([]domain.Suggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Suggestion, 0)
	for _, s := range r.data {
		if filter.Email != nil && s.Email != *filter.Email {
			continue
		}
		if filter.DepartmentHead != nil && s.DepartmentHead != *filter.DepartmentHead {
			continue
		}
		out = append(out, s)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *memorySuggestionRepository) UpdateStatus(_ context.Context, id string, status domain.SuggestionStatus, updatedBy string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[oid]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedBy = updatedBy
	r.data[oid] = s
	return nil
}

func (r *memorySuggestionRepository) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, oid)
	return nil
}

func (r *memorySuggestionRepository) ReassignDepartmentHead(_ context.Context, category domain.Category, head string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.data {
		if s.Category == category && s.DepartmentHead != head {
			s.DepartmentHead = head
			r.data[id] = s
			n++
		}
	}
	return n, nil
}

func (r *memorySuggestionRepository) ListStale(_ context.Context, filter StaleFilter) ([]domain.Suggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Suggestion, 0)
	for _, s := range r.data {
		if s.Status != domain.StatusPending || s.Alerted(filter.Stage) || s.CreatedAt.After(filter.CreatedBefore) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memorySuggestionRepository) MarkAlerted(_ context.Context, ids []string, stage domain.AlertStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		s, ok := r.data[oid]
		if !ok {
			continue
		}
		s.MarkAlerted(stage)
		r.data[oid] = s
	}
	return nil
}

func sortNewestFirst(items []domain.Suggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.Hex() > items[j].ID.Hex()
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
