package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

const suggestionColumns = `id, email, category, title, description, created_at, department_head,
               status, updated_by, hod_alert_2day, hod_alert_4day, escalated`

type postgresSuggestionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSuggestionRepository stores suggestions in the suggestions table.
func NewPostgresSuggestionRepository(pool *pgxpool.Pool) SuggestionRepository {
	return &postgresSuggestionRepository{pool: pool}
}

func (r *postgresSuggestionRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	const query = `
        INSERT INTO suggestions (` + suggestionColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		s.ID.Hex(),
		s.Email,
		s.Category,
		s.Title,
		s.Description,
		s.CreatedAt,
		s.DepartmentHead,
		s.Status,
		s.UpdatedBy,
		s.HODAlert2Day,
		s.HODAlert4Day,
		s.Escalated,
	)
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (r *postgresSuggestionRepository) GetByID(ctx context.Context, id string) (*domain.Suggestion, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, ErrNotFound
	}
	const query = `SELECT ` + suggestionColumns + ` FROM suggestions WHERE id=$1`
	s, err := scanSuggestion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find suggestion %s: %w", id, err)
	}
	return s, nil
}

func (r *postgresSuggestionRepository) List(ctx context.Context, filter SuggestionFilter) ([]domain.Suggestion, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Email != nil {
		args = append(args, *filter.Email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	if filter.DepartmentHead != nil {
		args = append(args, *filter.DepartmentHead)
		clauses = append(clauses, fmt.Sprintf("department_head=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM suggestions WHERE %s ORDER BY created_at DESC, id DESC`,
		suggestionColumns, strings.Join(clauses, " AND "))
	return r.query(ctx, query, args...)
}

func (r *postgresSuggestionRepository) UpdateStatus(ctx context.Context, id string, status domain.SuggestionStatus, updatedBy string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE suggestions SET status=$1, updated_by=$2 WHERE id=$3`, status, updatedBy, id)
	if err != nil {
		return fmt.Errorf("update suggestion %s: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresSuggestionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM suggestions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete suggestion %s: %w", id, err)
	}
	return nil
}

func (r *postgresSuggestionRepository) ReassignDepartmentHead(ctx context.Context, category domain.Category, head string) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE suggestions SET department_head=$1 WHERE category=$2 AND department_head IS DISTINCT FROM $1`,
		head, category)
	if err != nil {
		return 0, fmt.Errorf("reassign %s suggestions: %w", category, err)
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresSuggestionRepository) ListStale(ctx context.Context, filter StaleFilter) ([]domain.Suggestion, error) {
	column, err := alertFlagColumn(filter.Stage)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM suggestions
        WHERE status=$1 AND %s = FALSE AND created_at <= $2
        ORDER BY created_at ASC`, suggestionColumns, column)
	return r.query(ctx, query, domain.StatusPending, filter.CreatedBefore)
}

func (r *postgresSuggestionRepository) MarkAlerted(ctx context.Context, ids []string, stage domain.AlertStage) error {
	if len(ids) == 0 {
		return nil
	}
	column, err := alertFlagColumn(stage)
	if err != nil {
		return err
	}
	set := column + " = TRUE"
	if stage == domain.AlertSecondReminder {
		set += ", escalated = TRUE"
	}
	query := fmt.Sprintf(`UPDATE suggestions SET %s WHERE id = ANY($1)`, set)
	if _, err := r.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("mark %s: %w", stage, err)
	}
	return nil
}

func (r *postgresSuggestionRepository) query(ctx context.Context, query string, args ...any) ([]domain.Suggestion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Suggestion, 0)
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSuggestion(row pgx.Row) (*domain.Suggestion, error) {
	var (
		s  domain.Suggestion
		id string
	)
	if err := row.Scan(
		&id,
		&s.Email,
		&s.Category,
		&s.Title,
		&s.Description,
		&s.CreatedAt,
		&s.DepartmentHead,
		&s.Status,
		&s.UpdatedBy,
		&s.HODAlert2Day,
		&s.HODAlert4Day,
		&s.Escalated,
	); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("decode suggestion id %q: %w", id, err)
	}
	s.ID = oid
	return &s, nil
}

func alertFlagColumn(stage domain.AlertStage) (string, error) {
	switch stage {
	case domain.AlertFirstReminder:
		return "hod_alert_2day", nil
	case domain.AlertSecondReminder:
		return "hod_alert_4day", nil
	}
	return "", fmt.Errorf("unknown alert stage %d", stage)
}
