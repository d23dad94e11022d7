package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

type mongoSuggestionRepository struct {
	coll *mongo.Collection
}

// NewMongoSuggestionRepository stores suggestions as documents in coll.
func NewMongoSuggestionRepository(coll *mongo.Collection) SuggestionRepository {
	return &mongoSuggestionRepository{coll: coll}
}

func (r *mongoSuggestionRepository) Create(ctx context.Context, s *domain.Suggestion) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (r *mongoSuggestionRepository) GetByID(ctx context.Context, id string) (*domain.Suggestion, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var s domain.Suggestion
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find suggestion %s: %w", id, err)
	}
	return &s, nil
}

func (r *mongoSuggestionRepository) List(ctx context.Context, filter SuggestionFilter) ([]domain.Suggestion, error) {
	query := bson.M{}
	if filter.Email != nil {
		query["email"] = *filter.Email
	}
	if filter.DepartmentHead != nil {
		query["departmentHead"] = *filter.DepartmentHead
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, query, opts)
}

func (r *mongoSuggestionRepository) UpdateStatus(ctx context.Context, id string, status domain.SuggestionStatus, updatedBy string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updatedBy": updatedBy}},
	)
	if err != nil {
		return fmt.Errorf("update suggestion %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoSuggestionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete suggestion %s: %w", id, err)
	}
	return nil
}

func (r *mongoSuggestionRepository) ReassignDepartmentHead(ctx context.Context, category domain.Category, head string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"category": category, "departmentHead": bson.M{"$ne": head}},
		bson.M{"$set": bson.M{"departmentHead": head}},
	)
	if err != nil {
		return 0, fmt.Errorf("reassign %s suggestions: %w", category, err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoSuggestionRepository) ListStale(ctx context.Context, filter StaleFilter) ([]domain.Suggestion, error) {
	flag, err := alertFlagField(filter.Stage)
	if err != nil {
		return nil, err
	}
	query := bson.M{
		"status":    domain.StatusPending,
		flag:        false,
		"createdAt": bson.M{"$lte": filter.CreatedBefore},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, query, opts)
}

func (r *mongoSuggestionRepository) MarkAlerted(ctx context.Context, ids []string, stage domain.AlertStage) error {
	if len(ids) == 0 {
		return nil
	}
	flag, err := alertFlagField(stage)
	if err != nil {
		return err
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	set := bson.M{flag: true}
	if stage == domain.AlertSecondReminder {
		set["escalated"] = true
	}
	if _, err := r.coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("mark %s: %w", stage, err)
	}
	return nil
}

func (r *mongoSuggestionRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]domain.Suggestion, error) {
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find suggestions: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Suggestion, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}

func alertFlagField(stage domain.AlertStage) (string, error) {
	switch stage {
	case domain.AlertFirstReminder:
		return "hodAlert2Day", nil
	case domain.AlertSecondReminder:
		return "hodAlert4Day", nil
	}
	return "", fmt.Errorf("unknown alert stage %d", stage)
}
