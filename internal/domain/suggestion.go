package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuggestionStatus enumerates review states for a suggestion.
type SuggestionStatus string

const (
	StatusPending    SuggestionStatus = "pending"
	StatusInProgress SuggestionStatus = "in-progress"
	StatusResolved   SuggestionStatus = "resolved"
	StatusInvalid    SuggestionStatus = "invalid"
)

// Valid reports whether s is one of the known statuses.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusInvalid:
		return true
	}
	return false
}

// Final reports whether the status closes the suggestion and notifies the submitter.
func (s SuggestionStatus) Final() bool {
	return s == StatusResolved || s == StatusInvalid
}

// Suggestion is the single stored entity.
type Suggestion struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email          string             `bson:"email" json:"email"`
	Category       Category           `bson:"category" json:"category"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description" json:"description"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	DepartmentHead string             `bson:"departmentHead" json:"departmentHead"`
	Status         SuggestionStatus   `bson:"status" json:"status"`
	UpdatedBy      string             `bson:"updatedBy" json:"updatedBy"`
	HODAlert2Day   bool               `bson:"hodAlert2Day" json:"hodAlert2Day"`
	HODAlert4Day   bool               `bson:"hodAlert4Day" json:"hodAlert4Day"`
	Escalated      bool               `bson:"escalated" json:"escalated"`
}

// NewSuggestion builds a pending suggestion assigned to head.
func NewSuggestion(email string, category Category, title, description, head string, now time.Time) *Suggestion {
	return &Suggestion{
		Email:          email,
		Category:       category,
		Title:          title,
		Description:    description,
		CreatedAt:      now.UTC(),
		DepartmentHead: head,
		Status:         StatusPending,
	}
}

// AlertStage identifies one of the escalation reminders.
type AlertStage int

const (
	// AlertFirstReminder guards hodAlert2Day.
	AlertFirstReminder AlertStage = iota + 1
	// AlertSecondReminder guards hodAlert4Day and sets escalated.
	AlertSecondReminder
)

func (s AlertStage) String() string {
	switch s {
	case AlertFirstReminder:
		return "first_reminder"
	case AlertSecondReminder:
		return "second_reminder"
	}
	return "unknown"
}

// Alerted reports whether the stage flag is already set on s.
func (s *Suggestion) Alerted(stage AlertStage) bool {
	switch stage {
	case AlertFirstReminder:
		return s.HODAlert2Day
	case AlertSecondReminder:
		return s.HODAlert4Day
	}
	return false
}

// MarkAlerted sets the stage flag. Flags never go back to false.
func (s *Suggestion) MarkAlerted(stage AlertStage) {
	switch stage {
	case AlertFirstReminder:
		s.HODAlert2Day = true
	case AlertSecondReminder:
		s.HODAlert4Day = true
		s.Escalated = true
	}
}
