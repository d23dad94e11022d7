package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var templates = template.Must(
	template.New("mail").Funcs(sprig.TxtFuncMap()).ParseFS(templateFiles, "templates/*.tmpl"),
)

var subjects = template.Must(template.New("subjects").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"ordinal": ordinal}).
	Parse(`
{{- define "submitted" }}New Suggestion: {{ .Title }}{{ end }}
{{- define "status" }}Suggestion Status Update: {{ upper .Status }}{{ end }}
{{- define "reminder" }}Reminder: Pending Suggestions ({{ ordinal .Days }} day){{ end }}
`))

type suggestionView struct {
	Category    string
	Title       string
	Description string
	Email       string
	Status      string
	UpdatedBy   string
	CreatedAt   time.Time
}

func viewOf(s domain.Suggestion) suggestionView {
	return suggestionView{
		Category:    string(s.Category),
		Title:       s.Title,
		Description: s.Description,
		Email:       s.Email,
		Status:      string(s.Status),
		UpdatedBy:   s.UpdatedBy,
		CreatedAt:   s.CreatedAt.Local(),
	}
}

type reminderView struct {
	Days       int
	TimeLayout string
	Items      []suggestionView
}

// SubmittedMessage tells a department head about a new suggestion.
func SubmittedMessage(to string, s domain.Suggestion) (Message, error) {
	return build(to, "submitted", "submitted.tmpl", viewOf(s))
}

// StatusMessage tells the submitter their suggestion was closed. Only
// resolved and invalid produce a message.
func StatusMessage(s domain.Suggestion) (Message, error) {
	if !s.Status.Final() {
		return Message{}, fmt.Errorf("no status message for %q", s.Status)
	}
	return build(s.Email, "status", "status.tmpl", viewOf(s))
}

// ReminderMessage batches items pending for days into one email to a head.
func ReminderMessage(to string, days int, items []domain.Suggestion) (Message, error) {
	view := reminderView{Days: days, TimeLayout: time.RFC1123, Items: make([]suggestionView, 0, len(items))}
	for _, s := range items {
		view.Items = append(view.Items, viewOf(s))
	}
	return build(to, "reminder", "reminder.tmpl", view)
}

func build(to, subjectName, bodyName string, data any) (Message, error) {
	var subject, body bytes.Buffer
	if err := subjects.ExecuteTemplate(&subject, subjectName, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", subjectName, err)
	}
	if err := templates.ExecuteTemplate(&body, bodyName, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", bodyName, err)
	}
	return Message{
		To:      []string{to},
		Subject: subject.String(),
		Body:    strings.TrimRight(body.String(), "\n"),
	}, nil
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
