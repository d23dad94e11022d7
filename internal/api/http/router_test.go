package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/api/http/handlers"
	"github.com/spec-kit/suggestion-box/internal/auth"
	"github.com/spec-kit/suggestion-box/internal/domain"
	"github.com/spec-kit/suggestion-box/internal/events"
	"github.com/spec-kit/suggestion-box/internal/notify/notifytest"
	"github.com/spec-kit/suggestion-box/internal/observability"
	"github.com/spec-kit/suggestion-box/internal/repository"
	"github.com/spec-kit/suggestion-box/internal/service"
)

const (
	principal = "principal@school.edu"
	techHead  = "tech@school.edu"
	student   = "student@school.edu"
)

type tokenTable map[string]string

func (t tokenTable) VerifyEmail(_ context.Context, token string) (string, error) {
	if email, ok := t[token]; ok {
		if email == "" {
			return "", auth.ErrEmailMissing
		}
		return email, nil
	}
	return "", auth.ErrInvalidToken
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	app           *fiber.App
	repo          repository.SuggestionRepository
	mail          *notifytest.Recorder
	dispatcher    events.Dispatcher
	notifications *service.NotificationService
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	directory := domain.NewDirectory(principal, map[domain.Category]string{
		domain.CategoryTechnology: techHead,
		domain.CategorySafety:     "safety@school.edu",
	})
	repo := repository.NewMemorySuggestionRepository()
	mail := &notifytest.Recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, mail, logger)
	notifications.RegisterHandlers()

	suggestions := service.NewSuggestionService(service.SuggestionDependencies{
		Repo:       repo,
		Directory:  directory,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(tokenTable{
		"principal-token": principal,
		"tech-token":      techHead,
		"student-token":   student,
		"no-email-token":  "",
	}, directory, logger)

	app := NewApp("suggestion-box-test")
	RegisterMiddlewares(app, logger, metrics, 5*time.Second, "*")
	RegisterRoutes(app, RouteConfig{
		Health:      handlers.NewHealthHandler("suggestion-box", "test", deps),
		Auth:        handlers.NewAuthHandler(authService),
		Suggestions: handlers.NewSuggestionsHandler(suggestions),
		Gatherer:    reg,
	})
	return &testServer{app: app, repo: repo, mail: mail, dispatcher: dispatcher, notifications: notifications}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestGoogleAuthRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "tech-token"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"email":"tech@school.edu","isAdmin":true,"isPrincipal":false,"department":"Technology"}`, string(body))

	status, body = srv.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "principal-token"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"email":"principal@school.edu","isAdmin":true,"isPrincipal":true,"department":"Principal"}`, string(body))

	status, body = srv.do(t, http.MethodPost, "/api/auth/google", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No token provided.", decode[map[string]string](t, body)["error"])

	status, body = srv.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "forged"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token.", decode[map[string]string](t, body)["error"])

	status, body = srv.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "no-email-token"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Email not found.", decode[map[string]string](t, body)["error"])
}

func TestSuggestionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodPost, "/api/suggestions", map[string]string{
		"email": student, "category": "technology", "title": "Wifi", "description": "drops hourly",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.JSONEq(t, `{"message":"Suggestion submitted successfully","departmentHead":"tech@school.edu"}`, string(body))
	srv.notifications.Wait()
	require.Len(t, srv.mail.To(techHead), 1)

	status, body = srv.do(t, http.MethodGet, "/api/student/suggestions?email="+student, nil)
	require.Equal(t, http.StatusOK, status)
	mine := decode[[]map[string]any](t, body)
	require.Len(t, mine, 1)
	id := mine[0]["_id"].(string)
	assert.Equal(t, "pending", mine[0]["status"])
	assert.Equal(t, false, mine[0]["hodAlert2Day"])

	status, body = srv.do(t, http.MethodGet, "/api/admin/suggestions?email="+techHead, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, body), 1)

	status, _ = srv.do(t, http.MethodGet, "/api/admin/suggestions?email=safety@school.edu", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodGet, "/api/admin/suggestions/view/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Wifi", decode[map[string]any](t, body)["title"])

	status, _ = srv.do(t, http.MethodGet, "/api/student/suggestions/view/"+id+"?email="+student, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodGet, "/api/student/suggestions/view/"+id+"?email=other@school.edu", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Unauthorized","code":"UNAUTHORIZED"}`, string(body))

	status, body = srv.do(t, http.MethodPatch, "/api/admin/suggestions/"+id, map[string]string{"status": "resolved", "updatedBy": "Technology HOD"})
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decode[map[string]any](t, body)
	assert.Equal(t, "resolved", updated["status"])
	assert.Equal(t, "Technology HOD", updated["updatedBy"])
	srv.notifications.Wait()
	require.Len(t, srv.mail.To(student), 1)
	assert.Equal(t, "Suggestion Status Update: RESOLVED", srv.mail.To(student)[0].Subject)

	status, body = srv.do(t, http.MethodDelete, "/api/student/suggestions/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Deleted successfully"}`, string(body))

	status, _ = srv.do(t, http.MethodDelete, "/api/student/suggestions/"+id, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = srv.do(t, http.MethodGet, "/api/admin/suggestions/view/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Not found","code":"NOT_FOUND"}`, string(body))
}

func TestStatusEventKeepsRouteID(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.True(t, srv.app.Config().Immutable)

	var (
		mu  sync.Mutex
		got []events.Event
	)
	srv.dispatcher.Subscribe(events.EventSuggestionStatusChanged, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	s := domain.NewSuggestion(student, domain.CategoryTechnology, "Wifi", "d", techHead, time.Now())
	require.NoError(t, srv.repo.Create(context.Background(), s))
	id := s.ID.Hex()

	status, body := srv.do(t, http.MethodPatch, "/api/admin/suggestions/"+id, map[string]string{"status": "in-progress", "updatedBy": "HOD"})
	require.Equal(t, http.StatusOK, status, string(body))

	for i := 0; i < 5; i++ {
		srv.do(t, http.MethodGet, "/api/admin/suggestions/view/ffffffffffffffffffffffff", nil)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].SuggestionID)
}

func TestSuggestionErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodPost, "/api/suggestions", map[string]string{"email": student, "category": "cafeteria", "title": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Invalid category","code":"VALIDATION_FAILED"}`, string(body))

	status, body = srv.do(t, http.MethodPost, "/api/suggestions", map[string]string{"category": "technology", "title": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email required", decode[map[string]string](t, body)["error"])

	status, _ = srv.do(t, http.MethodGet, "/api/admin/suggestions", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = srv.do(t, http.MethodGet, "/api/admin/suggestions?email="+student, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = srv.do(t, http.MethodGet, "/api/student/suggestions", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = srv.do(t, http.MethodPatch, "/api/admin/suggestions/64b7f0c2a1b2c3d4e5f60718", map[string]string{"status": "closed"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid status", decode[map[string]string](t, body)["error"])

	status, body = srv.do(t, http.MethodPatch, "/api/admin/suggestions/64b7f0c2a1b2c3d4e5f60718", map[string]string{"status": "invalid"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Suggestion not found", decode[map[string]string](t, body)["error"])

	status, _ = srv.do(t, http.MethodGet, "/api/student/suggestions/view/not-an-id?email="+student, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.do(t, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[map[string]string](t, body)["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", decode[map[string]any](t, body)["status"])

	status, _ = srv.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)

	srv.do(t, http.MethodGet, "/api/student/suggestions?email="+student, nil)
	status, body = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `suggestionbox_http_requests_total{method="GET",path="/api/student/suggestions`)

	down := newTestServer(t, map[string]handlers.Pinger{"store": failingPinger{}})
	status, body = down.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), "connection refused")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/suggestions", nil)
	req.Header.Set("Origin", "https://portal.school.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
