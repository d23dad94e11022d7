package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/suggestion-box/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Suggestions *handlers.SuggestionsHandler
	// Gatherer, when set, is exposed on /metrics.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Post("/auth/google", cfg.Auth.Google)
	api.Post("/suggestions", cfg.Suggestions.Submit)

	admin := api.Group("/admin/suggestions")
	admin.Get("/", cfg.Suggestions.ListForAdmin)
	admin.Get("/view/:id", cfg.Suggestions.ViewForAdmin)
	admin.Patch("/:id", cfg.Suggestions.UpdateStatus)

	student := api.Group("/student/suggestions")
	student.Get("/", cfg.Suggestions.ListForStudent)
	student.Get("/view/:id", cfg.Suggestions.ViewForStudent)
	student.Delete("/:id", cfg.Suggestions.Delete)
}

// NewApp builds the fiber app. Errors are rendered by the error middleware.
// Context values are immutable because route params end up in events that
// outlive the request.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		Immutable:             true,
	})
}
