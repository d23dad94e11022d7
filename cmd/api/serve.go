package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/suggestion-box/internal/api/http"
	"github.com/spec-kit/suggestion-box/internal/api/http/handlers"
	"github.com/spec-kit/suggestion-box/internal/auth"
	"github.com/spec-kit/suggestion-box/internal/escalation"
	"github.com/spec-kit/suggestion-box/internal/events"
	"github.com/spec-kit/suggestion-box/internal/service"
	"github.com/spec-kit/suggestion-box/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	directory := cfg.Directory()
	if cfg.Auth.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; every sign-in will be rejected")
	}
	if directory.Principal() == "" {
		logger.Warn("PRINCIPAL_EMAIL not set; no caller can list all suggestions")
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, a.notifier, logger.Named("notifications"))
	worker.StartNotificationWorker(notifications)

	authService := service.NewAuthService(auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID), directory, logger.Named("auth"))
	suggestionService := service.NewSuggestionService(service.SuggestionDependencies{
		Repo:       a.repo,
		Directory:  directory,
		Dispatcher: dispatcher,
		Logger:     logger.Named("suggestions"),
	})

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, a.metrics, cfg.App.RequestTimeout(), cfg.App.CORSAllowOrigins)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, a.pingers),
		Auth:        handlers.NewAuthHandler(authService),
		Suggestions: handlers.NewSuggestionsHandler(suggestionService),
		Gatherer:    a.registry,
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	var sweeper *escalation.Sweeper
	if cfg.Escalation.Enabled {
		sweeper = a.sweeper()
	} else {
		logger.Warn("escalation sweep disabled")
	}
	sweeps := worker.StartEscalationWorker(sweepCtx, sweeper)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(context.Cause(ctx)))
	case err = <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
	}

	stopSweep()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sweeps.Wait()
	notifications.Wait()
	return err
}
