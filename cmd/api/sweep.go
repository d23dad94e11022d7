package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func runSweep(parent context.Context) error {
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

	sweeper := a.sweeper()
	report, err := sweeper.RunOnce(ctx)
	sweeper.Wait()
	if err != nil {
		return err
	}
	for _, stage := range report.Stages {
		a.logger.Info("sweep stage finished",
			zap.String("stage", stage.Stage.String()),
			zap.Int("reminded", stage.Reminded),
			zap.Int("heads", stage.Heads),
			zap.Int("queued", stage.Queued))
	}
	return nil
}
