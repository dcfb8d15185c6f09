// Command lifecycle-worker runs the scheduled sweeps and the notification
// relay without serving HTTP.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/app"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// this process exists to run the sweeps
	cfg.Scheduler.Enabled = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, app.Options{ServiceName: cfg.App.Name + "-lifecycle"})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()

	rt.Log.Info("lifecycle worker started",
		zap.Duration("release_interval", cfg.Scheduler.ReleaseInterval),
		zap.Bool("outbox_relay", rt.Container.OutboxWorker != nil),
	)

	if err := rt.RunWorkers(ctx); err != nil {
		rt.Log.Error("lifecycle worker stopped with error", zap.Error(err))
		return
	}
	rt.Log.Info("lifecycle worker exited gracefully")
}
