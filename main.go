package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MarlyH/CorpsAPI-sub000/internal/app"
	"github.com/MarlyH/CorpsAPI-sub000/internal/handler"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/config"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, app.Options{ServiceName: cfg.App.Name, WithRedis: true})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()

	appLog := rt.Log
	appLog.Info("starting booking engine",
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.App.Storage),
	)

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := handler.RouterConfig{
		Auth:           middleware.AuthConfig{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer},
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Tracing:        cfg.OTel.Enabled,
	}
	if rt.Container.Redis != nil {
		routerCfg.Redis = rt.Container.Redis
	}
	router := handler.NewRouter(rt.Container.Handlers, routerCfg, appLog)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rt.RunWorkers(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLog.Error("booking engine stopped with error", zap.Error(err))
		return
	}
	appLog.Info("booking engine exited gracefully")
}
