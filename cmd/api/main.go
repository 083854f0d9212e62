package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bakery-quotes/api/controllers"
	"github.com/angelmondragon/bakery-quotes/api/middleware"
	"github.com/angelmondragon/bakery-quotes/api/routes"
	"github.com/angelmondragon/bakery-quotes/internal/app"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logg, app.Options{})
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap api", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	deps := routes.Deps{
		Quotes:    application.Quotes,
		Materials: application.Materials,
		Intake:    application.Intake,
		Checks: map[string]controllers.Pinger{
			"db":  application.DB,
			"bom": application.BOM,
		},
		Gatherer:    application.Registry,
		RateCounter: middleware.NewMemoryCounter(),
	}
	if application.Redis != nil {
		deps.Checks["redis"] = application.Redis
		deps.Idempotency = application.Redis
		deps.RateCounter = application.Redis
	} else {
		deps.Checks["redis"] = nil
	}
	if application.GCS != nil {
		deps.Checks["gcs"] = application.GCS
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"db_driver": cfg.DB.Driver,
		"redis":     application.Redis != nil,
		"documents": cfg.Documents.Backend,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
