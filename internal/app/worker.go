package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/instance"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/migrate"
	"github.com/angelmondragon/bakery-quotes/pkg/pubsub"
	"github.com/angelmondragon/bakery-quotes/pkg/redis"
)

// Worker is the runtime shared by the background binaries.
type Worker struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	closers []func() error
}

// NewWorker loads .env and configuration and builds a logger stamped with the
// environment and replica id.
func NewWorker(name string) (*Worker, error) {
	bootLog := logger.New(logger.Options{ServiceName: name})
	if err := godotenv.Load(); err != nil {
		bootLog.Debug(context.Background(), "no .env file, using the environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "config.load_failed", err)
		return nil, err
	}
	return &Worker{Name: name, Config: cfg, Logger: WorkerLogger(name, cfg)}, nil
}

// WorkerLogger builds the configured logger for a worker binary.
func WorkerLogger(name string, cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields: map[string]any{
			"env":      cfg.App.Env,
			"instance": instance.ID(cfg.App.WorkerID),
		},
	})
}

// Defer registers fn to run on Close. Closers run last-registered first.
func (w *Worker) Defer(fn func() error) {
	if fn != nil {
		w.closers = append(w.closers, fn)
	}
}

func (w *Worker) Close() error {
	var errs error
	for i := len(w.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, w.closers[i]())
	}
	w.closers = nil
	return errs
}

// OpenDB connects the database and applies migrations when auto-migrate is
// on. The client is closed with the worker.
func (w *Worker) OpenDB(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, w.Config.DB, w.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	w.Defer(client.Close)
	if err := migrate.MaybeRun(ctx, w.Config, w.Logger, client); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return client, nil
}

// OpenRedis connects redis. It returns nil without error when redis is not
// configured and required is false.
func (w *Worker) OpenRedis(ctx context.Context, required bool) (*redis.Client, error) {
	if !w.Config.Redis.Enabled() {
		if required {
			return nil, errors.New("redis is not configured")
		}
		return nil, nil
	}
	client, err := redis.New(ctx, w.Config.Redis, w.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	w.Defer(client.Close)
	return client, nil
}

func (w *Worker) OpenPubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, w.Config.GCP, w.Config.Events, w.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	w.Defer(client.Close)
	return client, nil
}

// SignalContext is canceled on SIGINT or SIGTERM.
func (w *Worker) SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ServeMetrics exposes the default Prometheus registry on the configured
// metrics address until ctx ends.
func (w *Worker) ServeMetrics(ctx context.Context) {
	go func() {
		if err := metrics.Serve(ctx, w.Config.App.MetricsAddr, prometheus.DefaultGatherer); err != nil {
			w.Logger.Error(ctx, "metrics.server_stopped", err)
		}
	}()
}

// Exit closes the worker and terminates the process, non-zero when err is set.
func (w *Worker) Exit(ctx context.Context, err error) {
	if closeErr := w.Close(); closeErr != nil {
		w.Logger.Error(ctx, "worker.close_failed", closeErr)
	}
	if err != nil {
		w.Logger.Error(ctx, w.Name+" stopped", err)
		os.Exit(1)
	}
	w.Logger.Info(ctx, w.Name+" stopped")
}
