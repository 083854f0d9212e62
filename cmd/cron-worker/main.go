package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakery-quotes/internal/app"
	"github.com/angelmondragon/bakery-quotes/internal/cron"
	"github.com/angelmondragon/bakery-quotes/pkg/instance"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
)

func main() {
	w, err := app.NewWorker("cron-worker")
	if err != nil {
		os.Exit(1)
	}
	ctx, stop := w.SignalContext()
	defer stop()

	err = run(ctx, w)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.Exit(ctx, err)
}

func run(ctx context.Context, w *app.Worker) error {
	cfg := w.Config
	ctx = w.Logger.WithField(ctx, "interval", cfg.Cron.Interval.String())

	dbClient, err := w.OpenDB(ctx)
	if err != nil {
		return err
	}
	lock, err := cycleLock(ctx, w)
	if err != nil {
		return err
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	outboxJobs, err := cron.NewOutboxJobs(cron.OutboxJobParams{
		Logger:      w.Logger,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Metrics:     jobMetrics,
		Retention:   cfg.Cron.OutboxRetention,
		StaleAfter:  cfg.Cron.BacklogAge,
		MaxAttempts: cfg.Events.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("outbox jobs: %w", err)
	}
	registry, err := cron.NewRegistry(outboxJobs...)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     w.Logger,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		Schedule:   cfg.Cron.Schedule,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}

	w.ServeMetrics(ctx)
	w.Logger.Info(ctx, "cron worker started")
	return service.Run(ctx)
}

// cycleLock coordinates replicas through redis when it is configured.
func cycleLock(ctx context.Context, w *app.Worker) (cron.Lock, error) {
	redisClient, err := w.OpenRedis(ctx, false)
	if err != nil {
		return nil, err
	}
	if redisClient == nil {
		w.Logger.Warn(ctx, "redis not configured, cron lock is process-local")
		return cron.NewLocalLock(), nil
	}
	return cron.NewRedisLock(redisClient, cron.LockKey(w.Config.App.Env), instance.ID(w.Config.App.WorkerID), 0)
}
