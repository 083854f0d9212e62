package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/router"
	"github.com/angelmondragon/bakery-quotes/internal/analytics/worker"
	"github.com/angelmondragon/bakery-quotes/internal/analytics/writer"
	"github.com/angelmondragon/bakery-quotes/internal/app"
	"github.com/angelmondragon/bakery-quotes/pkg/bigquery"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/idempotency"
)

func main() {
	w, err := app.NewWorker("analytics-worker")
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
	ctx = w.Logger.WithFields(ctx, map[string]any{
		"subscription": cfg.Events.AnalyticsSubscription,
		"table":        cfg.BigQuery.QuoteEventsTable,
	})

	redisClient, err := w.OpenRedis(ctx, true)
	if err != nil {
		return fmt.Errorf("event idempotency needs redis: %w", err)
	}
	pubsubClient, err := w.OpenPubSub(ctx)
	if err != nil {
		return err
	}
	if err := pubsubClient.EnsureSubscription(ctx, cfg.Events.AnalyticsSubscription); err != nil {
		return err
	}
	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, w.Logger)
	if err != nil {
		return err
	}
	w.Defer(bq.Close)

	claims, err := idempotency.NewLedger(redisClient, worker.ConsumerName, cfg.Events.IdempotencyTTL)
	if err != nil {
		return err
	}
	sink, err := writer.New(bq, writer.Config{QuoteEventsTable: cfg.BigQuery.QuoteEventsTable})
	if err != nil {
		return err
	}
	// Registered after bq.Close so buffered rows flush while the client is open.
	w.Defer(func() error { return sink.Flush(context.WithoutCancel(ctx)) })

	handler, err := router.New(sink, w.Logger)
	if err != nil {
		return err
	}
	service, err := worker.NewService(worker.Params{
		Subscription: pubsubClient.AnalyticsSubscription(),
		Handler:      handler,
		Claims:       claims,
		Logger:       w.Logger,
		Metrics:      metrics.NewConsumerMetrics(prometheus.DefaultRegisterer, worker.ConsumerName),
	})
	if err != nil {
		return err
	}

	w.ServeMetrics(ctx)
	w.Logger.Info(ctx, "analytics worker started")
	return service.Run(ctx)
}
