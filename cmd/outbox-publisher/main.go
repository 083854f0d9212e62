package main

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakery-quotes/internal/app"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/registry"
)

func main() {
	w, err := app.NewWorker("outbox-publisher")
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
	events := w.Config.Events
	ctx = w.Logger.WithField(ctx, "topic", events.QuoteTopic)

	routes, err := registry.New(events)
	if err != nil {
		return err
	}
	dbClient, err := w.OpenDB(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := w.OpenPubSub(ctx)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Config:     events,
		Logger:     w.Logger,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   routes,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	w.ServeMetrics(ctx)
	w.Logger.Info(ctx, "outbox publisher started")
	return service.Run(ctx)
}
