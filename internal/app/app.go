// Package app builds the quotation pipeline from configuration. It is shared
// by the API server and the quotectl CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bakery-quotes/internal/documents"
	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/internal/render"
	"github.com/angelmondragon/bakery-quotes/pkg/bom"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/migrate"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
	"github.com/angelmondragon/bakery-quotes/pkg/redis"
	"github.com/angelmondragon/bakery-quotes/pkg/storage/gcs"
)

// App holds the wired services and the clients they own.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	DB        *db.Client
	Redis     *redis.Client
	BOM       *bom.Client
	GCS       *gcs.Client
	Materials materials.Service
	Quotes    quotes.Service
	Intake    *intake.Conversation
}

// Options tune Build for the calling binary.
type Options struct {
	// SkipRedis builds without redis even when it is configured.
	SkipRedis bool
}

// Build connects every backing client and wires the services. On error the
// clients opened so far are closed.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	a := &App{Config: cfg, Logger: logg, Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	quoteMetrics := metrics.NewQuoteMetrics(a.Registry)

	if a.DB, err = db.New(ctx, cfg.DB, logg); err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a.Registry.MustRegister(a.DB.Collector("bakery"))
	if err = migrate.MaybeRun(ctx, cfg, logg, a.DB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if cfg.Redis.Enabled() && !opts.SkipRedis {
		if a.Redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
	}

	if a.BOM, err = bom.NewClient(cfg.BOM.BaseURL, bom.WithTimeout(cfg.BOM.Timeout)); err != nil {
		return nil, fmt.Errorf("bom client: %w", err)
	}

	var catalog materials.Catalog = materials.NewRepository(a.DB.DB())
	if a.Redis != nil {
		catalog = materials.NewCachedCatalog(catalog, a.Redis, cfg.Materials.CacheTTL, logg)
	}
	if a.Materials, err = materials.NewService(catalog, cfg.Pricing.DefaultCurrency); err != nil {
		return nil, err
	}
	resolver, err := materials.NewResolver(catalog, cfg.Materials.LookupTimeout)
	if err != nil {
		return nil, err
	}

	assembler, err := quotes.NewAssembler(a.BOM, resolver, quotes.SettingsFromConfig(cfg),
		quotes.WithDependencyObserver(quoteMetrics.ObserveDependency))
	if err != nil {
		return nil, err
	}

	renderer := render.Default()
	if path := cfg.Documents.TemplatePath; path != "" {
		if renderer, err = render.Load(path); err != nil {
			return nil, fmt.Errorf("load quotation template: %w", err)
		}
	}

	docs, err := a.documentStore(ctx)
	if err != nil {
		return nil, err
	}

	if a.Quotes, err = quotes.NewService(quotes.ServiceParams{
		Assembler: assembler,
		Renderer:  renderer,
		Documents: docs,
		Records:   a.quoteRecords(),
		Metrics:   quoteMetrics,
		Logger:    logg,
	}); err != nil {
		return nil, err
	}

	var sessions intake.SessionStore = intake.NewMemoryStore(cfg.Intake.SessionTTL)
	if a.Redis != nil {
		if sessions, err = intake.NewRedisStore(a.Redis, cfg.Intake.SessionTTL); err != nil {
			return nil, err
		}
	}
	if a.Intake, err = intake.NewConversation(sessions, a.Quotes, logg); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *App) documentStore(ctx context.Context) (documents.Store, error) {
	backend, err := enums.ParseDocumentBackend(a.Config.Documents.Backend)
	if err != nil {
		return nil, err
	}
	if backend == enums.DocumentBackendGCS {
		if a.GCS, err = gcs.NewClient(ctx, a.Config.GCS, a.Config.GCP, a.Logger); err != nil {
			return nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		return documents.NewObjectStore(a.GCS, a.Config.Documents.ObjectPrefix)
	}
	return documents.NewFileStore(a.Config.Documents.OutputDir)
}

// Close releases every client Build opened.
func (a *App) Close() error {
	var errs error
	if a.GCS != nil {
		errs = multierr.Append(errs, a.GCS.Close())
	}
	if a.Redis != nil {
		errs = multierr.Append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = multierr.Append(errs, a.DB.Close())
	}
	return errs
}

// quoteRecords attaches the event outbox when quote events are enabled.
func (a *App) quoteRecords() *quotes.Repository {
	records := quotes.NewRepository(a.DB.DB())
	if !a.Config.Events.Enabled {
		return records
	}
	return records.WithEvents(outbox.NewService(outbox.NewRepository(a.DB.DB()), a.Logger))
}
