package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bakery-quotes/api/controllers"
	"github.com/angelmondragon/bakery-quotes/api/middleware"
	"github.com/angelmondragon/bakery-quotes/api/responses"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/redis"
)

// Deps are the collaborators the HTTP surface is wired to. Nil optional
// entries disable the matching feature.
type Deps struct {
	Quotes    quotes.Service
	Materials materials.Service
	Intake    controllers.IntakeService

	// Readiness checks by dependency name.
	Checks map[string]controllers.Pinger

	Gatherer    prometheus.Gatherer
	Idempotency redis.IdempotencyStore
	RateCounter middleware.RateCounter
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Checks, logg))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	quotePolicy := middleware.NewRateLimitPolicy("quotes", cfg.HTTP.QuoteRateWindow, cfg.HTTP.QuoteRateLimit)
	intakePolicy := middleware.NewRateLimitPolicy("intake", cfg.HTTP.QuoteRateWindow, cfg.HTTP.IntakeRateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/job-types", controllers.JobTypes(deps.Quotes, logg))

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.QuoteList(deps.Quotes, logg))
			r.With(
				middleware.RateLimit(quotePolicy, deps.RateCounter, logg),
				middleware.Idempotency(deps.Idempotency, cfg.HTTP.IdempotencyTTL, logg),
			).Post("/", controllers.QuoteGenerate(deps.Quotes, logg))
			r.Get("/{quoteId}", controllers.QuoteGet(deps.Quotes, logg))
			r.Get("/{quoteId}/document", controllers.QuoteDocument(deps.Quotes, logg))
		})

		r.Route("/materials", func(r chi.Router) {
			r.Get("/", controllers.MaterialList(deps.Materials, logg))
			r.Get("/search", controllers.MaterialSearch(deps.Materials, logg))
			r.Get("/{name}", controllers.MaterialGet(deps.Materials, logg))
			r.Put("/{name}", controllers.MaterialSet(deps.Materials, logg))
		})

		r.Route("/sessions/{sessionId}", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(deps.Intake, logg))
			r.Delete("/", controllers.SessionDelete(deps.Intake, logg))
			r.With(
				middleware.RateLimit(intakePolicy, deps.RateCounter, logg),
				middleware.Idempotency(deps.Idempotency, cfg.HTTP.IdempotencyTTL, logg),
			).Post("/messages", controllers.SessionMessage(deps.Intake, logg))
		})
	})

	return r
}
