package controllers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/bakery-quotes/api/responses"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

const (
	envHeader        = "X-Bakery-Env"
	readinessTimeout = 3 * time.Second
)

// Pinger is a dependency that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency concurrently. Nil pingers
// are reported as disabled.
func HealthReady(cfg *config.Config, checks map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var mu sync.Mutex
		status := make(map[string]string, len(checks))
		var failed []string

		g, gctx := errgroup.WithContext(ctx)
		for name, p := range checks {
			if p == nil {
				status[name] = "disabled"
				continue
			}
			g.Go(func() error {
				err := p.Ping(gctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					status[name] = "down"
					failed = append(failed, name)
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "health.dependency_down")
					}
					return nil
				}
				status[name] = "up"
				return nil
			})
		}
		_ = g.Wait()

		if len(failed) > 0 {
			sort.Strings(failed)
			details := make(map[string]any, len(status)+1)
			for k, v := range status {
				details[k] = v
			}
			details["failed"] = failed
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").WithDetails(details))
			return
		}

		out := map[string]any{"status": "ready", "checks": status}
		responses.WriteSuccess(w, out)
	}
}
