package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

// AutoRun reports whether binaries should migrate on startup: when the
// auto-migrate flag is set, or in dev against sqlite.
func AutoRun(cfg *config.Config) bool {
	return cfg.FeatureFlags.AutoMigrate || (cfg.App.IsDev() && cfg.DB.IsSQLite())
}

// MaybeRun applies the embedded migrations when AutoRun allows it.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !AutoRun(cfg) {
		return nil
	}
	ctx = logg.WithField(ctx, "driver", client.Driver())
	logg.Info(ctx, "migrate.auto_up")
	if err := Run(ctx, client.SQL(), client.Driver(), EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	logg.Info(ctx, "migrate.auto_up_done")
	return nil
}
