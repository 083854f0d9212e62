package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply and author goose migrations for the bakery schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "",
		"migrations directory (default: embedded for database commands, "+migrate.DefaultDir+" for create and validate)")

	dirOr := func(fallback string) string {
		if dir != "" {
			return dir
		}
		return fallback
	}

	gooseCmd := func(name, short string) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), name, func(ctx context.Context, sqlDB *sql.DB, driver string) error {
					return migrate.Run(ctx, sqlDB, driver, dirOr(migrate.EmbeddedDir), name)
				})
			},
		}
	}

	to := &cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION (YYYYMMDDHHMMSS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), "to", func(ctx context.Context, sqlDB *sql.DB, driver string) error {
				return migrate.ToVersion(ctx, sqlDB, driver, dirOr(migrate.EmbeddedDir), args[0])
			})
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Write an empty timestamped SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(dirOr(migrate.DefaultDir), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check migration names, versions and goose sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(dirOr(migrate.DefaultDir)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
			return nil
		},
	}

	root.AddCommand(
		gooseCmd("up", "Apply every pending migration"),
		gooseCmd("down", "Roll back the latest migration"),
		gooseCmd("status", "Print applied and pending migrations"),
		to, create, validate,
	)
	return root
}

// withDatabase loads config, opens the database and hands fn the raw
// *sql.DB goose needs.
func withDatabase(ctx context.Context, command string, fn func(context.Context, *sql.DB, string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env, "cmd": command},
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		return err
	}
	defer client.Close()

	if err := fn(ctx, client.SQL(), client.Driver()); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(ctx, "migration finished")
	return nil
}
