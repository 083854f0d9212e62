package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bakery-quotes/internal/app"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	env := &cliEnv{connect: connectApp}
	root := newRootCmd(env)
	err := root.ExecuteContext(context.Background())
	if closeErr := env.close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "close:", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// connectApp builds the full pipeline from BAKERY_* configuration.
func connectApp(ctx context.Context, logLevel string) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logLevel = cfg.App.LogLevel
	}
	logg := logger.New(logger.Options{
		ServiceName: "quotectl",
		Level:       logger.ParseLevel(logLevel),
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	a, err := app.Build(ctx, cfg, logg, app.Options{})
	if err != nil {
		return nil, err
	}
	return &services{
		materials: a.Materials,
		quotes:    a.Quotes,
		intake:    a.Intake,
		closer:    a.Close,
	}, nil
}
