package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
)

func TestWorkerCloseRunsInReverse(t *testing.T) {
	w := &Worker{Name: "test"}
	var order []string
	w.Defer(func() error { order = append(order, "db"); return nil })
	w.Defer(nil)
	w.Defer(func() error { order = append(order, "pubsub"); return errors.New("stuck") })
	w.Defer(func() error { order = append(order, "redis"); return nil })

	err := w.Close()
	require.ErrorContains(t, err, "stuck")
	require.Equal(t, []string{"redis", "pubsub", "db"}, order)
	require.NoError(t, w.Close())
}

func TestWorkerLoggerUsesConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.WorkerID = "worker-7"
	require.NotNil(t, WorkerLogger("cron-worker", cfg))
}
