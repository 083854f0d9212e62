package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
)

const (
	JobOutboxBacklog   = "outbox-backlog"
	JobOutboxRetention = "outbox-retention"

	defaultRetention   = 30 * 24 * time.Hour
	defaultStaleAfter  = 5 * time.Minute
	defaultMaxAttempts = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxStore interface {
	CountBacklog(ctx context.Context, staleBefore time.Time, maxAttempts int) (outbox.Backlog, error)
	DeleteSettledBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

type OutboxJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxStore
	Metrics    *metrics.JobMetrics
	// Retention is how long published and parked rows are kept.
	Retention time.Duration
	// StaleAfter is the age at which an undelivered row counts as backlog.
	StaleAfter  time.Duration
	MaxAttempts int
}

// outboxMaintenance watches and prunes the quote event outbox.
type outboxMaintenance struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxStore
	metrics     *metrics.JobMetrics
	retention   time.Duration
	staleAfter  time.Duration
	maxAttempts int
	now         func() time.Time
}

func newOutboxMaintenance(p OutboxJobParams) (*outboxMaintenance, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.DB == nil:
		return nil, errors.New("db runner required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	m := &outboxMaintenance{
		logg:        p.Logger,
		db:          p.DB,
		repo:        p.Repository,
		metrics:     p.Metrics,
		retention:   p.Retention,
		staleAfter:  p.StaleAfter,
		maxAttempts: p.MaxAttempts,
		now:         time.Now,
	}
	if m.retention <= 0 {
		m.retention = defaultRetention
	}
	if m.staleAfter <= 0 {
		m.staleAfter = defaultStaleAfter
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = defaultMaxAttempts
	}
	return m, nil
}

// NewOutboxJobs returns the backlog and retention jobs, in that order.
func NewOutboxJobs(p OutboxJobParams) ([]Job, error) {
	m, err := newOutboxMaintenance(p)
	if err != nil {
		return nil, err
	}
	return []Job{
		NewJob(JobOutboxBacklog, m.checkBacklog),
		NewJob(JobOutboxRetention, m.prune),
	}, nil
}

// checkBacklog exports undelivered row counts and warns while any exist.
func (m *outboxMaintenance) checkBacklog(ctx context.Context) error {
	staleBefore := m.now().UTC().Add(-m.staleAfter)
	backlog, err := m.repo.CountBacklog(ctx, staleBefore, m.maxAttempts)
	if err != nil {
		return fmt.Errorf("count outbox backlog: %w", err)
	}
	m.metrics.SetBacklog(backlog.Stale, backlog.Parked)

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"stale_rows":   backlog.Stale,
		"parked_rows":  backlog.Parked,
		"stale_before": staleBefore.Format(time.RFC3339),
	})
	if backlog.Stale+backlog.Parked == 0 {
		m.logg.Info(logCtx, "outbox.backlog_clear")
		return nil
	}
	m.logg.Warn(logCtx, "outbox.backlog_pending")
	return nil
}

// prune deletes published and parked rows older than the retention window.
func (m *outboxMaintenance) prune(ctx context.Context) error {
	cutoff := m.now().UTC().Add(-m.retention)
	var deleted int64
	err := m.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = m.repo.DeleteSettledBefore(ctx, tx, cutoff, m.maxAttempts)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune outbox: %w", err)
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff.Format(time.RFC3339),
		"rows_deleted": deleted,
	}), "outbox.pruned")
	return nil
}
