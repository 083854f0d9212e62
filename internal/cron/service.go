// Package cron runs the maintenance jobs of cmd/cron-worker on an interval or
// a cron schedule, one replica at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 5 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// Schedule is a five-field cron expression; when set it wins over Interval.
	Schedule string
	// JobTimeout bounds a single job run.
	JobTimeout time.Duration
}

type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	schedule   robfig.Schedule
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger required")
	case p.Lock == nil:
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:       p.Logger,
		jobs:       p.Registry,
		lock:       p.Lock,
		metrics:    p.Metrics,
		jobTimeout: p.JobTimeout,
		now:        time.Now,
	}
	if s.jobs == nil {
		s.jobs = &Registry{}
	}
	schedule, err := parseSchedule(p.Schedule, p.Interval)
	if err != nil {
		return nil, err
	}
	s.schedule = schedule
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

func parseSchedule(expr string, interval time.Duration) (robfig.Schedule, error) {
	if expr != "" {
		schedule, err := robfig.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("cron schedule %q: %w", expr, err)
		}
		return schedule, nil
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return robfig.Every(interval), nil
}

// Run starts a cycle right away and then at every scheduled time until ctx
// ends.
func (s *Service) Run(ctx context.Context) error {
	for {
		s.cycle(ctx)
		next := s.schedule.Next(s.now())
		s.logg.Debug(s.logg.WithField(ctx, "next_cycle", next.Format(time.RFC3339)), "cron.scheduled")

		wait := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-wait.C:
		}
	}
}

// cycleResult summarizes one cycle. failures holds one error per failed job.
type cycleResult struct {
	skipped  bool
	ran      int
	failures error
}

func (s *Service) cycle(ctx context.Context) {
	res, err := s.runCycle(ctx)
	switch {
	case err != nil:
		s.logg.Error(ctx, "cron.cycle_failed", err)
	case res.skipped:
		s.logg.Info(ctx, "cron.cycle_skipped")
	case res.failures != nil:
		failed := len(multierr.Errors(res.failures))
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"jobs_run":    res.ran,
			"jobs_failed": failed,
		}), "cron.cycle_partial", res.failures)
	default:
		s.logg.Debug(s.logg.WithField(ctx, "jobs_run", res.ran), "cron.cycle_done")
	}
}

// runCycle takes the lock and runs every job, carrying on past failures.
// Only a lock error is returned; job failures are collected in the result.
func (s *Service) runCycle(ctx context.Context) (cycleResult, error) {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return cycleResult{}, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !ok {
		return cycleResult{skipped: true}, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	var res cycleResult
	for _, job := range s.jobs.Jobs() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.ran++
		if err := s.runJob(ctx, job); err != nil {
			res.failures = multierr.Append(res.failures, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return res, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	started := s.now()
	err := job.Run(jobCtx)
	took := s.now().Sub(started)
	s.metrics.ObserveRun(job.Name(), err, took)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job_failed", err)
		return err
	}
	s.logg.Info(ctx, "cron.job_done")
	return nil
}
