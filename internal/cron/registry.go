package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Job is one maintenance task run on every cron cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// NewJob wraps run as a Job called name.
func NewJob(name string, run func(context.Context) error) Job {
	return funcJob{name: name, run: run}
}

// Registry holds jobs in the order they run. Job names label metrics and
// logs, so they must be unique.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{}
	var errs []error
	for _, job := range jobs {
		errs = append(errs, r.Register(job))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register appends job. A nil job is a no-op.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("cron job needs a name")
	}
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == name }) {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs. The slice is a copy.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
