package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records cron-worker job runs and the outbox backlog they observe.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	backlog  *prometheus.GaugeVec
}

// NewJobMetrics registers the job metrics on reg. A nil reg yields a no-op collector.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron-worker jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron-worker job runs by outcome.",
	}, []string{"job", "outcome"})
	backlog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbox_backlog_rows",
		Help: "Undelivered outbox rows by state (stale or parked).",
	}, []string{"state"})
	reg.MustRegister(duration, runs, backlog)
	return &JobMetrics{duration: duration, runs: runs, backlog: backlog}
}

// ObserveRun records one job run.
func (m *JobMetrics) ObserveRun(job string, err error, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	name := normalizeLabel(job)
	m.duration.WithLabelValues(name).Observe(duration.Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.runs.WithLabelValues(name, outcome).Inc()
}

// SetBacklog publishes the latest backlog counts.
func (m *JobMetrics) SetBacklog(stale, parked int64) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.WithLabelValues("stale").Set(float64(stale))
	m.backlog.WithLabelValues("parked").Set(float64(parked))
}
