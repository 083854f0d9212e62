package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// QuoteMetrics records quotation pipeline activity.
type QuoteMetrics struct {
	assembled  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	dependency *prometheus.HistogramVec
	errors     *prometheus.CounterVec
}

// NewQuoteMetrics registers the quotation metrics on the provided registerer.
func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		return &QuoteMetrics{}
	}
	assembled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotes_generated_total",
		Help: "Quotation generation attempts by job type and outcome.",
	}, []string{"job_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quote_generation_duration_seconds",
		Help:    "End-to-end quotation generation time in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job_type"})
	dependency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quote_dependency_duration_seconds",
		Help:    "Latency of external calls made while assembling quotations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dependency", "outcome"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_errors_total",
		Help: "Quotation failures by error code.",
	}, []string{"code"})
	reg.MustRegister(assembled, duration, dependency, errs)
	return &QuoteMetrics{
		assembled:  assembled,
		duration:   duration,
		dependency: dependency,
		errors:     errs,
	}
}

// ObserveGeneration records one generation attempt.
func (m *QuoteMetrics) ObserveGeneration(jobType, outcome string, duration time.Duration) {
	if m == nil || m.assembled == nil {
		return
	}
	jt := normalizeLabel(jobType)
	m.assembled.WithLabelValues(jt, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(jt).Observe(duration.Seconds())
}

// ObserveDependency records the latency of one external call.
func (m *QuoteMetrics) ObserveDependency(dependency string, err error, duration time.Duration) {
	if m == nil || m.dependency == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.dependency.WithLabelValues(normalizeLabel(dependency), outcome).Observe(duration.Seconds())
}

// IncError counts a failure by its error code.
func (m *QuoteMetrics) IncError(code string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
