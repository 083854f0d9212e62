package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Publish outcomes recorded by the outbox publisher.
const (
	PublishDelivered = "delivered"
	PublishRetry     = "retry"
	PublishParked    = "parked"
)

// OutboxMetrics records what the outbox publisher did with each row.
type OutboxMetrics struct {
	rows    *prometheus.CounterVec
	latency *prometheus.HistogramVec
	batches prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_rows_total",
			Help: "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outbox_publish_duration_seconds",
			Help:    "Pub/Sub publish round trip in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		}, []string{"topic"}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_batch_rows",
			Help:    "Rows claimed per publisher batch.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.rows, m.latency, m.batches)
	return m
}

func (m *OutboxMetrics) ObserveRow(eventType, outcome string) {
	if m == nil || m.rows == nil {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObservePublish(topic string, d time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(topic)).Observe(d.Seconds())
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Observe(float64(rows))
}

// Consumer results recorded by event subscribers.
const (
	ConsumeHandled   = "handled"
	ConsumeDuplicate = "duplicate"
	ConsumeDropped   = "dropped"
	ConsumeRetry     = "retry"
)

// ConsumerMetrics counts what an event subscriber did with each message.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer, consumer string) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "event_messages_total",
		Help:        "Pub/Sub messages handled by a consumer, by result.",
		ConstLabels: prometheus.Labels{"consumer": normalizeLabel(consumer)},
	}, []string{"result"})
	reg.MustRegister(messages)
	return &ConsumerMetrics{messages: messages}
}

func (m *ConsumerMetrics) Observe(result string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(result)).Inc()
}
