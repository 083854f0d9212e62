package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (registry.Message, error)
}

// publisher is the slice of *pubsub.Publisher the service needs.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) (string, error)
}

type ServiceParams struct {
	Config     config.EventsConfig
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	Registry   resolver
	Metrics    *metrics.OutboxMetrics
	// NewPublisher overrides the Pub/Sub publisher per topic. Tests only.
	NewPublisher func(topic string) publisher
}

// Service relays unpublished outbox rows to Pub/Sub in created_at order.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     resolver
	metrics      *metrics.OutboxMetrics
	newPublisher func(topic string) publisher
	publishers   map[string]publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:         p.Logger,
		db:           p.DB,
		repo:         p.Repository,
		pubsub:       p.PubSub,
		registry:     p.Registry,
		metrics:      p.Metrics,
		newPublisher: p.NewPublisher,
		publishers:   make(map[string]publisher),
		batchSize:    orDefault(p.Config.BatchSize, defaultBatchSize),
		maxAttempts:  orDefault(p.Config.MaxAttempts, defaultMaxAttempts),
		pollInterval: orDefault(p.Config.PollInterval, defaultPollInterval),
	}
	if s.newPublisher == nil {
		s.newPublisher = s.gcpPublisher
	}
	return s, nil
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is canceled. A full batch is followed at once by the
// next; failed batches back off exponentially.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	defer s.stopPublishers()

	wait := backoff{base: s.pollInterval, max: maxBackoff}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := s.processBatch(ctx)
		var delay time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch_failed", err)
			delay = wait.fail()
		case claimed:
			wait.reset()
			continue
		default:
			wait.reset()
			delay = s.pollInterval
		}
		if err := sleep(ctx, delay+jitter()); err != nil {
			return err
		}
	}
}

// outcome is what happened to one row in a batch.
type outcome int

const (
	delivered outcome = iota
	retry
	parked
)

func (o outcome) label() string {
	switch o {
	case delivered:
		return metrics.PublishDelivered
	case retry:
		return metrics.PublishRetry
	default:
		return metrics.PublishParked
	}
}

// processBatch claims up to batchSize rows in one transaction and settles
// each of them. It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		s.metrics.ObserveBatch(len(rows))
		claimed = len(rows) > 0
		for _, row := range rows {
			if err := s.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

// settle publishes row and records the result. Only bookkeeping failures are
// returned; publish failures are stored on the row.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID,
		"attempt_count": row.AttemptCount,
	})

	result, cause := s.deliver(logCtx, row)
	s.metrics.ObserveRow(string(row.EventType), result.label())

	var err error
	switch result {
	case delivered:
		s.logg.Info(logCtx, "outbox.delivered")
		err = s.repo.MarkPublishedTx(tx, row.ID)
	case retry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", cause.Error()), "outbox.retry")
		err = s.repo.MarkFailedTx(tx, row.ID, cause)
	case parked:
		s.logg.Warn(s.logg.WithField(logCtx, "error", cause.Error()), "outbox.parked")
		err = s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts)
	}
	if err != nil {
		return fmt.Errorf("record %s outcome for %s: %w", result.label(), row.ID, err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, row models.OutboxEvent) (outcome, error) {
	msg, err := s.registry.Resolve(row)
	if err != nil {
		return parked, err
	}

	topic := msg.Route.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return parked, fmt.Errorf("no publisher for topic %s", topic)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	started := time.Now()
	_, err = pub.Publish(publishCtx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: attributes(row, msg),
	})
	s.metrics.ObservePublish(topic, time.Since(started))

	switch {
	case err == nil:
		return delivered, nil
	case registry.IsPermanent(err):
		return parked, err
	case row.AttemptCount+1 >= s.maxAttempts:
		return parked, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, err)
	default:
		return retry, err
	}
}

// attributes are the Pub/Sub message attributes consumers route on.
func attributes(row models.OutboxEvent, msg registry.Message) map[string]string {
	return map[string]string{
		"event_id":       msg.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (s *Service) publisherFor(topic string) publisher {
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.newPublisher(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

func (s *Service) stopPublishers() {
	for topic, pub := range s.publishers {
		if stopper, ok := pub.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		delete(s.publishers, topic)
	}
}

func (s *Service) gcpPublisher(topic string) publisher {
	p := s.pubsub.Publisher(topic)
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

// gcpPublisher blocks on each publish result so the row is only marked
// published once Pub/Sub has acknowledged it.
type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return p.Publisher.Publish(ctx, msg).Get(ctx)
}

// backoff doubles from base up to max on consecutive failures.
type backoff struct {
	base, max, current time.Duration
}

func (b *backoff) fail() time.Duration {
	if b.current <= 0 {
		b.current = b.base
	}
	b.current = min(b.current*2, b.max)
	return b.current
}

func (b *backoff) reset() { b.current = 0 }

func jitter() time.Duration {
	return rand.N(jitterWindow)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
