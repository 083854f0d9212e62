// Package worker consumes quote events from the analytics subscription.
package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/router"
	"github.com/angelmondragon/bakery-quotes/internal/analytics/types"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
)

// ConsumerName scopes idempotency claims made by this worker.
const ConsumerName = "analytics"

type Handler interface {
	Handle(ctx context.Context, ev types.Event) error
}

// Claims is how the worker skips events it already handled.
type Claims interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type Params struct {
	Subscription *gcppubsub.Subscriber
	Handler      Handler
	Claims       Claims
	Logger       *logger.Logger
	Metrics      *metrics.ConsumerMetrics
}

// Service handles each event id at most once. When the handler fails the
// claim is released and the message nacked so Pub/Sub redelivers it.
type Service struct {
	subscription receiver
	handler      Handler
	claims       Claims
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

func NewService(p Params) (*Service, error) {
	switch {
	case p.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case p.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case p.Claims == nil:
		return nil, errors.New("idempotency claims are required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: p.Subscription,
		handler:      p.Handler,
		claims:       p.Claims,
		logg:         p.Logger,
		metrics:      p.Metrics,
	}, nil
}

// Run blocks receiving messages until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := s.process(ctx, msg)
		s.metrics.Observe(result)
		if result == metrics.ConsumeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns a metrics.Consume* result. Only ConsumeRetry leads to a
// nack; malformed and unsupported messages are dropped so they cannot loop.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) string {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	ev, err := types.Decode(msg.Data, msg.Attributes)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.malformed_event")
		return metrics.ConsumeDropped
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     ev.EventID,
		"event_type":   ev.EventType,
		"aggregate_id": ev.AggregateID,
	})
	eventID, err := uuid.Parse(ev.EventID)
	if err != nil {
		s.logg.Warn(ctx, "analytics.bad_event_id")
		return metrics.ConsumeDropped
	}

	claimed, err := s.claims.Claim(ctx, eventID)
	if err != nil {
		s.logg.Error(ctx, "analytics.claim_failed", err)
		return metrics.ConsumeRetry
	}
	if !claimed {
		s.logg.Debug(ctx, "analytics.duplicate")
		return metrics.ConsumeDuplicate
	}

	err = s.handler.Handle(ctx, ev)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics.handled")
		return metrics.ConsumeHandled
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.unsupported_event")
		return metrics.ConsumeDropped
	}

	s.logg.Error(ctx, "analytics.handle_failed", err)
	if relErr := s.claims.Release(ctx, eventID); relErr != nil {
		s.logg.Error(ctx, "analytics.release_failed", relErr)
	}
	return metrics.ConsumeRetry
}
