package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

// uniqueEvent is ux_outbox_events_event_aggregate on (event_type, aggregate_id).
var uniqueEvent = db.UniqueKey{
	Constraint: "ux_outbox_events_event_aggregate",
	Columns:    "outbox_events.event_type, outbox_events.aggregate_id",
}

var (
	// ErrNoTransaction is returned when Emit is called outside a transaction.
	ErrNoTransaction = errors.New("outbox: transaction required")
	// ErrDuplicateEvent means the aggregate already recorded this event type.
	ErrDuplicateEvent = errors.New("outbox: event already recorded for aggregate")
)

// DomainEvent is what aggregates hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	if e.AggregateID == "" {
		return errors.New("outbox: aggregate id required")
	}
	owner, ok := e.EventType.Aggregate()
	if !ok {
		return fmt.Errorf("outbox: unknown event type %q", e.EventType)
	}
	if owner != e.AggregateType {
		return fmt.Errorf("outbox: %s belongs to %s, not %s", e.EventType, owner, e.AggregateType)
	}
	return nil
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes event on tx, so it commits or rolls back with the aggregate.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrNoTransaction
	}
	if err := event.validate(); err != nil {
		return err
	}

	id := uuid.New()
	env, raw, err := Seal(id, event.Version, event.OccurredAt, event.Data)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       raw,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		if uniqueEvent.Violated(err) {
			return fmt.Errorf("%w: %s %s", ErrDuplicateEvent, event.EventType, event.AggregateID)
		}
		return err
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		}), "outbox.queued")
	}
	return nil
}
