package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
)

// Event is a quote event as received from Pub/Sub: the stored outbox
// envelope plus the routing attributes the publisher attaches.
type Event struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Version       int
	Data          json.RawMessage
}

// Decode builds an Event from a message body and its attributes. The body
// wins for event_id and occurred_at; attributes fill them when blank.
func Decode(body []byte, attrs map[string]string) (Event, error) {
	env, err := outbox.Open(body)
	if err != nil {
		return Event{}, err
	}
	attr := func(k string) string { return strings.TrimSpace(attrs[k]) }

	ev := Event{
		EventID:     strings.TrimSpace(env.EventID),
		AggregateID: attr("aggregate_id"),
		OccurredAt:  env.OccurredAt,
		Version:     env.Version,
		Data:        env.Data,
	}
	if ev.EventType, err = enums.ParseOutboxEventType(attr("event_type")); err != nil {
		return Event{}, fmt.Errorf("event_type attribute: %w", err)
	}
	if ev.AggregateType, err = enums.ParseOutboxAggregateType(attr("aggregate_type")); err != nil {
		return Event{}, fmt.Errorf("aggregate_type attribute: %w", err)
	}
	if ev.AggregateID == "" {
		return Event{}, errors.New("aggregate_id attribute missing")
	}
	if ev.EventID == "" {
		ev.EventID = attr("event_id")
	}
	if ev.EventID == "" {
		return Event{}, errors.New("event_id missing")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt, _ = time.Parse(time.RFC3339Nano, attr("created_at"))
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	return ev, nil
}
