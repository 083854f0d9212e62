// Package registry routes outbox rows to Pub/Sub topics and decodes their
// payloads before they leave the database.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/payloads"
)

// Route is where one event type is published.
type Route struct {
	EventType enums.OutboxEventType
	Topic     string
	decode    func(json.RawMessage) (any, error)
}

// Message is an outbox row that passed Resolve.
type Message struct {
	Route    Route
	Envelope outbox.Envelope
	Data     any
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

// New registers every published event type against its configured topic.
func New(cfg config.EventsConfig) (*Registry, error) {
	quoteTopic := strings.TrimSpace(cfg.QuoteTopic)
	if quoteTopic == "" {
		return nil, errors.New("registry: quote topic is required")
	}
	r := &Registry{routes: map[enums.OutboxEventType]Route{}}
	r.add(enums.EventQuoteGenerated, quoteTopic, decodeAs[payloads.QuoteGeneratedEvent])
	return r, nil
}

func (r *Registry) add(eventType enums.OutboxEventType, topic string, decode func(json.RawMessage) (any, error)) {
	r.routes[eventType] = Route{EventType: eventType, Topic: topic, decode: decode}
}

// Resolve checks a row against its route and decodes the payload. Every
// error it returns is Permanent.
func (r *Registry) Resolve(event models.OutboxEvent) (Message, error) {
	route, ok := r.routes[event.EventType]
	if !ok {
		return Message{}, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	}
	if owner, _ := event.EventType.Aggregate(); owner != event.AggregateType {
		return Message{}, Permanent(fmt.Errorf("%s rows must have aggregate %s, got %q", event.EventType, owner, event.AggregateType))
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return Message{}, Permanent(errors.New("aggregate_id is blank"))
	}

	env, err := outbox.Open(event.Payload)
	if err != nil {
		return Message{}, Permanent(err)
	}
	data, err := route.decode(env.Data)
	if err != nil {
		return Message{}, Permanent(fmt.Errorf("decode %s data: %w", event.EventType, err))
	}
	return Message{Route: route, Envelope: env, Data: data}, nil
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one that retrying will not fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
