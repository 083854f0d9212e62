// Package router dispatches decoded quote events to per-type handlers.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/types"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Sink stores analytics rows.
type Sink interface {
	InsertQuoteEvent(ctx context.Context, row types.QuoteEventRow) error
}

type handleFunc func(context.Context, types.Event) error

type Router struct {
	routes map[enums.OutboxEventType]handleFunc
	logg   *logger.Logger
}

// New wires the built-in handlers to sink.
func New(sink Sink, logg *logger.Logger) (*Router, error) {
	if sink == nil {
		return nil, errors.New("analytics sink is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	r := &Router{routes: map[enums.OutboxEventType]handleFunc{}, logg: logg}
	On(r, enums.EventQuoteGenerated, quoteGenerated{sink: sink, logg: logg}.handle)
	return r, nil
}

// On routes eventType to fn, decoding event data into a fresh T first.
// A later call for the same type replaces the earlier one.
func On[T any](r *Router, eventType enums.OutboxEventType, fn func(context.Context, types.Event, *T) error) {
	r.routes[eventType] = func(ctx context.Context, ev types.Event) error {
		data := new(T)
		if err := json.Unmarshal(ev.Data, data); err != nil {
			return fmt.Errorf("decode %s data: %w", ev.EventType, err)
		}
		return fn(ctx, ev, data)
	}
}

func (r *Router) Handle(ctx context.Context, ev types.Event) error {
	route, ok := r.routes[ev.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, ev.EventType)
	}
	return route(ctx, ev)
}

// quoteGenerated turns each quote.generated event into one quote_events row.
type quoteGenerated struct {
	sink Sink
	logg *logger.Logger
}

func (h quoteGenerated) handle(ctx context.Context, ev types.Event, data *payloads.QuoteGeneratedEvent) error {
	if data.QuoteID == "" {
		return errors.New("quote.generated data has no quote_id")
	}
	ctx = h.logg.WithQuoteID(h.logg.WithJobType(ctx, data.JobType), data.QuoteID)

	if err := h.sink.InsertQuoteEvent(ctx, quoteEventRow(ev, data)); err != nil {
		return fmt.Errorf("store quote event %s: %w", ev.EventID, err)
	}
	h.logg.Debug(ctx, "analytics.quote_event_stored")
	return nil
}

func quoteEventRow(ev types.Event, data *payloads.QuoteGeneratedEvent) types.QuoteEventRow {
	row := types.QuoteEventRow{
		EventID:      ev.EventID,
		EventType:    string(ev.EventType),
		OccurredAt:   ev.OccurredAt,
		QuoteID:      data.QuoteID,
		JobType:      data.JobType,
		Quantity:     int64(data.Quantity),
		CustomerName: data.CustomerName,
		Currency:     data.Currency,
		Total:        data.Total.Rat(),
		ValidUntil:   data.ValidUntil.UTC(),
		Payload:      types.JSONColumn(ev.Data),
	}
	if data.DocumentKey != "" {
		key := data.DocumentKey
		row.DocumentKey = &key
	}
	return row
}
