package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/types"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/payloads"
)

func newTestRouter(t *testing.T, sink Sink) *Router {
	t.Helper()
	r, err := New(sink, logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}))
	require.NoError(t, err)
	return r
}

func quoteEvent(t *testing.T, data any) types.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return types.Event{
		EventID:    "2f1c1d2e-1111-4c1a-9a55-4d8f9f6c1a01",
		EventType:  enums.EventQuoteGenerated,
		OccurredAt: time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		Data:       raw,
	}
}

func TestUnsupportedEvent(t *testing.T) {
	err := newTestRouter(t, &fakeSink{}).Handle(context.Background(), types.Event{
		EventType: "order.created",
		Data:      json.RawMessage(`{}`),
	})
	require.ErrorIs(t, err, ErrUnsupportedEventType)
}

func TestOnReplacesRoute(t *testing.T) {
	r := newTestRouter(t, &fakeSink{})
	var got *payloads.QuoteGeneratedEvent
	On(r, enums.EventQuoteGenerated, func(_ context.Context, _ types.Event, data *payloads.QuoteGeneratedEvent) error {
		got = data
		return nil
	})

	require.NoError(t, r.Handle(context.Background(), quoteEvent(t, payloads.QuoteGeneratedEvent{QuoteID: "Q1"})))
	require.NotNil(t, got)
	require.Equal(t, "Q1", got.QuoteID)
}

func TestUndecodableData(t *testing.T) {
	sink := &fakeSink{}
	err := newTestRouter(t, sink).Handle(context.Background(), types.Event{
		EventType: enums.EventQuoteGenerated,
		Data:      json.RawMessage(`[1,2]`),
	})
	require.ErrorContains(t, err, "decode quote.generated data")
	require.Empty(t, sink.rows)
}

func TestQuoteGeneratedStoresRow(t *testing.T) {
	sink := &fakeSink{}
	data := payloads.QuoteGeneratedEvent{
		QuoteID:      "Q20260402_103000_1_ab12cd",
		JobType:      "cupcakes",
		Quantity:     24,
		CustomerName: "Jane Doe",
		Currency:     "GBP",
		Total:        decimal.RequireFromString("86.40"),
		DocumentKey:  "quotes/Q20260402_103000_1_ab12cd.md",
		ValidUntil:   time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC),
	}
	ev := quoteEvent(t, data)

	require.NoError(t, newTestRouter(t, sink).Handle(context.Background(), ev))
	require.Len(t, sink.rows, 1)

	row := sink.rows[0]
	require.Equal(t, ev.EventID, row.EventID)
	require.Equal(t, "quote.generated", row.EventType)
	require.Equal(t, data.QuoteID, row.QuoteID)
	require.EqualValues(t, 24, row.Quantity)
	require.Equal(t, "GBP", row.Currency)
	require.Equal(t, "432/5", row.Total.String())
	require.Equal(t, data.ValidUntil, row.ValidUntil)
	require.NotNil(t, row.DocumentKey)
	require.Equal(t, data.DocumentKey, *row.DocumentKey)
	require.True(t, row.Payload.Valid)
	require.JSONEq(t, string(ev.Data), row.Payload.JSONVal)
}

func TestQuoteGeneratedWithoutDocument(t *testing.T) {
	sink := &fakeSink{}
	require.NoError(t, newTestRouter(t, sink).Handle(context.Background(),
		quoteEvent(t, payloads.QuoteGeneratedEvent{QuoteID: "Q1", Total: decimal.NewFromInt(10)})))
	require.Nil(t, sink.rows[0].DocumentKey)
}

func TestQuoteGeneratedRejectsMissingQuoteID(t *testing.T) {
	sink := &fakeSink{}
	err := newTestRouter(t, sink).Handle(context.Background(), quoteEvent(t, map[string]string{"job_type": "cake"}))
	require.ErrorContains(t, err, "quote_id")
	require.Empty(t, sink.rows)
}

func TestQuoteGeneratedPropagatesSinkError(t *testing.T) {
	sink := &fakeSink{err: errors.New("insert failed")}
	err := newTestRouter(t, sink).Handle(context.Background(), quoteEvent(t, payloads.QuoteGeneratedEvent{QuoteID: "Q1"}))
	require.ErrorIs(t, err, sink.err)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}))
	require.Error(t, err)
	_, err = New(&fakeSink{}, nil)
	require.Error(t, err)
}

type fakeSink struct {
	rows []types.QuoteEventRow
	err  error
}

func (f *fakeSink) InsertQuoteEvent(_ context.Context, row types.QuoteEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}
