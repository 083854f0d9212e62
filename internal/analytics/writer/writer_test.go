package writer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/types"
)

func newTestWriter(t *testing.T, batch int, responses ...error) (*Writer, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{responses: responses}
	w, err := New(fake, Config{
		QuoteEventsTable: "quote_events",
		BatchSize:        batch,
		Backoff:          time.Millisecond,
		MaxBackoff:       2 * time.Millisecond,
	})
	require.NoError(t, err)
	return w, fake
}

func row(id string) types.QuoteEventRow { return types.QuoteEventRow{EventID: id} }

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{QuoteEventsTable: "quote_events"})
	require.Error(t, err)
	_, err = New(&fakeInserter{}, Config{QuoteEventsTable: " "})
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 1, cfg.BatchSize)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Backoff)
	require.Equal(t, 2*time.Second, cfg.MaxBackoff)

	cfg = Config{Backoff: 5 * time.Second, MaxBackoff: time.Second}.withDefaults()
	require.Equal(t, 5*time.Second, cfg.MaxBackoff)
}

func TestRetriesTransientFailure(t *testing.T) {
	w, fake := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusServiceUnavailable}, nil)

	require.NoError(t, w.InsertQuoteEvent(context.Background(), row("1")))
	require.Len(t, fake.calls, 2)
	require.Equal(t, "quote_events", fake.calls[1].table)
	require.Empty(t, w.pending)
}

func TestStopsOnPermanentFailure(t *testing.T) {
	w, fake := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusBadRequest})

	require.Error(t, w.InsertQuoteEvent(context.Background(), row("1")))
	require.Len(t, fake.calls, 1)
	require.Len(t, w.pending, 1, "failed rows stay queued")
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "try later")
	w, fake := newTestWriter(t, 1, unavailable, unavailable, unavailable, unavailable)

	err := w.InsertQuoteEvent(context.Background(), row("1"))
	require.ErrorContains(t, err, "attempt 3")
	require.Len(t, fake.calls, 3)
}

func TestBatchesRows(t *testing.T) {
	w, fake := newTestWriter(t, 2)

	require.NoError(t, w.InsertQuoteEvent(context.Background(), row("1")))
	require.Empty(t, fake.calls)
	require.NoError(t, w.InsertQuoteEvent(context.Background(), row("2")))
	require.Equal(t, []insertCall{{table: "quote_events", rows: 2}}, fake.calls)
}

func TestFlushWritesPartialBatch(t *testing.T) {
	w, fake := newTestWriter(t, 10)
	require.NoError(t, w.Flush(context.Background()))
	require.Empty(t, fake.calls)

	require.NoError(t, w.InsertQuoteEvent(context.Background(), row("1")))
	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, fake.calls, 1)
	require.Empty(t, w.pending)
}

func TestCanceledContextStopsRetry(t *testing.T) {
	w, fake := newTestWriter(t, 1, &googleapi.Error{Code: http.StatusServiceUnavailable})
	w.cfg.Backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, w.InsertQuoteEvent(ctx, row("1")), context.Canceled)
	require.Len(t, fake.calls, 1)
}

func TestRetryable(t *testing.T) {
	transient := &googleapi.Error{Code: http.StatusInternalServerError}
	cases := map[string]struct {
		err  error
		want bool
	}{
		"transient api error": {transient, true},
		"invalid argument":    {status.Error(codes.InvalidArgument, "x"), false},
		"row errors transient": {cbigquery.PutMultiError{
			{Errors: cbigquery.MultiError{transient}},
		}, true},
		"row errors mixed": {cbigquery.PutMultiError{
			{Errors: cbigquery.MultiError{transient}},
			{Errors: cbigquery.MultiError{errors.New("invalid field")}},
		}, false},
		"empty row errors": {cbigquery.PutMultiError{}, false},
		"plain":            {errors.New("boom"), false},
	}
	for name, tc := range cases {
		require.Equal(t, tc.want, retryable(tc.err), name)
	}
}

type insertCall struct {
	table string
	rows  int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: len(rows)})
	if len(f.responses) == 0 {
		return nil
	}
	err := f.responses[0]
	f.responses = f.responses[1:]
	return err
}
