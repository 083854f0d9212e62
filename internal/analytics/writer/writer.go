// Package writer streams analytics rows into BigQuery.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/bakery-quotes/internal/analytics/types"
	"github.com/angelmondragon/bakery-quotes/pkg/gcp"
)

// Inserter is the streaming insert call of pkg/bigquery.Client.
type Inserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type Config struct {
	QuoteEventsTable string
	// BatchSize rows are buffered before a flush. Defaults to 1.
	BatchSize   int
	MaxAttempts int
	// Backoff is the first retry delay; it doubles up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 250 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Second
	}
	c.MaxBackoff = max(c.MaxBackoff, c.Backoff)
	return c
}

// Writer buffers quote_events rows. Pub/Sub runs receive callbacks
// concurrently, so the buffer is guarded by mu.
type Writer struct {
	inserter Inserter
	table    string
	cfg      Config

	mu      sync.Mutex
	pending []types.QuoteEventRow
}

func New(inserter Inserter, cfg Config) (*Writer, error) {
	if inserter == nil {
		return nil, errors.New("bigquery inserter is required")
	}
	table := strings.TrimSpace(cfg.QuoteEventsTable)
	if table == "" {
		return nil, errors.New("quote events table is required")
	}
	return &Writer{inserter: inserter, table: table, cfg: cfg.withDefaults()}, nil
}

// InsertQuoteEvent queues row and flushes once a batch is full. Rows from a
// failed flush stay queued and go out with the next one.
func (w *Writer) InsertQuoteEvent(ctx context.Context, row types.QuoteEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.cfg.BatchSize {
		return nil
	}
	return w.flush(ctx)
}

// Flush writes whatever is queued.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flush(ctx)
}

func (w *Writer) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	rows := make([]any, 0, len(w.pending))
	for i := range w.pending {
		rows = append(rows, &w.pending[i])
	}

	delay := w.cfg.Backoff
	for attempt := 1; ; attempt++ {
		err := w.inserter.InsertRows(ctx, w.table, rows)
		if err == nil {
			w.pending = w.pending[:0]
			return nil
		}
		if attempt >= w.cfg.MaxAttempts || !retryable(err) {
			return fmt.Errorf("insert %d rows into %s (attempt %d): %w", len(rows), w.table, attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, w.cfg.MaxBackoff)
	}
}

// retryable unwraps per-row insert errors; a batch is retried only when
// every failure in it is transient.
func retryable(err error) bool {
	var rows cbigquery.PutMultiError
	if errors.As(err, &rows) {
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			if !retryable(row.Errors) {
				return false
			}
		}
		return true
	}
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, e := range multi {
			if !gcp.IsTransient(e) {
				return false
			}
		}
		return true
	}
	return gcp.IsTransient(err)
}
