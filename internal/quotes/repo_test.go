package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/payloads"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

func storedRecord(id string, created time.Time) quotation.Record {
	return quotation.Record{
		ID:           id,
		CreatedAt:    created,
		ValidUntil:   created.AddDate(0, 0, 30),
		CustomerName: "Jane Doe",
		JobType:      "cupcakes",
		Quantity:     24,
		Currency:     "GBP",
		Totals:       pricing.Totals{Total: d("45.5645")},
	}
}

func TestRepositoryCreateQueuesEvent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}))
	events := outbox.NewService(outbox.NewRepository(db), nil)
	repo := NewRepository(db).WithEvents(events)

	created := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	rec := storedRecord("Q20260402_103000_1_ab12cd", created)
	require.NoError(t, repo.Create(context.Background(), rec, "quotes/Q20260402_103000_1_ab12cd.md"))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventQuoteGenerated, rows[0].EventType)
	require.Equal(t, enums.AggregateQuotation, rows[0].AggregateType)
	require.Equal(t, rec.ID, rows[0].AggregateID)

	env, err := outbox.Open(rows[0].Payload)
	require.NoError(t, err)
	require.True(t, env.OccurredAt.Equal(created))
	var payload payloads.QuoteGeneratedEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, rec.ID, payload.QuoteID)
	require.Equal(t, "quotes/Q20260402_103000_1_ab12cd.md", payload.DocumentKey)
	require.True(t, payload.Total.Equal(d("45.5645")))
}

type failingRecorder struct{}

func (failingRecorder) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestRepositoryCreateRollsBackWhenEventFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db).WithEvents(failingRecorder{})

	rec := storedRecord("Q20260402_103000_2_ab12cd", time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC))
	require.Error(t, repo.Create(context.Background(), rec, ""))

	_, _, err := repo.Get(context.Background(), rec.ID)
	require.Error(t, err, "record must not survive a failed event write")
}

func TestRepositoryCreateDuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	rec := storedRecord("Q20260402_103000_3_ab12cd", time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC))
	require.NoError(t, repo.Create(context.Background(), rec, ""))

	err := repo.Create(context.Background(), rec, "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestRepositoryListOrdersByCreatedAtThenID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, storedRecord("Q20260402_103000_1_aaaaaa", base), ""))
	require.NoError(t, repo.Create(ctx, storedRecord("Q20260402_103000_2_bbbbbb", base), ""))
	require.NoError(t, repo.Create(ctx, storedRecord("Q20260402_113000_3_cccccc", base.Add(time.Hour)), ""))

	recs, next, err := repo.List(ctx, paginationParams(2, ""))
	require.NoError(t, err)
	require.Equal(t, []string{"Q20260402_113000_3_cccccc", "Q20260402_103000_2_bbbbbb"}, ids(recs))
	require.NotEmpty(t, next)

	recs, next, err = repo.List(ctx, paginationParams(2, next))
	require.NoError(t, err)
	require.Equal(t, []string{"Q20260402_103000_1_aaaaaa"}, ids(recs))
	require.Empty(t, next)
}

func ids(recs []quotation.Record) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.ID)
	}
	return out
}

func paginationParams(limit int, cursor string) pagination.Params {
	return pagination.Params{Limit: limit, Cursor: cursor}
}
