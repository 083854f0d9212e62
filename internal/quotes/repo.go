package quotes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/repo"
	"github.com/angelmondragon/bakery-quotes/pkg/db"
	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox"
	"github.com/angelmondragon/bakery-quotes/pkg/outbox/payloads"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
	"gorm.io/gorm"
)

// EventRecorder queues domain events inside the caller's transaction.
type EventRecorder interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Repository persists quotation records in the quotations table.
type Repository struct {
	base   repo.Base
	events EventRecorder
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithEvents makes Create queue a quote.generated outbox event in the same
// transaction as the record.
func (r *Repository) WithEvents(events EventRecorder) *Repository {
	r.events = events
	return r
}

// Create inserts rec together with the key of its rendered document.
func (r *Repository) Create(ctx context.Context, rec quotation.Record, documentKey string) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode quotation: %w", err)
	}
	row := models.Quotation{
		ID:           rec.ID,
		JobType:      rec.JobType,
		Quantity:     rec.Quantity,
		CustomerName: rec.CustomerName,
		Currency:     rec.Currency,
		Total:        rec.Totals.Total,
		DocumentKey:  documentKey,
		Payload:      string(payload),
		ValidUntil:   rec.ValidUntil,
		CreatedAt:    rec.CreatedAt,
	}
	if r.events == nil {
		return insertError(r.base.DB(ctx).Create(&row).Error, rec.ID)
	}
	return r.base.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return insertError(err, rec.ID)
		}
		return r.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteGenerated,
			AggregateType: enums.AggregateQuotation,
			AggregateID:   rec.ID,
			OccurredAt:    rec.CreatedAt,
			Data: payloads.QuoteGeneratedEvent{
				QuoteID:      rec.ID,
				JobType:      rec.JobType,
				Quantity:     rec.Quantity,
				CustomerName: rec.CustomerName,
				Currency:     rec.Currency,
				Total:        rec.Totals.Total,
				DocumentKey:  documentKey,
				ValidUntil:   rec.ValidUntil,
			},
		})
	})
}

func insertError(err error, id string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "quotation "+id+" already exists")
	}
	return err
}

// Get loads the record and document key stored under id.
func (r *Repository) Get(ctx context.Context, id string) (quotation.Record, string, error) {
	var row models.Quotation
	err := r.base.DB(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return quotation.Record{}, "", repo.NotFound(err, "quotation")
	}
	var rec quotation.Record
	if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
		return quotation.Record{}, "", fmt.Errorf("decode quotation %s: %w", id, err)
	}
	return rec, row.DocumentKey, nil
}

// List returns one page of records, newest first, starting after the
// cursor. The returned cursor is empty on the last page.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]quotation.Record, string, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Validation(pkgerrors.Violation("cursor", "is invalid"))
	}
	size := params.Size()

	q := r.base.DB(ctx).Order("created_at DESC").Order("id DESC").Limit(size + 1)
	if cursor != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Quotation
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Split(rows, size, func(row models.Quotation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	out := make([]quotation.Record, 0, len(rows))
	for _, row := range rows {
		var rec quotation.Record
		if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
			return nil, "", fmt.Errorf("decode quotation %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, next, nil
}
