package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish returns the oldest unpublished rows that still
// have attempts left. On postgres the rows stay locked until tx ends and rows
// locked by another publisher are skipped.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		tx = r.db
	}
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	err := tx.Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkTerminalTx parks a row by raising its attempt count to the cap so
// FetchUnpublishedForPublish skips it.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": terminalAttempts,
		}).Error
}

// DeleteSettledBefore removes published rows and parked rows created before
// cutoff. Rows still eligible for publishing are never removed.
func (r *Repository) DeleteSettledBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).
		Where("created_at < ?", cutoff.UTC()).
		Where("published_at IS NOT NULL OR attempt_count >= ?", maxAttempts).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// Backlog summarises rows the publisher has not delivered.
type Backlog struct {
	Stale  int64
	Parked int64
}

// CountBacklog counts unpublished rows older than staleBefore that can still
// be retried, and rows parked at maxAttempts.
func (r *Repository) CountBacklog(ctx context.Context, staleBefore time.Time, maxAttempts int) (Backlog, error) {
	var out Backlog
	base := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("published_at IS NULL")
	if err := base.Session(&gorm.Session{}).
		Where("attempt_count < ? AND created_at < ?", maxAttempts, staleBefore.UTC()).
		Count(&out.Stale).Error; err != nil {
		return Backlog{}, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("attempt_count >= ?", maxAttempts).
		Count(&out.Parked).Error; err != nil {
		return Backlog{}, err
	}
	return out, nil
}
