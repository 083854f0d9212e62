package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quotation persists an assembled quotation. Payload holds the full record
// as JSON; the scalar columns exist for listing and filtering.
type Quotation struct {
	ID           string          `gorm:"column:id;primaryKey"`
	JobType      string          `gorm:"column:job_type;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	CustomerName string          `gorm:"column:customer_name;not null"`
	Currency     string          `gorm:"column:currency;not null"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(14,4);not null"`
	DocumentKey  string          `gorm:"column:document_key"`
	Payload      string          `gorm:"column:payload;type:text;not null"`
	ValidUntil   time.Time       `gorm:"column:valid_until;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null"`
}

func (Quotation) TableName() string {
	return "quotations"
}
