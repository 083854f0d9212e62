package payloads

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteGeneratedEvent is published once a quotation is stored.
type QuoteGeneratedEvent struct {
	QuoteID      string          `json:"quote_id"`
	JobType      string          `json:"job_type"`
	Quantity     int             `json:"quantity"`
	CustomerName string          `json:"customer_name"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	DocumentKey  string          `json:"document_key,omitempty"`
	ValidUntil   time.Time       `json:"valid_until"`
}
