// Package quotation defines the immutable quotation record and its identifiers.
package quotation

import (
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/pricing"
)

// DateLayout is the calendar date format used for due dates and validity.
const DateLayout = "2006-01-02"

// Record is one priced job. It is built once by the assembler and never
// mutated afterwards; Lines is owned by the record.
type Record struct {
	ID           string             `json:"quote_id"`
	CreatedAt    time.Time          `json:"created_at"`
	ValidUntil   time.Time          `json:"valid_until"`
	CustomerName string             `json:"customer_name"`
	CompanyName  string             `json:"company_name"`
	JobType      string             `json:"job_type"`
	Quantity     int                `json:"quantity"`
	DueDate      string             `json:"due_date"`
	Currency     string             `json:"currency"`
	Notes        string             `json:"notes"`
	Rates        pricing.Rates      `json:"rates"`
	Lines        []pricing.LineItem `json:"lines"`
	Totals       pricing.Totals     `json:"totals"`
}

// QuoteDate is the creation date in DateLayout.
func (r Record) QuoteDate() string {
	return r.CreatedAt.Format(DateLayout)
}

// ValidUntilDate is the last valid day in DateLayout.
func (r Record) ValidUntilDate() string {
	return r.ValidUntil.Format(DateLayout)
}

// LineNames lists material names in record order.
func (r Record) LineNames() []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, l.Name)
	}
	return out
}
