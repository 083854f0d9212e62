package types

import (
	"encoding/json"
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// QuoteEventRow mirrors the quote_events BigQuery schema. Total is a NUMERIC
// column, so it travels as *big.Rat.
type QuoteEventRow struct {
	EventID      string             `bigquery:"event_id"`
	EventType    string             `bigquery:"event_type"`
	OccurredAt   time.Time          `bigquery:"occurred_at"`
	QuoteID      string             `bigquery:"quote_id"`
	JobType      string             `bigquery:"job_type"`
	Quantity     int64              `bigquery:"quantity"`
	CustomerName string             `bigquery:"customer_name"`
	Currency     string             `bigquery:"currency"`
	Total        *big.Rat           `bigquery:"total"`
	ValidUntil   time.Time          `bigquery:"valid_until"`
	DocumentKey  *string            `bigquery:"document_key"`
	Payload      cbigquery.NullJSON `bigquery:"payload"`
}

// JSONColumn wraps raw for a nullable JSON column. Empty input is NULL.
func JSONColumn(raw json.RawMessage) cbigquery.NullJSON {
	if len(raw) == 0 {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}
}
