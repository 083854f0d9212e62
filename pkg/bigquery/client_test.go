package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{QuoteEventsTable: " quote_events "})
	if len(tables) != 1 || tables[0] != "quote_events" {
		t.Fatalf("unexpected tables %v", tables)
	}
	if got := configuredTables(config.BigQueryConfig{}); len(got) != 0 {
		t.Fatalf("expected no tables, got %v", got)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "bakery", QuoteEventsTable: "quote_events"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	gcp := config.GCPConfig{ProjectID: "bakery-prod"}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{QuoteEventsTable: "quote_events"}, nil); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, gcp, config.BigQueryConfig{Dataset: "bakery"}, nil); !errors.Is(err, errTableNameRequired) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.InsertRows(context.Background(), "quote_events", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestDescribeNamesMissingResources(t *testing.T) {
	err := describe("table", "quote_events", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound}))
	if err.Error() != `table "quote_events" does not exist` {
		t.Fatalf("unexpected error %v", err)
	}
	denied := &googleapi.Error{Code: http.StatusForbidden}
	if err := describe("dataset", "bakery", denied); !errors.Is(err, denied) {
		t.Fatalf("expected wrapped permission error, got %v", err)
	}
}
