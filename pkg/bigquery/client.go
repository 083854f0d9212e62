// Package bigquery connects the analytics worker to the quote_events table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	gcpkg "github.com/angelmondragon/bakery-quotes/pkg/gcp"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client is bound to one dataset. Tables are created out of band; the
// client only checks they exist.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects and fails unless the dataset and the quote events
// table already exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	tables := configuredTables(cfg)
	switch {
	case project == "":
		return nil, errProjectIDRequired
	case dataset == "":
		return nil, errDatasetRequired
	case len(tables) == 0:
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, project, gcpkg.ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(dataset), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": project,
			"dataset": dataset,
			"tables":  tables,
		}), "bigquery client ready")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	if name := strings.TrimSpace(cfg.QuoteEventsTable); name != "" {
		return []string{name}
	}
	return nil
}

// Ping checks the dataset and every configured table are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describe("table", name, err)
		}
	}
	return nil
}

func describe(kind, name string, err error) error {
	if gcpkg.IsNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("check %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Rows may be ValueSavers or structs
// with bigquery tags.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
