// Package db owns the gorm connection shared by the API and the workers.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

// Client pairs the gorm handle with the pool underneath it.
type Client struct {
	gorm   *gorm.DB
	pool   *sql.DB
	driver string
}

// New opens the configured database, sizes the pool and pings once.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	gdb, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:                 gormLogger(logg, cfg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	c, err := wrap(gdb, cfg.Driver)
	if err != nil {
		return nil, err
	}
	tunePool(c.pool, cfg)

	if err := c.Ping(ctx); err != nil {
		_ = c.pool.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         cfg.Driver,
			"max_open_conns": cfg.MaxOpenConns,
		}), "database connected")
	}
	return c, nil
}

func wrap(gdb *gorm.DB, driver string) (*Client, error) {
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql pool: %w", err)
	}
	return &Client{gorm: gdb, pool: pool, driver: driver}, nil
}

func gormLogger(logg *logger.Logger, cfg config.DBConfig) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return newQueryLogger(logg, cfg.SlowQuery)
}

func dialector(cfg config.DBConfig) gorm.Dialector {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN)
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
}

// tunePool applies the positive limits in cfg; zero keeps the driver default.
func tunePool(pool *sql.DB, cfg config.DBConfig) {
	if n := cfg.MaxOpenConns; n > 0 {
		pool.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		pool.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		pool.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		pool.SetConnMaxIdleTime(d)
	}
}

func (c *Client) Driver() string { return c.driver }

func (c *Client) DB() *gorm.DB { return c.gorm }

// SQL returns the underlying pool, used by migrations.
func (c *Client) SQL() *sql.DB { return c.pool }

// Collector exports pool statistics as go_sql_* metrics labeled db_name.
func (c *Client) Collector(name string) prometheus.Collector {
	return collectors.NewDBStatsCollector(c.pool, name)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.pool.Close()
}

// WithTx runs fn in one transaction bound to ctx. An error or panic from fn
// rolls it back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.gorm.WithContext(ctx).Transaction(fn)
}
