package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

const (
	// DefaultDir is where create and validate look on disk.
	DefaultDir = "pkg/migrate/migrations"
	// EmbeddedDir selects the migrations compiled into the binary.
	EmbeddedDir = "embedded"
)

var errNoDB = errors.New("migrate needs an open database")

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations exposes the embedded migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Dialect maps a configured database driver to its goose dialect.
func Dialect(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// prepare configures goose for driver and returns the directory it should
// read. EmbeddedDir selects the files compiled into the binary.
func prepare(driver, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("migrations dir is empty")
	}
	dialect, err := Dialect(driver)
	if err != nil {
		return "", err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	if dir != EmbeddedDir {
		goose.SetBaseFS(nil)
		return dir, nil
	}
	goose.SetBaseFS(Migrations())
	return ".", nil
}

// Run runs one goose command (up, down, status, ...) against sqlDB. Status
// output goes to stdout.
func Run(ctx context.Context, sqlDB *sql.DB, driver, dir, command string, args ...string) error {
	if sqlDB == nil {
		return errNoDB
	}
	path, err := prepare(driver, dir)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, sqlDB, path, args...); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

// ToVersion moves the schema up or down until it sits at version.
func ToVersion(ctx context.Context, sqlDB *sql.DB, driver, dir, version string) error {
	if sqlDB == nil {
		return errNoDB
	}
	target, err := strconv.ParseInt(strings.TrimSpace(version), 10, 64)
	if err != nil {
		return fmt.Errorf("migration version %q is not a YYYYMMDDHHMMSS number", version)
	}
	path, err := prepare(driver, dir)
	if err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	move, verb := goose.UpToContext, "up"
	switch {
	case current == target:
		return nil
	case current > target:
		move, verb = goose.DownToContext, "down"
	}
	if err := move(ctx, sqlDB, path, target); err != nil {
		return fmt.Errorf("migrate %s to %d: %w", verb, target, err)
	}
	return nil
}
