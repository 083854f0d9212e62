package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
)

const pgUniqueViolation = "23505"

const sqliteUniqueFailed = "UNIQUE constraint failed"

// IsUniqueViolation reports a unique-constraint failure from Postgres (by
// SQLSTATE) or SQLite (by message). A non-empty constraint narrows the match.
func IsUniqueViolation(err error, constraint string) bool {
	return UniqueKey{Constraint: constraint, Columns: constraint}.Violated(err)
}

// UniqueKey names one unique index the way each driver reports it. Postgres
// gives the constraint name; SQLite lists the indexed columns, e.g.
// "outbox_events.event_type, outbox_events.aggregate_id".
type UniqueKey struct {
	Constraint string
	Columns    string
}

// Violated reports whether err is a unique violation of k. Empty fields match
// any unique violation on that driver.
func (k UniqueKey) Violated(err error) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresDetail(err); ok {
		return pg.Code == pgUniqueViolation && (k.Constraint == "" || pg.Constraint == k.Constraint)
	}
	msg := err.Error()
	i := strings.Index(msg, sqliteUniqueFailed)
	if i < 0 {
		return false
	}
	if k.Columns == "" {
		return true
	}
	cols := strings.TrimPrefix(msg[i+len(sqliteUniqueFailed):], ":")
	if j := strings.Index(cols, " ("); j >= 0 {
		cols = cols[:j]
	}
	return strings.TrimSpace(cols) == k.Columns
}
