// Package repo holds the gorm plumbing shared by the materials and
// quotations repositories.
package repo

import (
	"context"
	"errors"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"gorm.io/gorm"
)

// Base wraps the connection a repository was built with.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx. A nil ctx returns the bare connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// InTx runs fn inside one transaction bound to ctx. The transaction is
// rolled back when fn returns an error.
func (b Base) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// NotFound turns gorm.ErrRecordNotFound into a CodeNotFound API error named
// after entity. Other errors pass through unchanged.
func NotFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return err
}
