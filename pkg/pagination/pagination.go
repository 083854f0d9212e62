// Package pagination implements keyset pagination over rows ordered by
// created_at DESC, id DESC.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrBadCursor is returned for tokens that were not produced by Encode.
var ErrBadCursor = errors.New("pagination: malformed cursor")

// Params is a page request as received from a caller.
type Params struct {
	Limit  int
	Cursor string
}

// Size is Limit clamped to [1, MaxLimit], or DefaultLimit when unset.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// Cursor is the key of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// Encode renders c as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(Cursor{CreatedAt: c.CreatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token from Encode. A blank token means the first page and
// yields nil.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.CreatedAt.IsZero() {
		return nil, ErrBadCursor
	}
	return &c, nil
}

// Split cuts rows, fetched with a limit of size+1, down to one page. The
// returned token is empty on the last page.
func Split[T any](rows []T, size int, key func(T) Cursor) ([]T, string) {
	if len(rows) <= size {
		return rows, ""
	}
	page := rows[:size]
	return page, key(page[size-1]).Encode()
}
