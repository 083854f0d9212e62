package materials

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the batched lookup the resolver needs.
type Store interface {
	FindByNames(ctx context.Context, names []string) ([]Record, error)
}

// Catalog adds the price list maintenance operations.
type Catalog interface {
	Store
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, name string) (Record, error)
	Search(ctx context.Context, pattern string) ([]Record, error)
	Upsert(ctx context.Context, record Record) (Record, error)
	UpdateCost(ctx context.Context, name string, cost decimal.Decimal) (Record, error)
}
