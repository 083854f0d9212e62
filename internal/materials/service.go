package materials

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Service exposes price list maintenance to the API and CLI.
type Service interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, name string) (Record, error)
	Search(ctx context.Context, pattern string) ([]Record, error)
	Set(ctx context.Context, input SetMaterialInput) (Record, error)
	UpdateCost(ctx context.Context, name string, cost decimal.Decimal) (Record, error)
}

// SetMaterialInput adds a material or replaces its unit, cost and currency.
type SetMaterialInput struct {
	Name     string          `json:"name"`
	Unit     string          `json:"unit" validate:"required"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Currency string          `json:"currency"`
}

type service struct {
	catalog         Catalog
	defaultCurrency string
}

// NewService wires the maintenance service over a catalog.
func NewService(catalog Catalog, defaultCurrency string) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("material catalog required")
	}
	return &service{catalog: catalog, defaultCurrency: defaultCurrency}, nil
}

func (s *service) List(ctx context.Context) ([]Record, error) {
	return s.catalog.List(ctx)
}

func (s *service) Get(ctx context.Context, name string) (Record, error) {
	if NormalizeName(name) == "" {
		return Record{}, pkgerrors.Validation(pkgerrors.Violation("name", "is required"))
	}
	return s.catalog.Get(ctx, name)
}

func (s *service) Search(ctx context.Context, pattern string) ([]Record, error) {
	if strings.TrimSpace(pattern) == "" {
		return s.catalog.List(ctx)
	}
	return s.catalog.Search(ctx, pattern)
}

func (s *service) Set(ctx context.Context, input SetMaterialInput) (Record, error) {
	var errs error
	name := NormalizeName(input.Name)
	if name == "" {
		errs = multierr.Append(errs, pkgerrors.Violation("name", "is required"))
	}
	unit, err := enums.ParseUnit(input.Unit)
	if err != nil {
		errs = multierr.Append(errs, pkgerrors.Violation("unit", "must be one of g, kg, ml, L, each"))
	}
	if input.UnitCost.IsNegative() {
		errs = multierr.Append(errs, pkgerrors.Violation("unit_cost", "must be zero or greater"))
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !isCurrencyCode(currency) {
		errs = multierr.Append(errs, pkgerrors.Violation("currency", "must be a 3-letter code"))
	}
	if errs != nil {
		return Record{}, pkgerrors.Validation(errs)
	}

	return s.catalog.Upsert(ctx, Record{
		Name:     name,
		Unit:     unit,
		UnitCost: input.UnitCost,
		Currency: currency,
	})
}

func (s *service) UpdateCost(ctx context.Context, name string, cost decimal.Decimal) (Record, error) {
	var errs error
	if NormalizeName(name) == "" {
		errs = multierr.Append(errs, pkgerrors.Violation("name", "is required"))
	}
	if cost.IsNegative() {
		errs = multierr.Append(errs, pkgerrors.Violation("unit_cost", "must be zero or greater"))
	}
	if errs != nil {
		return Record{}, pkgerrors.Validation(errs)
	}
	return s.catalog.UpdateCost(ctx, name, cost)
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
