package materials

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestServiceSetNormalizesInput(t *testing.T) {
	catalog := &fakeCatalog{}
	svc, err := NewService(catalog, "GBP")
	require.NoError(t, err)

	got, err := svc.Set(context.Background(), SetMaterialInput{
		Name:     "  Cocoa ",
		Unit:     "KG",
		UnitCost: decimal.RequireFromString("6.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "cocoa", got.Name)
	require.Equal(t, enums.UnitKilogram, got.Unit)
	require.Equal(t, "GBP", got.Currency)
	require.Len(t, catalog.upserts, 1)
}

func TestServiceSetCollectsViolations(t *testing.T) {
	svc, err := NewService(&fakeCatalog{}, "GBP")
	require.NoError(t, err)

	_, err = svc.Set(context.Background(), SetMaterialInput{
		Unit:     "cups",
		UnitCost: decimal.RequireFromString("-1"),
		Currency: "pounds",
	})
	var verr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"currency", "name", "unit", "unit_cost"}, verr.Fields())
}

func TestServiceUpdateCostRejectsNegative(t *testing.T) {
	svc, err := NewService(&fakeCatalog{}, "GBP")
	require.NoError(t, err)

	_, err = svc.UpdateCost(context.Background(), "flour", decimal.RequireFromString("-0.01"))
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceSearchBlankListsAll(t *testing.T) {
	catalog := &fakeCatalog{fakeStore: fakeStore{records: priceList()}}
	svc, err := NewService(catalog, "GBP")
	require.NoError(t, err)

	got, err := svc.Search(context.Background(), " ")
	require.NoError(t, err)
	require.Len(t, got, 3)
}
