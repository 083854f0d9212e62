package pricing

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cupcakeLines() []Line {
	return []Line{
		{Name: "flour", Quantity: d("1.92"), Unit: enums.UnitKilogram, UnitCost: d("0.90")},
		{Name: "sugar", Quantity: d("1.44"), Unit: enums.UnitKilogram, UnitCost: d("0.70")},
		{Name: "butter", Quantity: d("0.96"), Unit: enums.UnitKilogram, UnitCost: d("4.50")},
		{Name: "eggs", Quantity: d("12"), Unit: enums.UnitEach, UnitCost: d("0.18")},
		{Name: "milk", Quantity: d("1.2"), Unit: enums.UnitLiter, UnitCost: d("0.60")},
		{Name: "vanilla", Quantity: d("24"), Unit: enums.UnitMilliliter, UnitCost: d("0.05")},
		{Name: "baking_powder", Quantity: d("0.024"), Unit: enums.UnitKilogram, UnitCost: d("3.00")},
	}
}

func defaultRates() Rates {
	return Rates{LaborRate: d("15.00"), MarkupPct: d("0.30"), VATPct: d("0.20")}
}

func TestComputeCupcakeScenario(t *testing.T) {
	res, err := Compute(cupcakeLines(), d("1.2"), 24, defaultRates())
	require.NoError(t, err)

	tot := res.Totals
	checks := map[string][2]decimal.Decimal{
		"materials_subtotal": {tot.MaterialsSubtotal, d("11.208")},
		"labor_cost":         {tot.LaborCost, d("18")},
		"subtotal":           {tot.Subtotal, d("29.208")},
		"markup_value":       {tot.MarkupValue, d("8.7624")},
		"price_before_vat":   {tot.PriceBeforeVAT, d("37.9704")},
		"vat_value":          {tot.VATValue, d("7.59408")},
		"total":              {tot.Total, d("45.56448")},
		"unit_price":         {tot.UnitPrice, d("1.89852")},
	}
	for name, pair := range checks {
		if !pair[0].Equal(pair[1]) {
			t.Fatalf("%s: expected %s got %s", name, pair[1], pair[0])
		}
	}
	require.Equal(t, "45.56", tot.Total.StringFixed(2))
	require.Len(t, res.Lines, 7)
	require.Equal(t, "vanilla", res.Lines[5].Name)
	require.True(t, res.Lines[5].LineCost.Equal(d("1.2")))
}

func TestComputeIsOrderIndependent(t *testing.T) {
	lines := cupcakeLines()
	reversed := make([]Line, len(lines))
	for i := range lines {
		reversed[len(lines)-1-i] = lines[i]
	}

	a, err := Compute(lines, d("1.2"), 24, defaultRates())
	require.NoError(t, err)
	b, err := Compute(reversed, d("1.2"), 24, defaultRates())
	require.NoError(t, err)

	tolerance := d("0.000000001")
	if a.Totals.Total.Sub(b.Totals.Total).Abs().GreaterThan(tolerance) {
		t.Fatalf("totals differ: %s vs %s", a.Totals.Total, b.Totals.Total)
	}
	require.Equal(t, "baking_powder", b.Lines[0].Name)
}

func TestComputeZeroRatesAndNoMaterials(t *testing.T) {
	res, err := Compute(nil, d("2"), 1, Rates{LaborRate: d("10")})
	require.NoError(t, err)
	require.True(t, res.Totals.Total.Equal(d("20")))
	require.True(t, res.Totals.VATValue.IsZero())
	require.Empty(t, res.Lines)
}

func TestComputeRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -3} {
		_, err := Compute(cupcakeLines(), d("1"), qty, defaultRates())
		var verr *pkgerrors.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("quantity %d: expected validation error, got %v", qty, err)
		}
		require.True(t, verr.Has("quantity"))
	}
}

func TestComputeReportsEveryBadRate(t *testing.T) {
	rates := Rates{LaborRate: d("-1"), MarkupPct: d("-0.1"), VATPct: d("1.5")}
	_, err := Compute(cupcakeLines(), d("-1"), 0, rates)

	var verr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"labor_hours", "labor_rate", "markup_pct", "quantity", "vat_pct"}, verr.Fields())
}

func TestRatesValidateBoundaries(t *testing.T) {
	require.NoError(t, Rates{VATPct: d("1")}.Validate())
	require.NoError(t, Rates{VATPct: d("0")}.Validate())
	require.Error(t, Rates{VATPct: d("1.0001")}.Validate())
}

func TestBreakdownFormatsMoney(t *testing.T) {
	res, err := Compute(cupcakeLines(), d("1.2"), 24, defaultRates())
	require.NoError(t, err)

	out := Breakdown(res, "GBP")
	require.Contains(t, out, "GBP 45.56")
	require.Contains(t, out, "Markup (30%)")
	require.Contains(t, out, "VAT (20%)")
	require.True(t, strings.Contains(out, "flour"))
}
