// Package pricing turns converted material lines and labor into quotation totals.
package pricing

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Rates are the pricing parameters applied to one quotation.
type Rates struct {
	LaborRate decimal.Decimal `json:"labor_rate"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
	VATPct    decimal.Decimal `json:"vat_pct"`
}

// Validate checks labor rate >= 0, markup >= 0 and VAT within [0, 1].
func (r Rates) Validate() error {
	var errs error
	if r.LaborRate.IsNegative() {
		errs = multierr.Append(errs, pkgerrors.Violation("labor_rate", "must be zero or greater"))
	}
	if r.MarkupPct.IsNegative() {
		errs = multierr.Append(errs, pkgerrors.Violation("markup_pct", "must be zero or greater"))
	}
	if r.VATPct.IsNegative() || r.VATPct.GreaterThan(decimal.NewFromInt(1)) {
		errs = multierr.Append(errs, pkgerrors.Violation("vat_pct", "must be between 0 and 1"))
	}
	return pkgerrors.Validation(errs)
}

// Line is a material already converted into the unit its cost is quoted in.
type Line struct {
	Name     string
	Quantity decimal.Decimal
	Unit     enums.Unit
	UnitCost decimal.Decimal
}

// LineItem is a priced Line.
type LineItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"qty"`
	Unit     enums.Unit      `json:"unit"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	LineCost decimal.Decimal `json:"line_cost"`
}

// Totals holds every derived amount of a quotation, unrounded.
type Totals struct {
	MaterialsSubtotal decimal.Decimal `json:"materials_subtotal"`
	LaborHours        decimal.Decimal `json:"labor_hours"`
	LaborRate         decimal.Decimal `json:"labor_rate"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	MarkupPct         decimal.Decimal `json:"markup_pct"`
	MarkupValue       decimal.Decimal `json:"markup_value"`
	PriceBeforeVAT    decimal.Decimal `json:"price_before_vat"`
	VATPct            decimal.Decimal `json:"vat_pct"`
	VATValue          decimal.Decimal `json:"vat_value"`
	Total             decimal.Decimal `json:"total"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

// Result pairs the priced lines with the totals.
type Result struct {
	Lines  []LineItem `json:"lines"`
	Totals Totals     `json:"totals"`
}

// Compute prices lines and applies labor, markup and VAT in that order.
// quantity is the number of units ordered and only divides the total.
func Compute(lines []Line, laborHours decimal.Decimal, quantity int, rates Rates) (Result, error) {
	var errs error
	if quantity <= 0 {
		errs = multierr.Append(errs, pkgerrors.Violation("quantity", "must be greater than zero"))
	}
	if laborHours.IsNegative() {
		errs = multierr.Append(errs, pkgerrors.Violation("labor_hours", "must be zero or greater"))
	}
	for i, line := range lines {
		if line.Quantity.IsNegative() {
			errs = multierr.Append(errs, pkgerrors.Violation(fmt.Sprintf("lines[%d].qty", i), "must be zero or greater"))
		}
		if line.UnitCost.IsNegative() {
			errs = multierr.Append(errs, pkgerrors.Violation(fmt.Sprintf("lines[%d].unit_cost", i), "must be zero or greater"))
		}
	}
	if err := rates.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return Result{}, flatten(errs)
	}

	items := make([]LineItem, 0, len(lines))
	materials := decimal.Zero
	for _, line := range lines {
		cost := line.Quantity.Mul(line.UnitCost)
		materials = materials.Add(cost)
		items = append(items, LineItem{
			Name:     line.Name,
			Quantity: line.Quantity,
			Unit:     line.Unit,
			UnitCost: line.UnitCost,
			LineCost: cost,
		})
	}

	labor := laborHours.Mul(rates.LaborRate)
	subtotal := materials.Add(labor)
	markup := subtotal.Mul(rates.MarkupPct)
	beforeVAT := subtotal.Add(markup)
	vat := beforeVAT.Mul(rates.VATPct)
	total := beforeVAT.Add(vat)

	return Result{
		Lines: items,
		Totals: Totals{
			MaterialsSubtotal: materials,
			LaborHours:        laborHours,
			LaborRate:         rates.LaborRate,
			LaborCost:         labor,
			Subtotal:          subtotal,
			MarkupPct:         rates.MarkupPct,
			MarkupValue:       markup,
			PriceBeforeVAT:    beforeVAT,
			VATPct:            rates.VATPct,
			VATValue:          vat,
			Total:             total,
			UnitPrice:         total.Div(decimal.NewFromInt(int64(quantity))),
		},
	}, nil
}

// flatten merges nested validation errors into a single ValidationError.
func flatten(errs error) error {
	var all error
	for _, e := range multierr.Errors(errs) {
		if verr, ok := e.(*pkgerrors.ValidationError); ok {
			for _, v := range verr.Violations {
				all = multierr.Append(all, v)
			}
			continue
		}
		all = multierr.Append(all, e)
	}
	return pkgerrors.Validation(all)
}

// Breakdown renders a plain-text cost summary with two-decimal money values.
func Breakdown(res Result, currency string) string {
	t := res.Totals
	var b strings.Builder
	row := func(label string, amount decimal.Decimal) {
		fmt.Fprintf(&b, "%-24s %s %s\n", label, currency, amount.StringFixed(2))
	}
	for _, item := range res.Lines {
		fmt.Fprintf(&b, "  %-22s %s %s @ %s = %s %s\n",
			item.Name, item.Quantity.String(), item.Unit, item.UnitCost.StringFixed(2), currency, item.LineCost.StringFixed(2))
	}
	row("Materials", t.MaterialsSubtotal)
	row(fmt.Sprintf("Labor (%sh)", t.LaborHours.StringFixed(2)), t.LaborCost)
	row("Subtotal", t.Subtotal)
	row(fmt.Sprintf("Markup (%s%%)", t.MarkupPct.Shift(2).StringFixed(0)), t.MarkupValue)
	row("Price before VAT", t.PriceBeforeVAT)
	row(fmt.Sprintf("VAT (%s%%)", t.VATPct.Shift(2).StringFixed(0)), t.VATValue)
	row("TOTAL", t.Total)
	row("Per unit", t.UnitPrice)
	return b.String()
}
