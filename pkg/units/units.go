// Package units converts quantities between measurement units of the same family.
package units

import (
	"fmt"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
)

var milli = decimal.New(1, -3)
var kilo = decimal.New(1000, 0)

type pair struct {
	from enums.Unit
	to   enums.Unit
}

var factors = map[pair]decimal.Decimal{
	{enums.UnitGram, enums.UnitKilogram}:    milli,
	{enums.UnitKilogram, enums.UnitGram}:    kilo,
	{enums.UnitMilliliter, enums.UnitLiter}: milli,
	{enums.UnitLiter, enums.UnitMilliliter}: kilo,
}

// UnitMismatchError reports a conversion between units of different families.
type UnitMismatchError struct {
	From enums.Unit
	To   enums.Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

func (e *UnitMismatchError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeUnitMismatch, e.Error()).WithDetails(map[string]string{
		"from": string(e.From),
		"to":   string(e.To),
	})
}

// Convert returns quantity expressed in unit to.
func Convert(quantity decimal.Decimal, from, to enums.Unit) (decimal.Decimal, error) {
	if from == to && from.IsValid() {
		return quantity, nil
	}
	factor, ok := factors[pair{from, to}]
	if !ok {
		return decimal.Zero, &UnitMismatchError{From: from, To: to}
	}
	return quantity.Mul(factor), nil
}

// CanConvert reports whether Convert(from, to) succeeds.
func CanConvert(from, to enums.Unit) bool {
	if from == to {
		return from.IsValid()
	}
	_, ok := factors[pair{from, to}]
	return ok
}

// Normalize converts quantity into the base unit of its family.
func Normalize(quantity decimal.Decimal, unit enums.Unit) (decimal.Decimal, enums.Unit, error) {
	base := unit.Family().BaseUnit()
	if base == "" {
		return decimal.Zero, "", &UnitMismatchError{From: unit, To: base}
	}
	out, err := Convert(quantity, unit, base)
	if err != nil {
		return decimal.Zero, "", err
	}
	return out, base, nil
}

// ConvertRaw parses both unit strings before converting. Unknown units are
// reported as a mismatch carrying the raw text.
func ConvertRaw(quantity decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fu, ferr := enums.ParseUnit(from)
	tu, terr := enums.ParseUnit(to)
	if ferr != nil || terr != nil {
		return decimal.Zero, &UnitMismatchError{From: enums.Unit(from), To: enums.Unit(to)}
	}
	return Convert(quantity, fu, tu)
}
