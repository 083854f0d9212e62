package enums

import (
	"fmt"
	"strings"
)

// Unit is a measurement unit used by material cost records and BOM lines.
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "L"
	UnitEach       Unit = "each"
)

var validUnits = []Unit{
	UnitGram,
	UnitKilogram,
	UnitMilliliter,
	UnitLiter,
	UnitEach,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the unit is recognized.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit. Matching ignores case and
// surrounding whitespace, so "l" and " KG " are accepted.
func ParseUnit(value string) (Unit, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validUnits {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}

// UnitFamily groups units that convert into each other.
type UnitFamily string

const (
	FamilyMass   UnitFamily = "mass"
	FamilyVolume UnitFamily = "volume"
	FamilyCount  UnitFamily = "count"
)

// Family returns the family of u, or "" for unknown units.
func (u Unit) Family() UnitFamily {
	switch u {
	case UnitGram, UnitKilogram:
		return FamilyMass
	case UnitMilliliter, UnitLiter:
		return FamilyVolume
	case UnitEach:
		return FamilyCount
	default:
		return ""
	}
}

// BaseUnit is the unit prices are normally quoted in for the family.
func (f UnitFamily) BaseUnit() Unit {
	switch f {
	case FamilyMass:
		return UnitKilogram
	case FamilyVolume:
		return UnitLiter
	case FamilyCount:
		return UnitEach
	default:
		return ""
	}
}
