package units

import (
	"errors"
	"testing"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/shopspring/decimal"
)

func TestConvertKnownPairs(t *testing.T) {
	tests := []struct {
		qty  string
		from enums.Unit
		to   enums.Unit
		want string
	}{
		{"500", enums.UnitGram, enums.UnitKilogram, "0.5"},
		{"1.2", enums.UnitKilogram, enums.UnitGram, "1200"},
		{"250", enums.UnitMilliliter, enums.UnitLiter, "0.25"},
		{"0.3", enums.UnitLiter, enums.UnitMilliliter, "300"},
		{"12", enums.UnitEach, enums.UnitEach, "12"},
		{"7", enums.UnitKilogram, enums.UnitKilogram, "7"},
		{"0", enums.UnitGram, enums.UnitKilogram, "0"},
	}

	for _, tt := range tests {
		got, err := Convert(decimal.RequireFromString(tt.qty), tt.from, tt.to)
		if err != nil {
			t.Fatalf("%s %s->%s: unexpected error %v", tt.qty, tt.from, tt.to, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("%s %s->%s: expected %s got %s", tt.qty, tt.from, tt.to, tt.want, got)
		}
	}
}

func TestConvertRoundTripIsExact(t *testing.T) {
	q := decimal.RequireFromString("123.456")
	kg, err := Convert(q, enums.UnitGram, enums.UnitKilogram)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	back, err := Convert(kg, enums.UnitKilogram, enums.UnitGram)
	if err != nil {
		t.Fatalf("convert back: %v", err)
	}
	if !back.Equal(q) {
		t.Fatalf("round trip drifted: %s", back)
	}
}

func TestConvertAcrossFamiliesFails(t *testing.T) {
	pairs := [][2]enums.Unit{
		{enums.UnitGram, enums.UnitLiter},
		{enums.UnitEach, enums.UnitKilogram},
		{enums.UnitMilliliter, enums.UnitEach},
		{enums.Unit("cup"), enums.Unit("cup")},
	}
	for _, p := range pairs {
		_, err := Convert(decimal.NewFromInt(1), p[0], p[1])
		var mismatch *UnitMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("%s->%s: expected UnitMismatchError, got %v", p[0], p[1], err)
		}
		if mismatch.From != p[0] || mismatch.To != p[1] {
			t.Fatalf("mismatch carries wrong units: %+v", mismatch)
		}
	}
}

func TestCanConvert(t *testing.T) {
	if !CanConvert(enums.UnitMilliliter, enums.UnitLiter) {
		t.Fatalf("ml->L should convert")
	}
	if CanConvert(enums.UnitGram, enums.UnitEach) {
		t.Fatalf("g->each should not convert")
	}
}

func TestNormalize(t *testing.T) {
	got, unit, err := Normalize(decimal.NewFromInt(750), enums.UnitGram)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if unit != enums.UnitKilogram || !got.Equal(decimal.RequireFromString("0.75")) {
		t.Fatalf("unexpected normalize result %s %s", got, unit)
	}

	if _, _, err := Normalize(decimal.NewFromInt(1), enums.Unit("pinch")); err == nil {
		t.Fatalf("expected error for unknown unit")
	}
}

func TestConvertRawAcceptsCaseVariants(t *testing.T) {
	got, err := ConvertRaw(decimal.NewFromInt(300), "ML", "l")
	if err != nil {
		t.Fatalf("convert raw: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3 got %s", got)
	}
	if _, err := ConvertRaw(decimal.NewFromInt(1), "cups", "L"); err == nil {
		t.Fatalf("expected mismatch for unknown unit")
	}
}
