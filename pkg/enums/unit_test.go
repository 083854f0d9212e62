package enums

import "testing"

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
	}{
		{"g", UnitGram},
		{" KG ", UnitKilogram},
		{"ML", UnitMilliliter},
		{"l", UnitLiter},
		{"L", UnitLiter},
		{"Each", UnitEach},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if err != nil {
			t.Fatalf("ParseUnit(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !got.IsValid() {
			t.Fatalf("%q not valid", got)
		}
	}

	for _, bad := range []string{"", "cup", "kgs", "lb"} {
		if _, err := ParseUnit(bad); err == nil {
			t.Fatalf("ParseUnit(%q) expected error", bad)
		}
	}
	if Unit("l").IsValid() {
		t.Fatal("lower-case liter should only be accepted through ParseUnit")
	}
}

func TestUnitFamilyAndBaseUnit(t *testing.T) {
	tests := []struct {
		unit   Unit
		family UnitFamily
		base   Unit
	}{
		{UnitGram, FamilyMass, UnitKilogram},
		{UnitKilogram, FamilyMass, UnitKilogram},
		{UnitMilliliter, FamilyVolume, UnitLiter},
		{UnitLiter, FamilyVolume, UnitLiter},
		{UnitEach, FamilyCount, UnitEach},
	}
	for _, tt := range tests {
		if got := tt.unit.Family(); got != tt.family {
			t.Fatalf("%s.Family() = %q, want %q", tt.unit, got, tt.family)
		}
		if got := tt.unit.Family().BaseUnit(); got != tt.base {
			t.Fatalf("%s base unit = %q, want %q", tt.unit, got, tt.base)
		}
	}

	if f := Unit("cup").Family(); f != "" {
		t.Fatalf("unknown unit family = %q", f)
	}
	if b := UnitFamily("").BaseUnit(); b != "" {
		t.Fatalf("unknown family base = %q", b)
	}
}

func TestParseIntakeState(t *testing.T) {
	got, err := ParseIntakeState("confirming")
	if err != nil || got != IntakeConfirming {
		t.Fatalf("ParseIntakeState = %q, %v", got, err)
	}
	if _, err := ParseIntakeState("Confirming"); err == nil {
		t.Fatal("intake states are case sensitive")
	}
	if !IntakeDone.IsTerminal() || IntakeConfirming.IsTerminal() {
		t.Fatal("only done is terminal")
	}
}

func TestOutboxEventAggregate(t *testing.T) {
	e, err := ParseOutboxEventType("quote.generated")
	if err != nil {
		t.Fatalf("ParseOutboxEventType: %v", err)
	}
	if a, ok := e.Aggregate(); !ok || a != AggregateQuotation {
		t.Fatalf("Aggregate() = %q, %v", a, ok)
	}
	if _, err := ParseOutboxAggregateType("order"); err == nil {
		t.Fatal("expected error for unknown aggregate")
	}
	if _, ok := OutboxEventType("quote.deleted").Aggregate(); ok {
		t.Fatal("unknown event has no aggregate")
	}
}

func TestParseDocumentBackend(t *testing.T) {
	if b, err := ParseDocumentBackend("gcs"); err != nil || b != DocumentBackendGCS {
		t.Fatalf("ParseDocumentBackend = %q, %v", b, err)
	}
	if _, err := ParseDocumentBackend("s3"); err == nil {
		t.Fatal("expected error for s3")
	}
}
