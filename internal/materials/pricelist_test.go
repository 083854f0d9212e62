package materials

import (
	"strings"
	"testing"
)

func TestParsePriceList(t *testing.T) {
	src := `
currency: GBP
materials:
  - name: flour
    unit: kg
    unit_cost: "0.90"
  - name: vanilla extract
    unit: ml
    unit_cost: 0.12
    currency: eur
`
	inputs, err := ParsePriceList(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParsePriceList: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("got %d inputs, want 2", len(inputs))
	}

	flour := inputs[0]
	if flour.Name != "flour" || flour.Unit != "kg" || flour.UnitCost.String() != "0.9" || flour.Currency != "GBP" {
		t.Fatalf("flour = %+v", flour)
	}
	vanilla := inputs[1]
	if vanilla.Name != "vanilla extract" || vanilla.UnitCost.String() != "0.12" || vanilla.Currency != "eur" {
		t.Fatalf("vanilla = %+v", vanilla)
	}
}

func TestParsePriceListRejects(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"no entries":  "currency: GBP\n",
		"unknown key": "materials:\n  - name: flour\n    unit: kg\n    unit_cost: \"1\"\n    price: 2\n",
		"bad cost":    "materials:\n  - name: flour\n    unit: kg\n    unit_cost: cheap\n",
		"not yaml":    "materials: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePriceList(strings.NewReader(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePriceListReportsEveryBadCost(t *testing.T) {
	src := "materials:\n" +
		"  - {name: flour, unit: kg, unit_cost: x}\n" +
		"  - {name: sugar, unit: kg, unit_cost: \"1.10\"}\n" +
		"  - {name: eggs, unit: each, unit_cost: \"\"}\n"
	_, err := ParsePriceList(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "materials[0]") || !strings.Contains(msg, "materials[2]") {
		t.Fatalf("error %q should name entries 0 and 2", msg)
	}
	if strings.Contains(msg, "materials[1]") {
		t.Fatalf("error %q names a valid entry", msg)
	}
}
