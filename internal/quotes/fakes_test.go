package quotes

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/pkg/bom"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakeEstimator struct {
	estimate *bom.Estimate
	err      error
	block    bool
	calls    atomic.Int32
}

func (f *fakeEstimator) Estimate(ctx context.Context, jobType string, quantity int) (*bom.Estimate, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.estimate == nil {
		return nil, nil
	}
	out := *f.estimate
	out.Materials = append([]bom.Line(nil), f.estimate.Materials...)
	return &out, nil
}

func (f *fakeEstimator) JobTypes(context.Context) ([]string, error) {
	return []string{"cupcakes", "cake", "pastry_box"}, nil
}

type fakeStore struct {
	records map[string]materials.Record
	err     error
}

func (f *fakeStore) FindByNames(_ context.Context, names []string) ([]materials.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []materials.Record
	for _, n := range names {
		if rec, ok := f.records[strings.ToLower(n)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func priceList() *fakeStore {
	rec := func(name string, unit enums.Unit, cost string) materials.Record {
		return materials.Record{Name: name, Unit: unit, UnitCost: d(cost), Currency: "GBP"}
	}
	rows := []materials.Record{
		rec("flour", enums.UnitKilogram, "0.90"),
		rec("sugar", enums.UnitKilogram, "0.70"),
		rec("butter", enums.UnitKilogram, "4.50"),
		rec("eggs", enums.UnitEach, "0.18"),
		rec("milk", enums.UnitLiter, "0.60"),
		rec("vanilla", enums.UnitMilliliter, "0.05"),
		rec("baking_powder", enums.UnitKilogram, "3.00"),
	}
	out := &fakeStore{records: map[string]materials.Record{}}
	for _, r := range rows {
		out.records[r.Name] = r
	}
	return out
}

// cupcakeEstimate asks for flour in grams and milk in milliliters so the
// assembler has to convert into the canonical units.
func cupcakeEstimate() *bom.Estimate {
	return &bom.Estimate{
		JobType:  "cupcakes",
		Quantity: 24,
		Materials: []bom.Line{
			{Name: "flour", Unit: "g", Qty: d("1920")},
			{Name: "sugar", Unit: "kg", Qty: d("1.44")},
			{Name: "butter", Unit: "kg", Qty: d("0.96")},
			{Name: "eggs", Unit: "each", Qty: d("12")},
			{Name: "milk", Unit: "ml", Qty: d("1200")},
			{Name: "vanilla", Unit: "ml", Qty: d("24")},
			{Name: "baking_powder", Unit: "kg", Qty: d("0.024")},
		},
		LaborHours: d("1.2"),
	}
}

func testSettings() Settings {
	return Settings{
		JobTypes:    []string{"cupcakes", "cake", "pastry_box"},
		MaxQuantity: 10000,
		Rates: pricing.Rates{
			LaborRate: d("15.00"),
			MarkupPct: d("0.30"),
			VATPct:    d("0.20"),
		},
		Currency:        "GBP",
		CompanyName:     "The Artisan Bakery",
		Notes:           "Thank you for your business!",
		ValidityDays:    30,
		EstimateTimeout: time.Second,
	}
}

var fixedNow = time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)

func newTestAssembler(t *testing.T, est *fakeEstimator, store *fakeStore) *Assembler {
	t.Helper()
	resolver, err := materials.NewResolver(store, time.Second)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	a, err := NewAssembler(est, resolver, testSettings(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("assembler: %v", err)
	}
	return a
}

func cupcakeRequest() JobRequest {
	return JobRequest{
		JobType:      "cupcakes",
		Quantity:     d("24"),
		DueDate:      "2026-04-20",
		CustomerName: "Jane Smith",
	}
}

var errBoom = errors.New("connection refused")
