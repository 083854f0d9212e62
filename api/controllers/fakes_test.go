package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var out errorBody
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return out
}

func sampleRecord(id string) quotation.Record {
	created := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	return quotation.Record{
		ID:           id,
		CreatedAt:    created,
		ValidUntil:   created.AddDate(0, 0, 30),
		CustomerName: "Jane Doe",
		CompanyName:  "The Artisan Bakery",
		JobType:      "cupcakes",
		Quantity:     24,
		DueDate:      "2026-04-10",
		Currency:     "GBP",
		Totals: pricing.Totals{
			Total:     decimal.RequireFromString("45.56"),
			UnitPrice: decimal.RequireFromString("1.90"),
		},
	}
}

type fakeQuoteService struct {
	generated  *quotes.Quote
	lastReq    quotes.JobRequest
	lastPage   pagination.Params
	nextCursor string
	records    map[string]quotation.Record
	docs       map[string][]byte
	err        error
}

func (f *fakeQuoteService) Generate(_ context.Context, req quotes.JobRequest) (*quotes.Quote, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.generated, nil
}

func (f *fakeQuoteService) Preview(_ context.Context, req quotes.JobRequest) (quotation.Record, error) {
	return f.generated.Record, f.err
}

func (f *fakeQuoteService) Get(_ context.Context, id string) (quotation.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return quotation.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
	}
	return rec, nil
}

func (f *fakeQuoteService) List(_ context.Context, params pagination.Params) (quotes.Page, error) {
	f.lastPage = params
	out := make([]quotation.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return quotes.Page{Quotes: out, NextCursor: f.nextCursor}, f.err
}

func (f *fakeQuoteService) Document(_ context.Context, id string) ([]byte, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quotation document not found")
	}
	return doc, nil
}

func (f *fakeQuoteService) JobTypes() []string {
	return []string{"cake", "cupcakes", "pastry_box"}
}

type fakeMaterialService struct {
	records   map[string]materials.Record
	lastSet   *materials.SetMaterialInput
	lastCost  *decimal.Decimal
	lastQuery string
}

func newFakeMaterialService() *fakeMaterialService {
	return &fakeMaterialService{records: map[string]materials.Record{
		"flour": {Name: "flour", Unit: enums.UnitKilogram, UnitCost: decimal.RequireFromString("0.90"), Currency: "GBP"},
		"milk":  {Name: "milk", Unit: enums.UnitLiter, UnitCost: decimal.RequireFromString("0.60"), Currency: "GBP"},
	}}
}

func (f *fakeMaterialService) List(context.Context) ([]materials.Record, error) {
	return []materials.Record{f.records["flour"], f.records["milk"]}, nil
}

func (f *fakeMaterialService) Get(_ context.Context, name string) (materials.Record, error) {
	rec, ok := f.records[materials.NormalizeName(name)]
	if !ok {
		return materials.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	return rec, nil
}

func (f *fakeMaterialService) Search(_ context.Context, pattern string) ([]materials.Record, error) {
	f.lastQuery = pattern
	return []materials.Record{f.records["flour"]}, nil
}

func (f *fakeMaterialService) Set(_ context.Context, input materials.SetMaterialInput) (materials.Record, error) {
	f.lastSet = &input
	unit, err := enums.ParseUnit(input.Unit)
	if err != nil {
		return materials.Record{}, pkgerrors.Validation(pkgerrors.Violation("unit", "must be one of g, kg, ml, L, each"))
	}
	rec := materials.Record{Name: materials.NormalizeName(input.Name), Unit: unit, UnitCost: input.UnitCost, Currency: "GBP"}
	f.records[rec.Name] = rec
	return rec, nil
}

func (f *fakeMaterialService) UpdateCost(_ context.Context, name string, cost decimal.Decimal) (materials.Record, error) {
	f.lastCost = &cost
	rec, ok := f.records[materials.NormalizeName(name)]
	if !ok {
		return materials.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	rec.UnitCost = cost
	f.records[rec.Name] = rec
	return rec, nil
}

type fakeIntake struct {
	lastID   string
	lastText string
	sessions map[string]*intake.Session
	resetIDs []string
}

func (f *fakeIntake) Handle(_ context.Context, id, text string) (intake.Reply, error) {
	if !intake.ValidSessionID(id) {
		return intake.Reply{}, pkgerrors.Validation(pkgerrors.Violation("session_id", "is invalid"))
	}
	f.lastID, f.lastText = id, text
	return intake.Reply{SessionID: id, State: enums.IntakeCollecting, Message: "How many do you need?"}, nil
}

func (f *fakeIntake) Get(_ context.Context, id string) (*intake.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "intake session not found")
	}
	return sess, nil
}

func (f *fakeIntake) Reset(_ context.Context, id string) error {
	f.resetIDs = append(f.resetIDs, id)
	return nil
}
