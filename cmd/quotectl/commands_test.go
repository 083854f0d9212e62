package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

type fakeMaterials struct {
	records  map[string]materials.Record
	setInput *materials.SetMaterialInput
}

func newFakeMaterials() *fakeMaterials {
	return &fakeMaterials{records: map[string]materials.Record{
		"flour": {Name: "flour", Unit: enums.UnitKilogram, UnitCost: decimal.RequireFromString("0.90"), Currency: "GBP"},
	}}
}

func (f *fakeMaterials) List(context.Context) ([]materials.Record, error) {
	return []materials.Record{f.records["flour"]}, nil
}

func (f *fakeMaterials) Get(_ context.Context, name string) (materials.Record, error) {
	rec, ok := f.records[name]
	if !ok {
		return materials.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	return rec, nil
}

func (f *fakeMaterials) Search(context.Context, string) ([]materials.Record, error) {
	return []materials.Record{f.records["flour"]}, nil
}

func (f *fakeMaterials) Set(_ context.Context, in materials.SetMaterialInput) (materials.Record, error) {
	f.setInput = &in
	rec := materials.Record{Name: in.Name, Unit: enums.Unit(in.Unit), UnitCost: in.UnitCost, Currency: "GBP"}
	f.records[in.Name] = rec
	return rec, nil
}

func (f *fakeMaterials) UpdateCost(_ context.Context, name string, cost decimal.Decimal) (materials.Record, error) {
	rec := f.records[name]
	rec.UnitCost = cost
	f.records[name] = rec
	return rec, nil
}

type fakeQuotes struct {
	lastReq   quotes.JobRequest
	lastPage  pagination.Params
	generated int
}

func quoteRecord() quotation.Record {
	return quotation.Record{
		ID:           "Q20260402_103000_1_ab12cd",
		CreatedAt:    time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC),
		CustomerName: "Jane Doe",
		JobType:      "cupcakes",
		Quantity:     24,
		Currency:     "GBP",
		Totals:       pricing.Totals{Total: decimal.RequireFromString("45.56448")},
	}
}

func (f *fakeQuotes) Generate(_ context.Context, req quotes.JobRequest) (*quotes.Quote, error) {
	f.lastReq = req
	f.generated++
	return &quotes.Quote{Record: quoteRecord(), Document: "# Quotation\nTOTAL: GBP 45.56\n"}, nil
}

func (f *fakeQuotes) Preview(_ context.Context, req quotes.JobRequest) (quotation.Record, error) {
	f.lastReq = req
	return quoteRecord(), nil
}

func (f *fakeQuotes) Get(context.Context, string) (quotation.Record, error) {
	return quoteRecord(), nil
}

func (f *fakeQuotes) List(_ context.Context, params pagination.Params) (quotes.Page, error) {
	f.lastPage = params
	return quotes.Page{Quotes: []quotation.Record{quoteRecord()}, NextCursor: "c2"}, nil
}

func (f *fakeQuotes) Document(context.Context, string) ([]byte, error) { return nil, nil }

func (f *fakeQuotes) JobTypes() []string { return []string{"cupcakes"} }

type scriptedConversation struct {
	messages []string
}

func (s *scriptedConversation) Handle(_ context.Context, id, text string) (intake.Reply, error) {
	s.messages = append(s.messages, text)
	switch {
	case text == "":
		return intake.Reply{SessionID: id, State: enums.IntakeCollecting, Message: "What would you like to order?"}, nil
	case text == "yes":
		return intake.Reply{
			SessionID: id,
			State:     enums.IntakeDone,
			Message:   "Quotation Q-1 is ready.",
			Quote:     &quotes.Quote{Document: "# Quotation\n"},
		}, nil
	default:
		return intake.Reply{SessionID: id, State: enums.IntakeConfirming, Message: "Shall I prepare the quotation?"}, nil
	}
}

func runCLI(t *testing.T, svc *services, stdin string, args ...string) (string, error) {
	t.Helper()
	env := &cliEnv{connect: func(context.Context, string) (*services, error) { return svc, nil }}
	root := newRootCmd(env)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMaterialsList(t *testing.T) {
	out, err := runCLI(t, &services{materials: newFakeMaterials()}, "", "materials", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "flour")
	assert.Contains(t, out, "0.9")
}

func TestMaterialsGetMissing(t *testing.T) {
	_, err := runCLI(t, &services{materials: newFakeMaterials()}, "", "materials", "get", "saffron")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestMaterialsSetWithUnitAdds(t *testing.T) {
	mats := newFakeMaterials()
	_, err := runCLI(t, &services{materials: mats}, "", "materials", "set", "honey", "--unit", "kg", "--cost", "7.25")
	require.NoError(t, err)
	require.NotNil(t, mats.setInput)
	assert.Equal(t, "honey", mats.setInput.Name)
	assert.True(t, mats.setInput.UnitCost.Equal(decimal.RequireFromString("7.25")))
}

func TestMaterialsSetCostOnly(t *testing.T) {
	mats := newFakeMaterials()
	_, err := runCLI(t, &services{materials: mats}, "", "materials", "set", "flour", "--cost", "0.95")
	require.NoError(t, err)
	assert.Nil(t, mats.setInput)
	assert.Equal(t, "0.95", mats.records["flour"].UnitCost.String())
}

func TestMaterialsSetRejectsBadCost(t *testing.T) {
	_, err := runCLI(t, &services{materials: newFakeMaterials()}, "", "materials", "set", "flour", "--cost", "cheap")
	require.Error(t, err)
}

func TestMaterialsImportFromStdin(t *testing.T) {
	mats := newFakeMaterials()
	list := "currency: GBP\nmaterials:\n  - name: honey\n    unit: kg\n    unit_cost: \"7.25\"\n"
	out, err := runCLI(t, &services{materials: mats}, list, "materials", "import", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "honey")
	require.NotNil(t, mats.setInput)
	assert.Equal(t, "GBP", mats.setInput.Currency)
	assert.True(t, mats.setInput.UnitCost.Equal(decimal.RequireFromString("7.25")))
}

func TestMaterialsImportFromFile(t *testing.T) {
	mats := newFakeMaterials()
	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("materials:\n  - {name: sugar, unit: kg, unit_cost: \"1.10\"}\n"), 0o600))
	_, err := runCLI(t, &services{materials: mats}, "", "materials", "import", path)
	require.NoError(t, err)
	assert.Equal(t, "1.1", mats.records["sugar"].UnitCost.String())
}

func TestMaterialsImportRejectsBadFile(t *testing.T) {
	mats := newFakeMaterials()
	_, err := runCLI(t, &services{materials: mats}, "materials: []\n", "materials", "import", "-")
	require.Error(t, err)
	assert.Nil(t, mats.setInput)
}

func TestQuoteGenerateWritesDocument(t *testing.T) {
	q := &fakeQuotes{}
	path := filepath.Join(t.TempDir(), "quote.md")
	out, err := runCLI(t, &services{quotes: q}, "",
		"quote", "generate",
		"--job-type", "cupcakes", "--quantity", "24",
		"--customer", "Jane Doe", "--due", "2026-04-10",
		"--labor-rate", "20", "-o", path)
	require.NoError(t, err)

	assert.Contains(t, out, "TOTAL: GBP 45.56")
	assert.Equal(t, "cupcakes", q.lastReq.JobType)
	assert.Equal(t, int64(24), q.lastReq.Quantity.IntPart())
	require.NotNil(t, q.lastReq.LaborRate)
	assert.Equal(t, "20", q.lastReq.LaborRate.String())
	assert.Nil(t, q.lastReq.MarkupPct)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Quotation\nTOTAL: GBP 45.56\n", string(written))
}

func TestQuoteGenerateRequiresFlags(t *testing.T) {
	q := &fakeQuotes{}
	_, err := runCLI(t, &services{quotes: q}, "", "quote", "generate", "--job-type", "cake")
	require.Error(t, err)
	assert.Zero(t, q.generated)
}

func TestQuoteGenerateRejectsBadOverride(t *testing.T) {
	q := &fakeQuotes{}
	_, err := runCLI(t, &services{quotes: q}, "",
		"quote", "generate", "--job-type", "cake", "--quantity", "1",
		"--customer", "A", "--due", "2026-04-10", "--vat", "twenty")
	require.Error(t, err)

	var verr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("vat_pct"))
	assert.Zero(t, q.generated)
}

func TestQuotePreviewDoesNotGenerate(t *testing.T) {
	q := &fakeQuotes{}
	out, err := runCLI(t, &services{quotes: q}, "",
		"quote", "generate", "--job-type", "cake", "--quantity", "1",
		"--customer", "A", "--due", "2026-04-10", "--preview")
	require.NoError(t, err)
	assert.Zero(t, q.generated)
	assert.Contains(t, out, `"quote_id": "Q20260402_103000_1_ab12cd"`)
}

func TestQuoteList(t *testing.T) {
	q := &fakeQuotes{}
	out, err := runCLI(t, &services{quotes: q}, "", "quote", "list", "--limit", "5", "--cursor", "c1")
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "c1"}, q.lastPage)
	assert.Contains(t, out, "next cursor: c2")
	assert.Contains(t, out, "Q20260402_103000_1_ab12cd")
	assert.Contains(t, out, "GBP 45.56")
}

func TestChatUntilDone(t *testing.T) {
	conv := &scriptedConversation{}
	out, err := runCLI(t, &services{intake: conv}, "job_type: cake; quantity: 2\nyes\nignored\n", "chat", "--session", "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "job_type: cake; quantity: 2", "yes"}, conv.messages)
	assert.Contains(t, out, "What would you like to order?")
	assert.Contains(t, out, "Quotation Q-1 is ready.")
	assert.Contains(t, out, "# Quotation")
}

func TestChatQuit(t *testing.T) {
	conv := &scriptedConversation{}
	_, err := runCLI(t, &services{intake: conv}, "quit\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, conv.messages)
}

func TestConnectFailureSurfaces(t *testing.T) {
	env := &cliEnv{connect: func(context.Context, string) (*services, error) {
		return nil, errors.New("invalid config")
	}}
	root := newRootCmd(env)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"materials", "list"})
	require.EqualError(t, root.ExecuteContext(context.Background()), "invalid config")
}
