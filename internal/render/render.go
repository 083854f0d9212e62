// Package render substitutes quotation records into document templates.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
)

//go:embed templates/quote.md.tmpl
var defaultTemplate string

// TemplateError reports a template that cannot be parsed or references a
// field the record does not provide.
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func (e *TemplateError) APIError() *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeTemplate, e.Err, "quotation template failed").WithDetails(map[string]string{
		"template": e.Template,
		"reason":   e.Err.Error(),
	})
}

// Renderer holds a parsed template. It is safe for concurrent use.
type Renderer struct {
	name string
	tmpl *template.Template
}

// New parses source. Missing fields are errors at execution time.
func New(name, source string) (*Renderer, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, &TemplateError{Template: name, Err: err}
	}
	return &Renderer{name: name, tmpl: tmpl}, nil
}

// Default returns the built-in markdown quotation template.
func Default() *Renderer {
	r, err := New("quote.md", defaultTemplate)
	if err != nil {
		panic(err)
	}
	return r
}

// Load reads a template from path, or returns Default when path is empty.
func Load(path string) (*Renderer, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Template: path, Err: err}
	}
	return New(path, string(raw))
}

// Render substitutes rec into the template.
func (r *Renderer) Render(rec quotation.Record) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, Fields(rec)); err != nil {
		return "", &TemplateError{Template: r.name, Err: err}
	}
	return buf.String(), nil
}

// Render parses source and renders rec in one step.
func Render(source string, rec quotation.Record) (string, error) {
	r, err := New("inline", source)
	if err != nil {
		return "", err
	}
	return r.Render(rec)
}

// Fields flattens rec into the placeholder map the templates reference.
// Money is fixed to two decimals and percentages become whole numbers.
func Fields(rec quotation.Record) map[string]any {
	t := rec.Totals
	lines := make([]map[string]any, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		lines = append(lines, map[string]any{
			"name":      l.Name,
			"qty":       Quantity(l.Quantity),
			"unit":      string(l.Unit),
			"unit_cost": Money(l.UnitCost),
			"line_cost": Money(l.LineCost),
		})
	}

	return map[string]any{
		"company_name":       rec.CompanyName,
		"quote_id":           rec.ID,
		"quote_date":         rec.QuoteDate(),
		"valid_until":        rec.ValidUntilDate(),
		"customer_name":      rec.CustomerName,
		"job_type":           rec.JobType,
		"quantity":           rec.Quantity,
		"due_date":           rec.DueDate,
		"currency":           rec.Currency,
		"notes":              rec.Notes,
		"labor_rate":         Money(t.LaborRate),
		"labor_hours":        t.LaborHours.StringFixed(2),
		"labor_cost":         Money(t.LaborCost),
		"materials_subtotal": Money(t.MaterialsSubtotal),
		"subtotal":           Money(t.Subtotal),
		"markup_pct":         Percent(t.MarkupPct),
		"markup_value":       Money(t.MarkupValue),
		"price_before_vat":   Money(t.PriceBeforeVAT),
		"vat_pct":            Percent(t.VATPct),
		"vat_value":          Money(t.VATValue),
		"total":              Money(t.Total),
		"unit_price":         Money(t.UnitPrice),
		"lines":              lines,
	}
}

// Money rounds half away from zero to two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percent renders a fraction as a whole-number percentage, 0.3 -> "30%".
func Percent(d decimal.Decimal) string {
	return d.Shift(2).StringFixed(0) + "%"
}

// Quantity renders up to three decimals without trailing zeros.
func Quantity(d decimal.Decimal) string {
	return d.Round(3).String()
}
