// Package intake collects quotation fields through a keyed-prompt
// conversation and hands the completed request to the quotation service.
package intake

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/shopspring/decimal"
)

// Field names accepted in `field: value` messages.
const (
	FieldJobType      = "job_type"
	FieldQuantity     = "quantity"
	FieldCustomerName = "customer_name"
	FieldDueDate      = "due_date"
	FieldCompanyName  = "company_name"
	FieldCurrency     = "currency"
	FieldNotes        = "notes"
)

var requiredFields = []string{FieldJobType, FieldQuantity, FieldCustomerName, FieldDueDate}

var fieldAliases = map[string]string{
	"job":      FieldJobType,
	"type":     FieldJobType,
	"product":  FieldJobType,
	"qty":      FieldQuantity,
	"amount":   FieldQuantity,
	"customer": FieldCustomerName,
	"name":     FieldCustomerName,
	"due":      FieldDueDate,
	"date":     FieldDueDate,
	"company":  FieldCompanyName,
	"note":     FieldNotes,
}

var prompts = map[string]string{
	FieldJobType:      "What would you like to order? (job_type: %s)",
	FieldQuantity:     "How many do you need? (quantity: a whole number)",
	FieldCustomerName: "Who is the quotation for? (customer_name)",
	FieldDueDate:      "When is it due? (due_date: YYYY-MM-DD)",
}

// Fields are the values collected so far, kept as entered.
type Fields struct {
	JobType      string `json:"job_type,omitempty"`
	Quantity     string `json:"quantity,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Missing lists the required fields still empty, in prompt order.
func (f Fields) Missing() []string {
	var out []string
	for _, name := range requiredFields {
		if f.get(name) == "" {
			out = append(out, name)
		}
	}
	return out
}

func (f Fields) get(name string) string {
	switch name {
	case FieldJobType:
		return f.JobType
	case FieldQuantity:
		return f.Quantity
	case FieldCustomerName:
		return f.CustomerName
	case FieldDueDate:
		return f.DueDate
	case FieldCompanyName:
		return f.CompanyName
	case FieldCurrency:
		return f.Currency
	case FieldNotes:
		return f.Notes
	}
	return ""
}

func (f *Fields) set(name, value string) {
	switch name {
	case FieldJobType:
		f.JobType = value
	case FieldQuantity:
		f.Quantity = value
	case FieldCustomerName:
		f.CustomerName = value
	case FieldDueDate:
		f.DueDate = value
	case FieldCompanyName:
		f.CompanyName = value
	case FieldCurrency:
		f.Currency = value
	case FieldNotes:
		f.Notes = value
	}
}

// Request converts the collected fields into a JobRequest.
func (f Fields) Request() quotes.JobRequest {
	qty, _ := decimal.NewFromString(f.Quantity)
	return quotes.JobRequest{
		JobType:      f.JobType,
		Quantity:     qty,
		DueDate:      f.DueDate,
		CustomerName: f.CustomerName,
		CompanyName:  f.CompanyName,
		Currency:     f.Currency,
		Notes:        f.Notes,
	}
}

// Session is one intake conversation.
type Session struct {
	ID        string            `json:"id"`
	State     enums.IntakeState `json:"state"`
	Fields    Fields            `json:"fields"`
	Pending   string            `json:"pending,omitempty"`
	QuoteID   string            `json:"quote_id,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, State: enums.IntakeGreeting, CreatedAt: now, UpdatedAt: now}
}

func (s *Session) reset() {
	s.State = enums.IntakeGreeting
	s.Fields = Fields{}
	s.Pending = ""
	s.QuoteID = ""
	s.LastError = ""
}

// ValidSessionID accepts 1-64 characters of letters, digits, '-' and '_'.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

type assignment struct {
	field string
	value string
}

// parseAssignments reads `field: value` or `field = value` pairs separated by
// newlines or semicolons. Segments without a separator are returned as rest.
func parseAssignments(text string) ([]assignment, []string) {
	var out []assignment
	var rest []string
	segments := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' })
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		idx := strings.IndexAny(seg, ":=")
		if idx <= 0 {
			rest = append(rest, seg)
			continue
		}
		key := canonicalField(seg[:idx])
		if key == "" {
			rest = append(rest, seg)
			continue
		}
		out = append(out, assignment{field: key, value: strings.TrimSpace(seg[idx+1:])})
	}
	return out, rest
}

func canonicalField(raw string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	if alias, ok := fieldAliases[key]; ok {
		return alias
	}
	switch key {
	case FieldJobType, FieldQuantity, FieldCustomerName, FieldDueDate, FieldCompanyName, FieldCurrency, FieldNotes:
		return key
	}
	return ""
}

// normalizeValue checks one field value and returns it in stored form.
func normalizeValue(field, value string, jobTypes []string) (string, error) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldJobType:
		jt := strings.ReplaceAll(strings.ToLower(value), " ", "_")
		for _, known := range jobTypes {
			if known == jt {
				return jt, nil
			}
		}
		return "", fmt.Errorf("job_type must be one of %s", strings.Join(jobTypes, ", "))
	case FieldQuantity:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("quantity must be a whole number greater than zero")
		}
		return strconv.Itoa(n), nil
	case FieldDueDate:
		if _, err := time.Parse(quotation.DateLayout, value); err != nil {
			return "", fmt.Errorf("due_date must be a date in YYYY-MM-DD format")
		}
		return value, nil
	case FieldCustomerName:
		if value == "" {
			return "", fmt.Errorf("customer_name must not be empty")
		}
		return value, nil
	case FieldCurrency:
		code := strings.ToUpper(value)
		if len(code) != 3 {
			return "", fmt.Errorf("currency must be a 3-letter code")
		}
		return code, nil
	}
	return value, nil
}
