package quotes

import (
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/pkg/config"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// JobRequest is the caller's description of a job to quote. Quantity is a
// decimal so fractional input can be rejected instead of truncated.
type JobRequest struct {
	JobType      string           `json:"job_type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	DueDate      string           `json:"due_date"`
	CustomerName string           `json:"customer_name"`
	CompanyName  string           `json:"company_name,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	LaborRate    *decimal.Decimal `json:"labor_rate,omitempty"`
	MarkupPct    *decimal.Decimal `json:"markup_pct,omitempty"`
	VATPct       *decimal.Decimal `json:"vat_pct,omitempty"`
}

// Settings are the configured defaults a JobRequest is validated and
// completed against.
type Settings struct {
	JobTypes        []string
	MaxQuantity     int
	Rates           pricing.Rates
	Currency        string
	CompanyName     string
	Notes           string
	ValidityDays    int
	EstimateTimeout time.Duration
}

// SettingsFromConfig maps the pricing and BOM configuration sections.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		JobTypes:    cfg.Pricing.NormalizedJobTypes(),
		MaxQuantity: cfg.Pricing.MaxQuantity,
		Rates: pricing.Rates{
			LaborRate: cfg.Pricing.LaborRate,
			MarkupPct: cfg.Pricing.MarkupPct,
			VATPct:    cfg.Pricing.VATPct,
		},
		Currency:        strings.ToUpper(strings.TrimSpace(cfg.Pricing.DefaultCurrency)),
		CompanyName:     cfg.Pricing.DefaultCompanyName,
		Notes:           cfg.Pricing.DefaultNotes,
		ValidityDays:    cfg.Pricing.ValidityDays,
		EstimateTimeout: cfg.BOM.Timeout,
	}
}

// HasJobType reports whether jobType, normalized, is configured.
func (s Settings) HasJobType(jobType string) bool {
	key := normalizeJobType(jobType)
	for _, jt := range s.JobTypes {
		if jt == key {
			return true
		}
	}
	return false
}

// job is a validated JobRequest with every default applied.
type job struct {
	jobType  string
	quantity int
	dueDate  string
	customer string
	company  string
	currency string
	notes    string
	rates    pricing.Rates
}

// Validate reports every violated field of req at once.
func (s Settings) Validate(req JobRequest) error {
	_, err := s.validate(req)
	return err
}

func (s Settings) validate(req JobRequest) (job, error) {
	var errs error
	out := job{
		jobType:  normalizeJobType(req.JobType),
		dueDate:  strings.TrimSpace(req.DueDate),
		customer: strings.TrimSpace(req.CustomerName),
		company:  strings.TrimSpace(req.CompanyName),
		currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		notes:    strings.TrimSpace(req.Notes),
		rates:    s.Rates,
	}

	switch {
	case out.jobType == "":
		errs = multierr.Append(errs, pkgerrors.Violation("job_type", "is required"))
	case !s.HasJobType(out.jobType):
		errs = multierr.Append(errs, pkgerrors.Violation("job_type", "must be one of %s", strings.Join(s.JobTypes, ", ")))
	}

	switch {
	case !req.Quantity.IsPositive():
		errs = multierr.Append(errs, pkgerrors.Violation("quantity", "must be greater than zero"))
	case !req.Quantity.Equal(req.Quantity.Truncate(0)):
		errs = multierr.Append(errs, pkgerrors.Violation("quantity", "must be a whole number"))
	case s.MaxQuantity > 0 && req.Quantity.GreaterThan(decimal.NewFromInt(int64(s.MaxQuantity))):
		errs = multierr.Append(errs, pkgerrors.Violation("quantity", "must be at most %d", s.MaxQuantity))
	default:
		out.quantity = int(req.Quantity.IntPart())
	}

	if out.customer == "" {
		errs = multierr.Append(errs, pkgerrors.Violation("customer_name", "is required"))
	}

	if out.dueDate == "" {
		errs = multierr.Append(errs, pkgerrors.Violation("due_date", "is required"))
	} else if _, err := time.Parse(quotation.DateLayout, out.dueDate); err != nil {
		errs = multierr.Append(errs, pkgerrors.Violation("due_date", "must be a date in YYYY-MM-DD format"))
	}

	if out.currency == "" {
		out.currency = s.Currency
	} else if !isCurrencyCode(out.currency) {
		errs = multierr.Append(errs, pkgerrors.Violation("currency", "must be a 3-letter code"))
	}
	if out.company == "" {
		out.company = s.CompanyName
	}
	if out.notes == "" {
		out.notes = s.Notes
	}

	if req.LaborRate != nil {
		out.rates.LaborRate = *req.LaborRate
	}
	if req.MarkupPct != nil {
		out.rates.MarkupPct = *req.MarkupPct
	}
	if req.VATPct != nil {
		out.rates.VATPct = *req.VATPct
	}
	if err := out.rates.Validate(); err != nil {
		var verr *pkgerrors.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				errs = multierr.Append(errs, v)
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		return job{}, pkgerrors.Validation(errs)
	}
	return out, nil
}

func normalizeJobType(jobType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jobType)), " ", "_")
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
