// Package quotes assembles, renders and stores quotations.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/pricing"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/pkg/bom"
	"github.com/angelmondragon/bakery-quotes/pkg/units"
)

// CostResolver maps material names to cost records.
type CostResolver interface {
	Resolve(ctx context.Context, names []string) (map[string]materials.Record, error)
}

// Assembler turns a JobRequest into an immutable quotation record. It calls
// the estimator and the resolver once each and performs no other I/O.
type Assembler struct {
	estimator bom.Estimator
	resolver  CostResolver
	settings  Settings
	ids       *quotation.IDGenerator
	now       func() time.Time
	observe   func(dependency string, err error, took time.Duration)
}

// AssemblerOption customizes an Assembler.
type AssemblerOption func(*Assembler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator shares an id sequence between assemblers.
func WithIDGenerator(ids *quotation.IDGenerator) AssemblerOption {
	return func(a *Assembler) {
		if ids != nil {
			a.ids = ids
		}
	}
}

// WithDependencyObserver receives the latency and outcome of every external call.
func WithDependencyObserver(fn func(dependency string, err error, took time.Duration)) AssemblerOption {
	return func(a *Assembler) {
		if fn != nil {
			a.observe = fn
		}
	}
}

func NewAssembler(estimator bom.Estimator, resolver CostResolver, settings Settings, opts ...AssemblerOption) (*Assembler, error) {
	if estimator == nil {
		return nil, fmt.Errorf("bom estimator required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("cost resolver required")
	}
	if len(settings.JobTypes) == 0 {
		return nil, fmt.Errorf("at least one job type required")
	}
	a := &Assembler{
		estimator: estimator,
		resolver:  resolver,
		settings:  settings,
		ids:       &quotation.IDGenerator{},
		now:       time.Now,
		observe:   func(string, error, time.Duration) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Settings returns the defaults the assembler validates against.
func (a *Assembler) Settings() Settings {
	return a.settings
}

// Assemble validates req, prices it and returns the record. Nothing is
// returned on partial failure.
func (a *Assembler) Assemble(ctx context.Context, req JobRequest) (quotation.Record, error) {
	j, err := a.settings.validate(req)
	if err != nil {
		return quotation.Record{}, err
	}

	est, err := a.estimate(ctx, j)
	if err != nil {
		return quotation.Record{}, err
	}

	started := time.Now()
	records, err := a.resolver.Resolve(ctx, est.Names())
	a.observe("material_cost_store", err, time.Since(started))
	if err != nil {
		return quotation.Record{}, err
	}

	lines := make([]pricing.Line, 0, len(est.Materials))
	for _, m := range est.Materials {
		rec, ok := records[materials.NormalizeName(m.Name)]
		if !ok {
			// Resolve guarantees every name; a gap here is a resolver bug.
			return quotation.Record{}, fmt.Errorf("material %q not resolved", m.Name)
		}
		qty, err := units.ConvertRaw(m.Qty, m.Unit, string(rec.Unit))
		if err != nil {
			return quotation.Record{}, err
		}
		lines = append(lines, pricing.Line{
			Name:     strings.TrimSpace(m.Name),
			Quantity: qty,
			Unit:     rec.Unit,
			UnitCost: rec.UnitCost,
		})
	}

	res, err := pricing.Compute(lines, est.LaborHours, j.quantity, j.rates)
	if err != nil {
		return quotation.Record{}, err
	}

	created := a.now().UTC()
	return quotation.Record{
		ID:           a.ids.Next(created),
		CreatedAt:    created,
		ValidUntil:   created.AddDate(0, 0, a.settings.ValidityDays),
		CustomerName: j.customer,
		CompanyName:  j.company,
		JobType:      j.jobType,
		Quantity:     j.quantity,
		DueDate:      j.dueDate,
		Currency:     j.currency,
		Notes:        j.notes,
		Rates:        j.rates,
		Lines:        res.Lines,
		Totals:       res.Totals,
	}, nil
}

func (a *Assembler) estimate(ctx context.Context, j job) (*bom.Estimate, error) {
	if a.settings.EstimateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.EstimateTimeout)
		defer cancel()
	}

	started := time.Now()
	est, err := a.estimator.Estimate(ctx, j.jobType, j.quantity)
	a.observe("bom_estimator", err, time.Since(started))
	if err != nil {
		reason := "estimate request failed"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "estimate request timed out"
		case errors.Is(err, bom.ErrInvalidJobType):
			reason = "job type rejected by estimator"
		}
		return nil, &EstimationError{JobType: j.jobType, Reason: reason, Err: err}
	}
	if reason := checkEstimate(est); reason != "" {
		return nil, &EstimationError{JobType: j.jobType, Reason: reason}
	}
	return est, nil
}

// checkEstimate returns why est is unusable, or "" when it can be priced.
func checkEstimate(est *bom.Estimate) string {
	if est == nil {
		return "empty estimate response"
	}
	if len(est.Materials) == 0 {
		return "estimate lists no materials"
	}
	if est.LaborHours.IsNegative() {
		return "estimate has negative labor hours"
	}
	for i, m := range est.Materials {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Sprintf("material %d has no name", i)
		}
		if m.Qty.IsNegative() {
			return fmt.Sprintf("material %s has a negative quantity", m.Name)
		}
	}
	return ""
}
