package quotes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/bakery-quotes/internal/documents"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/render"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/metrics"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

// Quote is a generated quotation with its rendered document.
type Quote struct {
	Record      quotation.Record `json:"quote"`
	Document    string           `json:"document"`
	DocumentKey string           `json:"document_key"`
}

// RecordStore persists quotation records.
type RecordStore interface {
	Create(ctx context.Context, rec quotation.Record, documentKey string) error
	Get(ctx context.Context, id string) (quotation.Record, string, error)
	List(ctx context.Context, params pagination.Params) ([]quotation.Record, string, error)
}

// Page is one page of stored quotations, newest first.
type Page struct {
	Quotes     []quotation.Record `json:"quotes"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// Service generates quotations and serves stored ones.
type Service interface {
	Generate(ctx context.Context, req JobRequest) (*Quote, error)
	Preview(ctx context.Context, req JobRequest) (quotation.Record, error)
	Get(ctx context.Context, id string) (quotation.Record, error)
	List(ctx context.Context, params pagination.Params) (Page, error)
	Document(ctx context.Context, id string) ([]byte, error)
	JobTypes() []string
}

// ServiceParams wires the service collaborators.
type ServiceParams struct {
	Assembler *Assembler
	Renderer  *render.Renderer
	Documents documents.Store
	Records   RecordStore
	Metrics   *metrics.QuoteMetrics
	Logger    *logger.Logger
}

type service struct {
	assembler *Assembler
	renderer  *render.Renderer
	documents documents.Store
	records   RecordStore
	metrics   *metrics.QuoteMetrics
	logg      *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Assembler == nil {
		return nil, fmt.Errorf("assembler required")
	}
	if p.Documents == nil {
		return nil, fmt.Errorf("document store required")
	}
	if p.Records == nil {
		return nil, fmt.Errorf("record store required")
	}
	if p.Renderer == nil {
		p.Renderer = render.Default()
	}
	if p.Logger == nil {
		p.Logger = logger.New(logger.Options{ServiceName: "quotes", Output: io.Discard})
	}
	return &service{
		assembler: p.Assembler,
		renderer:  p.Renderer,
		documents: p.Documents,
		records:   p.Records,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

// Generate assembles, renders, stores and persists one quotation.
func (s *service) Generate(ctx context.Context, req JobRequest) (*Quote, error) {
	started := time.Now()
	jobType := normalizeJobType(req.JobType)
	ctx = s.logg.WithJobType(ctx, jobType)

	rec, err := s.assembler.Assemble(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, jobType, started, err)
	}
	ctx = s.logg.WithQuoteID(ctx, rec.ID)

	doc, err := s.renderer.Render(rec)
	if err != nil {
		return nil, s.fail(ctx, jobType, started, err)
	}

	key, err := s.documents.Put(ctx, rec.ID, []byte(doc))
	if err != nil {
		return nil, s.fail(ctx, jobType, started, err)
	}

	if err := s.records.Create(ctx, rec, key); err != nil {
		return nil, s.fail(ctx, jobType, started, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist quotation"))
	}

	s.metrics.ObserveGeneration(jobType, metrics.OutcomeSuccess, time.Since(started))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total":        rec.Totals.Total.String(),
		"currency":     rec.Currency,
		"lines":        len(rec.Lines),
		"document_key": key,
	}), "quote.assembled")

	return &Quote{Record: rec, Document: doc, DocumentKey: key}, nil
}

// Preview assembles without rendering or persisting.
func (s *service) Preview(ctx context.Context, req JobRequest) (quotation.Record, error) {
	return s.assembler.Assemble(ctx, req)
}

func (s *service) Get(ctx context.Context, id string) (quotation.Record, error) {
	if !quotation.ValidID(id) {
		return quotation.Record{}, pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
	}
	rec, _, err := s.records.Get(ctx, id)
	return rec, err
}

func (s *service) List(ctx context.Context, params pagination.Params) (Page, error) {
	recs, next, err := s.records.List(ctx, params)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotations")
		}
		return Page{}, err
	}
	return Page{Quotes: recs, NextCursor: next}, nil
}

func (s *service) Document(ctx context.Context, id string) ([]byte, error) {
	if !quotation.ValidID(id) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
	}
	return s.documents.Get(ctx, id)
}

func (s *service) JobTypes() []string {
	return append([]string(nil), s.assembler.Settings().JobTypes...)
}

func (s *service) fail(ctx context.Context, jobType string, started time.Time, err error) error {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	s.metrics.ObserveGeneration(jobType, metrics.OutcomeFailure, time.Since(started))
	s.metrics.IncError(string(code))

	ctx = s.logg.WithField(ctx, "error_code", string(code))
	if pkgerrors.MetadataFor(code).HTTPStatus < http.StatusInternalServerError {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "quote.failed")
	} else {
		s.logg.Error(ctx, "quote.failed", err)
	}
	return err
}
