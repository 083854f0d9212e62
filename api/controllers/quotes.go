package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bakery-quotes/api/responses"
	"github.com/angelmondragon/bakery-quotes/api/validators"
	"github.com/angelmondragon/bakery-quotes/internal/documents"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

const (
	defaultQuoteListLimit = pagination.DefaultLimit
	maxQuoteListLimit     = pagination.MaxLimit
)

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// JobTypes lists the job types quotations can be requested for.
func JobTypes(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("quote"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"job_types": svc.JobTypes()})
	}
}

// QuoteGenerate prices a job, stores its document and record, and returns both.
func QuoteGenerate(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("quote"))
			return
		}

		var req quotes.JobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.Generate(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("Location", "/api/v1/quotes/"+quote.Record.ID)
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

// QuoteList returns one page of stored quotations, newest first.
func QuoteList(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("quote"))
			return
		}

		limit, err := validators.QueryInt(r, "limit", defaultQuoteListLimit, 1, maxQuoteListLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cursor := validators.QueryText(r, "cursor", 256)

		page, err := svc.List(ctx, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// QuoteGet returns one stored quotation record.
func QuoteGet(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("quote"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "quoteId"))
		rec, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// QuoteDocument streams the rendered quotation document.
func QuoteDocument(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("quote"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "quoteId"))
		body, err := svc.Document(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteDocument(w, documents.ContentType, documents.FileName(id), body)
	}
}
