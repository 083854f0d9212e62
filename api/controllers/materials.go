package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-quotes/api/responses"
	"github.com/angelmondragon/bakery-quotes/api/validators"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

const maxSearchLen = 64

type setMaterialPayload struct {
	Unit     string           `json:"unit" validate:"omitempty,max=8"`
	UnitCost *decimal.Decimal `json:"unit_cost" validate:"required"`
	Currency string           `json:"currency" validate:"omitempty,len=3"`
}

// MaterialList returns the whole price list.
func MaterialList(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("material"))
			return
		}
		records, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"materials": records})
	}
}

// MaterialSearch matches material names containing q.
func MaterialSearch(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("material"))
			return
		}
		q := validators.QueryText(r, "q", maxSearchLen)
		records, err := svc.Search(ctx, q)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"materials": records})
	}
}

func MaterialGet(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("material"))
			return
		}
		rec, err := svc.Get(ctx, chi.URLParam(r, "name"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// MaterialSet adds a material or updates its cost. Without a unit only the
// cost of an existing material changes.
func MaterialSet(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("material"))
			return
		}

		var payload setMaterialPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		name := chi.URLParam(r, "name")
		var (
			rec materials.Record
			err error
		)
		if payload.Unit == "" {
			rec, err = svc.UpdateCost(ctx, name, *payload.UnitCost)
		} else {
			rec, err = svc.Set(ctx, materials.SetMaterialInput{
				Name:     name,
				Unit:     payload.Unit,
				UnitCost: *payload.UnitCost,
				Currency: payload.Currency,
			})
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}
