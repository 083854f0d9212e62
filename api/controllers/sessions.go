package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bakery-quotes/api/responses"
	"github.com/angelmondragon/bakery-quotes/api/validators"
	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

// IntakeService is the conversational quote intake.
type IntakeService interface {
	Handle(ctx context.Context, sessionID, text string) (intake.Reply, error)
	Get(ctx context.Context, sessionID string) (*intake.Session, error)
	Reset(ctx context.Context, sessionID string) error
}

type sessionMessagePayload struct {
	Message string `json:"message" validate:"max=4000"`
}

// SessionMessage feeds one user message into the intake conversation.
func SessionMessage(svc IntakeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("intake"))
			return
		}

		var payload sessionMessagePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		reply, err := svc.Handle(ctx, chi.URLParam(r, "sessionId"), payload.Message)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}

func SessionGet(svc IntakeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("intake"))
			return
		}
		sess, err := svc.Get(ctx, chi.URLParam(r, "sessionId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}

func SessionDelete(svc IntakeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, serviceUnavailable("intake"))
			return
		}
		if err := svc.Reset(ctx, chi.URLParam(r, "sessionId")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
