package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bakery-quotes/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
	pkgredis "github.com/angelmondragon/bakery-quotes/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader is set on responses served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 5 * time.Minute
)

// storedResponse is what a request leaves behind under its key. InFlight
// marks a reservation whose handler has not finished yet.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

func (s storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

type idempotency struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency makes the wrapped route replay its first response for every
// repeat of an Idempotency-Key. The key is reserved before the handler runs,
// so a repeat that arrives while the first is still running gets a conflict
// instead of a second execution. A repeat with a different body is a
// conflict too. Requests without the header run normally, and 5xx responses
// release the key so the client can retry them.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	m := idempotency{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if m.store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := m.serve(w, r, next, clientKey); err != nil {
				responses.WriteError(r.Context(), m.logg, w, err)
			}
		})
	}
}

// serve returns an error only before next has written anything.
func (m idempotency) serve(w http.ResponseWriter, r *http.Request, next http.Handler, clientKey string) error {
	if len(clientKey) > maxIdempotencyKeyLen {
		return pkgerrors.Validation(pkgerrors.Violation(IdempotencyHeader, "must be at most %d characters", maxIdempotencyKeyLen))
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	sum := sha256.Sum256(body)
	fingerprint := hex.EncodeToString(sum[:])
	key := m.store.IdempotencyKey(r.Method+" "+r.URL.Path, clientKey)

	prior, found, err := m.lookup(r, key)
	if err != nil {
		return err
	}
	if !found {
		reserved, err := m.reserve(r, key, fingerprint)
		if err != nil {
			return err
		}
		if reserved {
			m.run(w, r, next, key, fingerprint)
			return nil
		}
		// Another request claimed the key between the read and the reservation.
		if prior, found, err = m.lookup(r, key); err != nil {
			return err
		}
		if !found {
			return inProgress()
		}
	}
	if prior.Fingerprint != fingerprint {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key was already used with a different request body")
	}
	if prior.InFlight {
		return inProgress()
	}
	prior.replay(w)
	return nil
}

func inProgress() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a request with this Idempotency-Key is still in progress")
}

func (m idempotency) reserve(r *http.Request, key, fingerprint string) (bool, error) {
	marker, err := json.Marshal(storedResponse{InFlight: true, Fingerprint: fingerprint})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation")
	}
	ok, err := m.store.SetNX(r.Context(), key, string(marker), min(m.ttl, inFlightTTL))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

// run executes next under a reserved key and replaces the reservation with
// the response. The reservation is dropped when next fails with a 5xx or
// panics.
func (m idempotency) run(w http.ResponseWriter, r *http.Request, next http.Handler, key, fingerprint string) {
	ctx := r.Context()
	stored := false
	defer func() {
		if stored {
			return
		}
		if err := m.store.Del(context.WithoutCancel(ctx), key); err != nil && m.logg != nil {
			m.logg.Error(ctx, "idempotency.release_failed", err)
		}
	}()

	var captured bytes.Buffer
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&captured)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		return
	}
	encoded, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        captured.Bytes(),
		Fingerprint: fingerprint,
	})
	if err == nil {
		err = m.store.Set(context.WithoutCancel(ctx), key, string(encoded), m.ttl)
	}
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "idempotency.store_failed", err)
		}
		return
	}
	stored = true
}

func (m idempotency) lookup(r *http.Request, key string) (storedResponse, bool, error) {
	raw, err := m.store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return storedResponse{}, false, nil
	}
	if err != nil {
		return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return prior, true, nil
}
