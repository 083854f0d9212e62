// Package idempotency lets an event consumer claim each event id once so
// Pub/Sub redeliveries are skipped.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of pkg/redis.Client a Ledger uses.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger records the event ids one consumer has claimed. Claims expire after
// ttl; zero keeps them forever.
type Ledger struct {
	store    Store
	consumer string
	ttl      time.Duration
	now      func() time.Time
}

func NewLedger(store Store, consumer string, ttl time.Duration) (*Ledger, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must not be negative")
	}
	return &Ledger{store: store, consumer: consumer, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this call took eventID. False means an earlier
// delivery already holds the claim.
func (l *Ledger) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	claimed, err := l.store.SetNX(ctx, l.key(eventID), l.now().UTC().Format(time.RFC3339), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim event %s for %s: %w", eventID, l.consumer, err)
	}
	return claimed, nil
}

// Release drops the claim so a redelivery is handled again.
func (l *Ledger) Release(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return errors.New("event id is required")
	}
	return l.store.Del(ctx, l.key(eventID))
}

func (l *Ledger) key(eventID uuid.UUID) string {
	return l.store.IdempotencyKey("evt:"+l.consumer, eventID.String())
}
