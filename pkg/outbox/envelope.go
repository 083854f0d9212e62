package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is written into every new envelope.
const EnvelopeVersion = 1

// ErrEmptyData is returned by Open for envelopes whose data is missing or null.
var ErrEmptyData = errors.New("envelope data is empty")

// Envelope is the body of outbox_events.payload. The publisher sends it
// unchanged as the Pub/Sub message data.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// Seal encodes data inside a fresh envelope for the row identified by id.
func Seal(id uuid.UUID, version int, occurredAt time.Time, data any) (Envelope, []byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("encode event data: %w", err)
	}
	if version <= 0 {
		version = EnvelopeVersion
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	env := Envelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurredAt.UTC(),
		Data:       body,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, raw, nil
}

// Open decodes raw. The event id may be blank; consumers fall back to
// message attributes for it.
func Open(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, ErrEmptyData
	}
	return env, nil
}
