package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrVersionConflict is returned when another writer appended to the stream
// between the caller's read and its append. Handlers recover by reloading the
// stream and retrying the transition.
var ErrVersionConflict = errors.New("stream version conflict")

// EventData is a domain event serialized for appending.
type EventData struct {
	EventType string
	Payload   []byte
}

// StoredEvent is one persisted entry of a ledger stream.
type StoredEvent struct {
	StreamID  string
	Version   int64
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Store is the append-only per-stream event log. Appends are serialized per
// stream through optimistic concurrency: the caller states the version it
// read, and the append fails with ErrVersionConflict if the stream has moved.
type Store interface {
	ReadStream(ctx context.Context, streamID string) ([]StoredEvent, error)
	Append(ctx context.Context, tx pgx.Tx, streamID string, expectedVersion int64, events []EventData) error
}
