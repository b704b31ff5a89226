package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// MemoryStore is an in-memory Store with the same version-conflict semantics
// as the Postgres implementation. It ignores the transaction argument and is
// meant for tests and local runs without a database.
type MemoryStore struct {
	mu      sync.Mutex
	streams map[string][]StoredEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]StoredEvent),
	}
}

func (s *MemoryStore) ReadStream(_ context.Context, streamID string) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	out := make([]StoredEvent, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, _ pgx.Tx, streamID string, expectedVersion int64, events []EventData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	if int64(len(stream)) != expectedVersion {
		return ErrVersionConflict
	}

	for i, event := range events {
		stream = append(stream, StoredEvent{
			StreamID:  streamID,
			Version:   expectedVersion + int64(i) + 1,
			EventType: event.EventType,
			Payload:   event.Payload,
			CreatedAt: time.Now(),
		})
	}
	s.streams[streamID] = stream

	return nil
}
