package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// MemoryIndex is an in-memory ReservationIndex for tests.
type MemoryIndex struct {
	mu   sync.Mutex
	refs map[string]ReservationRef
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{refs: make(map[string]ReservationRef)}
}

func (m *MemoryIndex) Save(_ context.Context, _ pgx.Tx, ref *ReservationRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refs[ref.ReservationID]; !ok {
		m.refs[ref.ReservationID] = *ref
	}
	return nil
}

func (m *MemoryIndex) Find(_ context.Context, reservationID string) (*ReservationRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.refs[reservationID]
	if !ok {
		return nil, ErrRefNotFound
	}
	return &ref, nil
}
