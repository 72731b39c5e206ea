package store

import (
	"context"
	"sync"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// MockStore is an in-memory implementation of Store for testing.
// Load and Save copy the roster so callers never share state with the store.
type MockStore struct {
	mu     sync.RWMutex
	roster *roster.Roster
	saves  int
	closed bool
}

// NewMockStore creates a mock store seeded with the given entities.
func NewMockStore(chars []models.Character, units []models.Unit) *MockStore {
	return &MockStore{roster: roster.New(chars, units, nil).Clone()}
}

// Load returns a copy of the stored roster.
func (m *MockStore) Load(_ context.Context) (*roster.Roster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roster.Clone(), nil
}

// Save replaces the stored roster with a copy of r.
func (m *MockStore) Save(_ context.Context, r *roster.Roster) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = r.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MockStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
