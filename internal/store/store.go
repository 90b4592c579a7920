// Package store is the persistence collaborator: a key-value byte store
// the game core saves its encoded snapshot into after each mutation and
// loads from once at startup. The core never sees how the bytes are kept.
package store

import (
	"context"
	"sync"
)

// SaveStore persists one snapshot payload per save slot.
type SaveStore interface {
	// Load returns the persisted payload, or ok=false when nothing has
	// been saved yet.
	Load(ctx context.Context) (payload []byte, ok bool, err error)
	// Save replaces the persisted payload.
	Save(ctx context.Context, payload []byte) error
	Close() error
}

// Memory is an in-process SaveStore for tests and headless runs.
type Memory struct {
	mu      sync.Mutex
	payload []byte
	set     bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, false, nil
	}
	out := make([]byte, len(m.payload))
	copy(out, m.payload)
	return out, true, nil
}

func (m *Memory) Save(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = make([]byte, len(payload))
	copy(m.payload, payload)
	m.set = true
	return nil
}

func (m *Memory) Close() error { return nil }
