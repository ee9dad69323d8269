package storage

import (
	"context"
	"sync"
)

// MemorySlot keeps the slot in process memory. Used for dry runs and tests.
type MemorySlot struct {
	mu    sync.Mutex
	data  []byte
	saved bool
	// SaveErr, when set, is returned by every Save.
	SaveErr error
	// LoadErr, when set, is returned by every Load.
	LoadErr error
	saves   int
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *MemorySlot {
	return &MemorySlot{}
}

// Load returns a copy of the stored blob, or ErrSlotEmpty.
func (m *MemorySlot) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if !m.saved {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), m.data...), nil
}

// Save overwrites the slot with a copy of data.
func (m *MemorySlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	m.saved = true
	m.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (m *MemorySlot) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *MemorySlot) Close() error {
	return nil
}
