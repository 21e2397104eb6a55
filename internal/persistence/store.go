package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store holds encoded snapshots by slot name.
type Store interface {
	// Get returns the blob in slot, or ErrSlotNotFound.
	Get(ctx context.Context, slot string) ([]byte, error)
	// Put replaces the blob in slot.
	Put(ctx context.Context, slot string, blob []byte, savedAt time.Time) error
	// Delete removes slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryStore) Put(ctx context.Context, slot string, blob []byte, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
	return nil
}
