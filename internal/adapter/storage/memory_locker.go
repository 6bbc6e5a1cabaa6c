package storage

import (
	"context"
	"sync"
)

// MemoryLocker is the in-process CartLocker used when no Redis is configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (m *MemoryLocker) Acquire(ctx context.Context, cartID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[cartID]; ok {
		return false, nil
	}
	m.held[cartID] = struct{}{}
	return true, nil
}

func (m *MemoryLocker) Release(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, cartID)
	return nil
}
