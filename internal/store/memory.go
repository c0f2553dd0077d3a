package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps objects in process memory. Contents vanish on restart.
type MemoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: map[string][]byte{}}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return nil
}
