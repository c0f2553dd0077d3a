package session

import (
	"context"
	"sync"
	"time"

	"github.com/AlviRownok/NAPOLI-GIS/internal/workflow"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps encoded states in process. States are stored as JSON so
// callers never share maps with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (workflow.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return workflow.NewState(), nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, id)
		return workflow.NewState(), nil
	}
	return decode(e.data)
}

func (m *MemoryStore) Save(_ context.Context, id string, st workflow.State) error {
	b, err := encode(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.entries[id] = memoryEntry{data: b, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len reports live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.entries)
}

// sweep drops expired entries. Caller holds mu.
func (m *MemoryStore) sweep() {
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
}
