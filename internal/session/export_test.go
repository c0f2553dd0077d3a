package session

import "time"

// SetClock replaces the memory store's time source.
func (m *MemoryStore) SetClock(now func() time.Time) { m.now = now }
