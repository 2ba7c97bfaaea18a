package optimistic

import (
	"sync"
)

// Store is the local entity cache the coordinator mutates ahead of server
// confirmation. Values are raw JSON so the coordinator stays agnostic of
// entity shapes.
type Store interface {
	Get(kind, id string) ([]byte, bool)
	Put(kind, id string, value []byte)
	Delete(kind, id string)
}

// MemoryStore is an in-memory Store keyed by entity kind and id.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func storeKey(kind, id string) string {
	return kind + "/" + id
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(kind, id string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[storeKey(kind, id)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true
}

// Put stores a copy of the value.
func (s *MemoryStore) Put(kind, id string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[storeKey(kind, id)] = stored
}

// Delete removes the entity.
func (s *MemoryStore) Delete(kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, storeKey(kind, id))
}
