package store

import (
	"encoding/json"
	"sync"
)

// MemoryStore implements Store with in-memory storage. It keeps the same
// encode/decode behavior as FileStore so the two are interchangeable in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStore) Get(name string, v interface{}) error {
	m.mu.RLock()
	data, exists := m.data[name]
	m.mu.RUnlock()

	if !exists {
		return &Error{Op: "get", Record: name, Err: ErrNotFound}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &Error{Op: "get", Record: name, Err: err}
	}

	return nil
}

func (m *MemoryStore) Put(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "put", Record: name, Err: err}
	}

	m.mu.Lock()
	m.data[name] = data
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	delete(m.data, name)
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}

	return names, nil
}

// Commit encodes the full batch up front, then applies it under a single
// lock so readers never observe a partially applied batch.
func (m *MemoryStore) Commit(batch Batch) error {
	encoded := map[string][]byte{}
	for name, v := range batch.Put {
		data, err := json.Marshal(v)
		if err != nil {
			return &Error{Op: "commit", Record: name, Err: err}
		}
		encoded[name] = data
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, data := range encoded {
		m.data[name] = data
	}
	for _, name := range batch.Delete {
		delete(m.data, name)
	}

	return nil
}
