// Package storage provides the local durable key-value store that the
// offline queue persists into. The interface is deliberately synchronous
// (get/set/delete) so the queue can write through on every append.
package storage

import (
	"sort"
	"strings"
	"sync"
)

// Store is a synchronous durable key-value store.
//
// Implementations must tolerate concurrent callers. A missing key is not
// an error: Get reports presence through its second return value.
type Store interface {
	// Get returns the value for key, whether the key exists, and any
	// storage-level error.
	Get(key string) ([]byte, bool, error)

	// Set writes the value for key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key entirely. Deleting a missing key is a no-op.
	Delete(key string) error

	// Keys returns every stored key with the given prefix, sorted.
	Keys(prefix string) ([]string, error)

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-memory Store. It backs tests and one-shot CLI
// runs that do not need durability.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys implements Store.
func (m *MemoryStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
