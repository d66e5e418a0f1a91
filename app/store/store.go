// Package store provides the durable key-value layer behind session, job log and history stores.
// Every backend is a best-effort cache: callers get errors back, but are expected to keep working
// from their in-memory state when a read or write fails.
package store

import (
	"errors"
	"sync"
)

// ErrNotFound returned by Get for missing keys
var ErrNotFound = errors.New("key not found")

// well-known keys of persisted documents
const (
	KeySession = "homePageState"
	KeyJobLog  = "job_log"
	KeyHistory = "download_history"
)

// KV defines opaque key-value storage, each key read and written independently
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Memory is KV kept in a map, used for ephemeral sessions and tests
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory makes empty in-memory KV
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

// Get returns a copy of the value for the key
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of the value
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key, missing key is not an error
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
