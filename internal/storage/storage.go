// Package storage provides the blob store the history layer persists
// through. Keys map to opaque byte payloads; backends differ only in
// where the bytes live.
package storage

import "sync"

// Storage is a key-value blob store. Read reports ok=false when the key
// has never been written; that is not an error.
type Storage interface {
	Read(key string) (data []byte, ok bool, err error)
	Write(key string, data []byte) error
	Close() error
}

// Memory is an in-process Storage used in tests and as a fallback when no
// durable backend is available.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Read(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *Memory) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}

func (m *Memory) Close() error {
	return nil
}
