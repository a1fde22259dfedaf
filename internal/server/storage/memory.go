package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process. It backs the server when no object
// storage is configured and is used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}}
}

func (m *MemoryStore) Store(ctx context.Context, data []byte, pathHint, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	url := "mem://" + StorageKey(pathHint)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[url] = append([]byte(nil), data...)
	return url, nil
}

// Get returns a stored object by URL.
func (m *MemoryStore) Get(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[url]
	return b, ok
}
