package blobstore

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory. Test backend.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	url := "mem://" + key
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[url] = cp
	m.mu.Unlock()
	return url, nil
}

func (m *MemoryStore) Get(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[url]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}
