// Package storage persists the snapshot collections as opaque JSON blobs. Backends only
// need to replace a whole value atomically; there is no querying or partial update.
package storage

import (
	"context"
	"sync"
)

// BlobStore is a key/value store of whole JSON documents.
type BlobStore interface {
	// Get returns the value under key. found is false when the key was never written.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	// Put atomically replaces the value under key.
	Put(ctx context.Context, key string, data []byte) error
}

// MemoryBlobStore keeps blobs in process memory.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryBlobStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}
