package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStorage garde tout en mémoire du processus (dev et tests).
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	locks   *keyLocks
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]memoryEntry),
		locks:   newKeyLocks(),
		now:     time.Now,
	}
}

func (m *MemoryStorage) Load(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (m *MemoryStorage) Save(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock := m.locks.lock(key)
	defer unlock()
	return fn(ctx)
}

func (m *MemoryStorage) Close() error { return nil }
