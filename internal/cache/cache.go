// Package cache holds short-lived keys: OAuth state nonces and analytics
// event ids. Redis backs it when configured so several API instances agree;
// a process-local map is used otherwise.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is the subset of key/value operations the API needs.
type Cache interface {
	// SetNX stores value under key unless the key exists.
	// It reports whether this call created the key.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Take returns and deletes the value, so a key can be consumed once.
	Take(ctx context.Context, key string) (string, bool, error)
	Close() error
}

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.items[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	m.items[key] = entry{value: value, expires: now.Add(ttl)}
	// opportunistic cleanup keeps the map bounded without a goroutine
	if len(m.items)%256 == 0 {
		for k, e := range m.items {
			if !now.Before(e.expires) {
				delete(m.items, k)
			}
		}
	}
	return true, nil
}

func (m *Memory) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	delete(m.items, key)
	if !m.now().Before(e.expires) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Close() error { return nil }

var _ Cache = (*Memory)(nil)
