package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count   int64
	expires time.Time // zero: never
}

// Memory is an in-process Cache for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*entry), now: time.Now}
}

// live returns the unexpired entry for key. Callers hold m.mu.
func (m *Memory) live(key string) *entry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &entry{}
		m.entries[key] = e
	}
	e.count++
	e.expires = m.now().Add(window)
	return e.count, nil
}

func (m *Memory) Count(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(key); e != nil {
		return e.count, nil
	}
	return 0, nil
}

func (m *Memory) Flag(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &entry{count: 1}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return 0, false, nil
	}
	if e.expires.IsZero() {
		return 0, true, nil
	}
	return e.expires.Sub(m.now()), true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
