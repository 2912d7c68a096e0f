package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"buyScope/internal/model"
)

// Option configures a Memory guard.
type Option func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is an in-process guard bounded by capacity. The least recently
// marked key is evicted first and every key expires ttl after insertion.
type Memory struct {
	mu      sync.Mutex
	entries *simplelru.LRU[model.EventKey, time.Time]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory builds a Memory guard. Non-positive values select the defaults.
func NewMemory(capacity int, ttl time.Duration, opts ...Option) (*Memory, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entries, err := simplelru.NewLRU[model.EventKey, time.Time](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	m := &Memory{entries: entries, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Memory) IsDuplicate(_ context.Context, key model.EventKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveLocked(key), nil
}

func (m *Memory) MarkSeen(_ context.Context, key model.EventKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Add(key, m.now().Add(m.ttl))
	return nil
}

func (m *Memory) HandleReorg(_ context.Context, key model.EventKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Remove(key)
	return nil
}

func (m *Memory) CheckAndMark(_ context.Context, key model.EventKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liveLocked(key) {
		return false, nil
	}
	m.entries.Add(key, m.now().Add(m.ttl))
	return true, nil
}

// Len returns the number of tracked keys, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Len()
}

// liveLocked reports whether key is present and unexpired. Expired entries
// are dropped on the way.
func (m *Memory) liveLocked(key model.EventKey) bool {
	expiry, ok := m.entries.Peek(key)
	if !ok {
		return false
	}
	if !m.now().Before(expiry) {
		m.entries.Remove(key)
		return false
	}
	return true
}
