package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Memory is a process-local KV used for development and tests. Entries are
// expired lazily on access.
type Memory struct {
	Clock func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.live(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key is required")
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]memoryEntry)
	}
	m.entries[key] = entry
	return nil
}

func (m *Memory) List(ctx context.Context, q KeyQuery) ([]Entry, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entries := []Entry{}
	for key, entry := range m.entries {
		if !entry.live(now) || !q.Matches(key) {
			continue
		}
		out := Entry{Key: key, Value: append([]byte(nil), entry.value...)}
		if !entry.expiresAt.IsZero() {
			ts := entry.expiresAt.UTC()
			out.ExpiresAt = &ts
		}
		entries = append(entries, out)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (m *Memory) Count(ctx context.Context, q KeyQuery) (int, error) {
	entries, err := m.List(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (m *Memory) Delete(ctx context.Context, q KeyQuery) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key := range m.entries {
		if q.Matches(key) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Driver() string {
	return DriverMemory
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
