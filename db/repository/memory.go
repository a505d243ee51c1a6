package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository implements KV and Bus in process memory. It backs the
// test suite and serves as the bus for single-node deployments that run
// on the bolt KV.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	subs    map[string][]chan []byte
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries: make(map[string]memoryEntry),
		subs:    make(map[string][]chan []byte),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook for TTL expiry.
func (m *MemoryRepository) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryRepository) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[key]; ok && !entry.expired(m.now()) {
		return false, nil
	}
	m.entries[key] = m.entry(value, ttl)
	return true, nil
}

func (m *MemoryRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || entry.expired(m.now()) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *MemoryRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.entry(value, ttl)
	return nil
}

func (m *MemoryRepository) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryRepository) entry(value []byte, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return e
}

// Publish delivers payload to every live subscriber of channel. Slow
// subscribers are skipped rather than blocking the publisher.
func (m *MemoryRepository) Publish(ctx context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	subs := append([]chan []byte(nil), m.subs[channel]...)
	m.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- append([]byte(nil), payload...):
		default:
		}
	}
	return nil
}

func (m *MemoryRepository) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := make(chan []byte, 16)

	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer m.unsubscribe(channel, sub)
		for {
			select {
			case payload := <-sub:
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (m *MemoryRepository) unsubscribe(channel string, sub chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[channel]
	for i, s := range subs {
		if s == sub {
			m.subs[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
