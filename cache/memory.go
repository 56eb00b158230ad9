package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter is an in-process TTL cache. When MaxEntries is reached the
// entry closest to expiry is evicted.
type MemoryAdapter struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	maxEntries int
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryAdapter starts an adapter whose janitor sweeps expired entries
// every interval. maxEntries <= 0 means unbounded.
func NewMemoryAdapter(maxEntries int, interval time.Duration) *MemoryAdapter {
	a := &MemoryAdapter{
		items:      make(map[string]memoryItem),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if interval > 0 {
		go a.janitor(interval)
	}
	return a
}

func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	a.mu.RLock()
	item, ok := a.items[key]
	a.mu.RUnlock()

	if !ok || !a.now().Before(item.expiresAt) {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.items[key]; !exists && a.maxEntries > 0 && len(a.items) >= a.maxEntries {
		a.evictLocked()
	}
	a.items[key] = memoryItem{value: stored, expiresAt: a.now().Add(ttl)}
	return nil
}

func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.items, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (a *MemoryAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Close stops the janitor.
func (a *MemoryAdapter) Close() error {
	a.stopOnce.Do(func() { close(a.stop) })
	return nil
}

func (a *MemoryAdapter) evictLocked() {
	var victim string
	var earliest time.Time
	for key, item := range a.items {
		if victim == "" || item.expiresAt.Before(earliest) {
			victim, earliest = key, item.expiresAt
		}
	}
	delete(a.items, victim)
}

func (a *MemoryAdapter) sweep() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for key, item := range a.items {
		if !now.Before(item.expiresAt) {
			delete(a.items, key)
		}
	}
}

func (a *MemoryAdapter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.sweep()
		case <-a.stop:
			return
		}
	}
}

var _ Adapter = (*MemoryAdapter)(nil)
