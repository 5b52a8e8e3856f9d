// Package cache provides fetched-page caches keyed by URL. Entries expire
// after a TTL; a stale hit is a miss.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/flocrawl/flocrawl/internal/crawl"
)

// Memory is a process-local TTL cache. It suits single-instance deployments
// and tests; multi-instance deployments use the Postgres-backed cache.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]memoryEntry
	now        func() time.Time
}

type memoryEntry struct {
	res      crawl.FetchResult
	storedAt time.Time
}

// NewMemory builds an in-memory cache. maxEntries <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
	}
}

// Get returns the cached result for url if present and fresh.
func (m *Memory) Get(_ context.Context, url string) (crawl.FetchResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[url]
	if !ok {
		return crawl.FetchResult{}, false, nil
	}
	if m.ttl > 0 && m.now().Sub(e.storedAt) > m.ttl {
		delete(m.entries, url)
		return crawl.FetchResult{}, false, nil
	}
	return e.res, true, nil
}

// Put stores a fetch result, evicting the stalest entry when full.
func (m *Memory) Put(_ context.Context, res crawl.FetchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		if _, exists := m.entries[res.URL]; !exists {
			m.evictStalest()
		}
	}
	m.entries[res.URL] = memoryEntry{res: res, storedAt: m.now()}
	return nil
}

// evictStalest removes the entry with the oldest storedAt. Caller holds mu.
func (m *Memory) evictStalest() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for url, e := range m.entries {
		if !found || e.storedAt.Before(oldest) {
			victim, oldest, found = url, e.storedAt, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

// Len reports the number of live entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
