// Package cache provides time-boxed memoization of connector requests.
// A Store is owned by exactly one connector; entries are only ever mutated
// through the Store's own methods.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value  any
	expiry time.Time
}

// Store is a thread-safe in-memory TTL cache. Expired entries are dropped
// lazily on Get and, when a janitor interval is configured, swept by a
// background goroutine that Close cancels.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	janitor *time.Ticker
	stop    chan struct{}
	once    sync.Once
}

// New creates a Store. A positive janitorInterval starts a background
// sweep; zero disables it and expiry is checked only on access.
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	if janitorInterval > 0 {
		s.janitor = time.NewTicker(janitorInterval)
		go s.sweep()
	}
	return s
}

// Key derives a deterministic cache key from the logical method, the target
// identifier, and the request parameters. Params are canonicalized by
// sorting, so semantically identical requests collide regardless of the
// order the caller assembled them in.
func Key(method, target string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(target)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(':')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(params[k])
		}
	}
	return b.String()
}

// Get returns the cached value for key and whether it was present and
// unexpired. A cached nil is a hit; the boolean is the miss sentinel.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiry) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiry) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with an absolute expiry of now+ttl. A
// non-positive ttl stores nothing.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiry: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close clears all entries and stops the janitor. Safe to call more than
// once.
func (s *Store) Close() {
	s.once.Do(func() {
		if s.janitor != nil {
			s.janitor.Stop()
		}
		close(s.stop)
	})
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

func (s *Store) sweep() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.janitor.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expiry) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
