// Package session keeps per-shopper key/value state between checkout
// requests. Entries expire after a sliding TTL.
package session

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type Store interface {
	// Exists reports whether sid names a live session.
	Exists(sid string) bool
	// Create starts an empty session under sid, replacing any previous one.
	Create(sid string)
	// Move rekeys the session at from to to. When from is unknown an empty
	// session is created.
	Move(from, to string)
	Get(sid, key string) (any, bool)
	Set(sid, key string, v any)
	Unset(sid, key string)
	Destroy(sid string)
}

type values struct {
	mu sync.RWMutex
	m  map[string]any
}

// TTLStore holds every session in one ttlcache entry keyed by session id.
// Reads and writes extend the session's lifetime.
type TTLStore struct {
	cache *ttlcache.Cache[string, *values]
}

func NewTTLStore(ttl time.Duration) *TTLStore {
	return &TTLStore{
		cache: ttlcache.New[string, *values](
			ttlcache.WithTTL[string, *values](ttl),
		),
	}
}

// Start runs expiry cleanup until Stop is called.
func (s *TTLStore) Start() { go s.cache.Start() }

func (s *TTLStore) Stop() { s.cache.Stop() }

func (s *TTLStore) Len() int { return s.cache.Len() }

func (s *TTLStore) Exists(sid string) bool {
	return s.cache.Get(sid) != nil
}

func (s *TTLStore) Create(sid string) {
	s.cache.Set(sid, &values{m: map[string]any{}}, ttlcache.DefaultTTL)
}

func (s *TTLStore) Move(from, to string) {
	item := s.cache.Get(from)
	if item == nil {
		s.Create(to)
		return
	}
	s.cache.Set(to, item.Value(), ttlcache.DefaultTTL)
	s.cache.Delete(from)
}

func (s *TTLStore) Get(sid, key string) (any, bool) {
	item := s.cache.Get(sid)
	if item == nil {
		return nil, false
	}

	vs := item.Value()
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	v, ok := vs.m[key]
	return v, ok
}

func (s *TTLStore) Set(sid, key string, v any) {
	item, _ := s.cache.GetOrSet(sid, &values{m: map[string]any{}})

	vs := item.Value()
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.m[key] = v
}

func (s *TTLStore) Unset(sid, key string) {
	item := s.cache.Get(sid)
	if item == nil {
		return
	}

	vs := item.Value()
	vs.mu.Lock()
	defer vs.mu.Unlock()
	delete(vs.m, key)
}

func (s *TTLStore) Destroy(sid string) {
	s.cache.Delete(sid)
}
