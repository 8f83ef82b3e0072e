package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientEntry is one client's token bucket and when it was last used
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store is a thread-safe set of per-client token buckets. Buckets idle for
// longer than the idle TTL are evicted by a background sweep.
type Store struct {
	clients map[string]*clientEntry
	mutex   sync.Mutex

	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store allowing perMinute requests per client with the given burst
func NewStore(perMinute, burst int, idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	if burst <= 0 {
		burst = 1
	}

	store := &Store{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go store.sweep()

	return store
}

// Allow reports whether the client identified by key may make a request now
func (s *Store) Allow(key string) bool {
	s.mutex.Lock()
	now := s.now()
	entry, exists := s.clients[key]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = entry
	}
	entry.lastSeen = now
	s.mutex.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Size returns the number of tracked clients
func (s *Store) Size() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// Close stops the background sweep
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// sweep evicts idle clients periodically until Close is called
func (s *Store) sweep() {
	ticker := time.NewTicker(s.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stop:
			return
		}
	}
}

// evictIdle removes clients not seen within the idle TTL
func (s *Store) evictIdle() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	for key, entry := range s.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(s.clients, key)
		}
	}
}
