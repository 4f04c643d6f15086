package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/metrics"
)

// MemoryStore keeps sessions in process memory. A session expires after
// ttl without access; evicted controllers are closed.
type MemoryStore struct {
	cache *gocache.Cache

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemoryStore creates a session store. A cleanupInterval of zero
// disables the background sweeper; call Sweep to evict expired sessions.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	// go-cache's own janitor cannot be stopped, so sweeping is driven here
	c := gocache.New(ttl, 0)
	c.OnEvicted(func(_ string, v interface{}) {
		if ctl, ok := v.(*flow.Controller); ok {
			ctl.Close()
		}
		metrics.ActiveSessions.Dec()
	})

	s := &MemoryStore{cache: c, stop: make(chan struct{})}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.sweep(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) sweep(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cache.DeleteExpired()
		case <-s.stop:
			return
		}
	}
}

// Get retrieves a session and refreshes its expiry. Replace fails when the
// entry was evicted after the lookup, so a closed controller is never re-added.
func (s *MemoryStore) Get(id string) (*flow.Controller, bool) {
	v, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	ctl := v.(*flow.Controller)
	if err := s.cache.Replace(id, ctl, gocache.DefaultExpiration); err != nil {
		return nil, false
	}
	return ctl, true
}

// Put stores a new session
func (s *MemoryStore) Put(id string, c *flow.Controller) {
	if err := s.cache.Add(id, c, gocache.DefaultExpiration); err != nil {
		// Replacing an existing id closes the previous session
		s.cache.Delete(id)
		s.cache.SetDefault(id, c)
	}
	metrics.ActiveSessions.Inc()
}

// Delete removes and closes a session, reporting whether it existed
func (s *MemoryStore) Delete(id string) bool {
	if _, found := s.cache.Get(id); !found {
		return false
	}
	s.cache.Delete(id)
	return true
}

// Len returns the number of stored sessions, including expired ones not yet swept
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

// Sweep evicts expired sessions
func (s *MemoryStore) Sweep() {
	s.cache.DeleteExpired()
}

// Close stops the sweeper and evicts every session
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()

	s.cache.DeleteExpired()
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}
