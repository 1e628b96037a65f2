// Package cache keeps short-lived, closable values in memory with a TTL.
// A value that leaves the cache for any reason (expiry, eviction, delete)
// is closed.
package cache

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/ristretto"
)

// ErrRejected is returned when the cache refuses a new value.
var ErrRejected = errors.New("cache rejected value")

// Store is a TTL cache of io.Closer values backed by ristretto.
type Store struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewStore creates a store holding at most capacity values for ttl each.
func NewStore(capacity int64, ttl time.Duration) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * capacity,
		MaxCost:     capacity,
		BufferItems: 64,
		// Every value costs 1, so MaxCost is a count of values.
		IgnoreInternalCost: true,
		OnEvict:            closeItem,
		OnReject:           closeItem,
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Store{cache: c, ttl: ttl}, nil
}

func closeItem(item *ristretto.Item) {
	if c, ok := item.Value.(io.Closer); ok {
		_ = c.Close()
	}
}

// Set stores value under key. It blocks until the value is visible to Get.
func (s *Store) Set(key string, value io.Closer) error {
	if !s.cache.SetWithTTL(key, value, 1, s.ttl) {
		_ = value.Close()
		return ErrRejected
	}
	s.cache.Wait()
	if _, ok := s.cache.Get(key); !ok {
		return ErrRejected
	}
	return nil
}

// Get returns the live value for key and restarts its TTL, so values
// expire after ttl without access rather than ttl after Set.
func (s *Store) Get(key string) (io.Closer, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	c, ok := v.(io.Closer)
	if !ok {
		return nil, false
	}
	s.cache.SetWithTTL(key, c, 1, s.ttl)
	return c, true
}

// Delete closes and removes the value for key.
func (s *Store) Delete(key string) {
	if v, ok := s.Get(key); ok {
		_ = v.Close()
	}
	s.cache.Del(key)
}

// TTL returns the lifetime of stored values.
func (s *Store) TTL() time.Duration { return s.ttl }

// Close stops the cache's background goroutines.
func (s *Store) Close() {
	s.cache.Close()
}
