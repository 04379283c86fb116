package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store keeps carts per session. Load returns an empty cart for an unknown
// or expired session; carts are never persisted to the relational store.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, cart *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// ErrInvalidSession is returned for an empty session id
var ErrInvalidSession = errors.New("session id is required")

const defaultMaxSessions = 10000

type memoryEntry struct {
	cart      *Cart
	expiresAt time.Time
}

// MemoryStore keeps carts in process, bounded by an LRU over sessions.
// Carts are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most maxSessions carts. A zero
// ttl keeps carts until they are evicted or deleted.
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	cache, err := lru.New[string, memoryEntry](maxSessions)
	if err != nil {
		cache, _ = lru.New[string, memoryEntry](defaultMaxSessions)
	}
	return &MemoryStore{cache: cache, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache.Get(sessionID)
	if !ok {
		return New(), nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		s.cache.Remove(sessionID)
		return New(), nil
	}
	return entry.cart.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, cart *Cart) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(sessionID, memoryEntry{cart: cart.Clone(), expiresAt: s.now().Add(s.ttl)})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(sessionID)
	return nil
}

// Sessions returns the number of carts currently held
func (s *MemoryStore) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
