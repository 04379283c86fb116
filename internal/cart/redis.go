package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

const (
	// DefaultRedisPrefix namespaces cart keys
	DefaultRedisPrefix = "bookstore:cart:"
	// DefaultCartTTL is how long an idle cart survives
	DefaultCartTTL = 24 * time.Hour
)

// RedisStore keeps carts in Redis so several server processes can share
// sessions. Each save refreshes the key's TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption allows customization of the Redis store
type RedisOption func(*RedisStore)

// WithTTL sets the idle expiry of carts
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the Redis key prefix
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// redisCart is the stored form: the lines in first-add order
type redisCart struct {
	Lines []types.CartLine `json:"lines"`
}

// NewRedisStore creates a cart store on an existing client
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    DefaultCartTTL,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// NewRedisStoreFromURL connects to redisURL and verifies the connection
func NewRedisStoreFromURL(ctx context.Context, redisURL string, opts ...RedisOption) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	err = retryWithBackoff(ctx, DefaultRetryConfig(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var stored redisCart
	if err := jsoniter.ConfigFastest.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return FromLines(stored.Lines), nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, cart *Cart) error {
	if sessionID == "" {
		return ErrInvalidSession
	}

	// An empty cart needs no key
	if cart.IsEmpty() {
		return s.Delete(ctx, sessionID)
	}

	data, err := jsoniter.ConfigFastest.Marshal(redisCart{Lines: cart.Lines()})
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
