// Package cache stores serialized selection results in Redis, or in process
// memory for local runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// RedisClient implements cache using Redis.
type RedisClient struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "gearsel:"
	}
	return &RedisClient{client: client, prefix: prefix}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return val, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.Wrap(c.client.Set(ctx, c.prefix+key, value, ttl).Err(), "redis set")
}

// DeleteByPrefix removes all keys with the given prefix.
func (c *RedisClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrap(err, "redis delete by prefix")
		}
	}
	return errors.Wrap(iter.Err(), "redis scan")
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

// MemoryClient is an in-process Client. Expired entries are dropped lazily.
type MemoryClient struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{data: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value; ttl <= 0 never expires, matching Redis.
func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

func (c *MemoryClient) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *MemoryClient) Close() error { return nil }

// SelectionCache keys selection results by request content and catalog
// version, so a rebuilt catalog never serves stale picks.
type SelectionCache struct {
	client  Client
	ttl     time.Duration
	version string
}

const selectionPrefix = "sel:"

func NewSelectionCache(c Client, ttl time.Duration, catalogVersion string) *SelectionCache {
	return &SelectionCache{client: c, ttl: ttl, version: catalogVersion}
}

// Key returns "sel:<kind>:<version>:<sha256 of the JSON request>".
func (s *SelectionCache) Key(kind string, req any) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}
	sum := sha256.Sum256(b)
	return selectionPrefix + kind + ":" + s.version + ":" + hex.EncodeToString(sum[:]), nil
}

// Get decodes the cached result for req into out. It returns ErrCacheMiss
// when nothing is cached.
func (s *SelectionCache) Get(ctx context.Context, kind string, req any, out any) error {
	key, err := s.Key(kind, req)
	if err != nil {
		return err
	}
	b, err := s.client.Get(ctx, key)
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(b, out), "unmarshal cached result")
}

func (s *SelectionCache) Set(ctx context.Context, kind string, req any, result any) error {
	key, err := s.Key(kind, req)
	if err != nil {
		return err
	}
	b, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	return s.client.Set(ctx, key, b, s.ttl)
}

func (s *SelectionCache) Close() error { return s.client.Close() }

// Invalidate drops every cached selection.
func (s *SelectionCache) Invalidate(ctx context.Context) error {
	return s.client.DeleteByPrefix(ctx, selectionPrefix)
}
