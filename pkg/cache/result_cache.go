package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrCacheMiss is returned when a key is absent or the cache is disabled
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "gridiron"

// ResultCache stores finished run results in redis. Calls go through a circuit
// breaker so an unavailable redis degrades to cache misses instead of slowing
// every request. A nil *ResultCache is a disabled cache.
type ResultCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisClient parses a redis:// URL into a client
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewResultCache wraps a redis client. The breaker opens after threshold
// consecutive failures and probes again after cooldown.
func NewResultCache(client *redis.Client, ttl time.Duration, threshold int, cooldown time.Duration, logger *logrus.Logger) *ResultCache {
	if threshold <= 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "redis-result-cache",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}
	return &ResultCache{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		ttl:     ttl,
		logger:  logger,
	}
}

// Key namespaces an id by result kind ("batch", "season", "request")
func Key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, id)
}

// RequestKey fingerprints a request body. Runs with a fixed seed are fully
// reproducible, so an identical request can be answered from the cache.
func RequestKey(kind string, request interface{}) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	sum := sha256.Sum256(data)
	return Key("request:"+kind, hex.EncodeToString(sum[:])), nil
}

// Set stores value as JSON under key
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  key,
		"expiration": c.ttl,
		"bytes":      len(data),
	}).Debug("Cached result")
	return nil
}

// Get decodes the JSON stored under key into dest
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return ErrCacheMiss
	}
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		data, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return data, err
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(raw.([]byte), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// Delete removes key
func (c *ResultCache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	return err
}

// Ping reports whether redis is reachable
func (c *ResultCache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache disabled")
	}
	return c.client.Ping(ctx).Err()
}

// State exposes the breaker state for health reporting
func (c *ResultCache) State() gobreaker.State {
	if c == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}
