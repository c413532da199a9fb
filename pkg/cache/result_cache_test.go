package cache

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// unreachable points at a closed port so every call fails fast
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "gridiron:batch:abc", Key("batch", "abc"))

	a, err := RequestKey("batch", map[string]interface{}{"trials": 10, "seed": 1})
	require.NoError(t, err)
	b, err := RequestKey("batch", map[string]interface{}{"seed": 1, "trials": 10})
	require.NoError(t, err)
	c, err := RequestKey("batch", map[string]interface{}{"trials": 11, "seed": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "gridiron:request:batch:"))
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *ResultCache
	ctx := context.Background()
	var out map[string]int

	assert.NoError(t, c.Set(ctx, "k", 1))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Ping(ctx))
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := NewResultCache(unreachable(), time.Minute, 2, time.Minute, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := c.Set(ctx, Key("batch", "x"), map[string]int{"n": i})
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	var out map[string]int
	err := c.Get(ctx, Key("batch", "x"), &out)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)

	_, err = NewRedisClient("http://nope")
	assert.Error(t, err)
}
