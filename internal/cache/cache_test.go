package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Power float64 `json:"power"`
	Speed float64 `json:"speed"`
}

type result struct {
	Model string  `json:"model"`
	Score float64 `json:"score"`
}

func TestMemoryClient_TTL(t *testing.T) {
	c := NewMemoryClient()
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err, "ttl 0 never expires")
}

func TestSelectionCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sc := NewSelectionCache(NewMemoryClient(), time.Minute, "sid-1")
	req := request{Power: 300, Speed: 1800}

	var got result
	assert.ErrorIs(t, sc.Get(ctx, "gearbox", req, &got), ErrCacheMiss)

	require.NoError(t, sc.Set(ctx, "gearbox", req, result{Model: "HC400", Score: 75}))
	require.NoError(t, sc.Get(ctx, "gearbox", req, &got))
	assert.Equal(t, result{Model: "HC400", Score: 75}, got)

	assert.ErrorIs(t, sc.Get(ctx, "gearbox", request{Power: 301, Speed: 1800}, &got), ErrCacheMiss)
	assert.ErrorIs(t, sc.Get(ctx, "coupling", req, &got), ErrCacheMiss)
}

func TestSelectionCache_KeyIncludesVersion(t *testing.T) {
	mem := NewMemoryClient()
	req := request{Power: 300, Speed: 1800}
	k1, err := NewSelectionCache(mem, 0, "sid-1").Key("gearbox", req)
	require.NoError(t, err)
	k2, err := NewSelectionCache(mem, 0, "sid-2").Key("gearbox", req)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.Regexp(t, `^sel:gearbox:sid-1:[0-9a-f]{64}$`, k1)
}

func TestSelectionCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient()
	require.NoError(t, mem.Set(ctx, "other", []byte("x"), 0))
	sc := NewSelectionCache(mem, 0, "v")
	require.NoError(t, sc.Set(ctx, "gearbox", request{Power: 1}, result{Model: "HC400"}))

	require.NoError(t, sc.Invalidate(ctx))
	var got result
	assert.ErrorIs(t, sc.Get(ctx, "gearbox", request{Power: 1}, &got), ErrCacheMiss)
	_, err := mem.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
