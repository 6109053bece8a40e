package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_TTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewMemoryCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "route:search:v1:abc", "[]", time.Minute))

	got, err := c.Get(ctx, "route:search:v1:abc")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	clock.Advance(2 * time.Minute)

	_, err = c.Get(ctx, "route:search:v1:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCache_Incr(t *testing.T) {
	c := NewMemoryCache(clockwork.NewFakeClock())
	ctx := context.Background()

	first, err := c.Incr(ctx, "route:search:version")
	require.NoError(t, err)
	second, err := c.Incr(ctx, "route:search:version")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	require.NoError(t, c.Del(ctx, "route:search:version"))
	_, err = c.Get(ctx, "route:search:version")
	assert.ErrorIs(t, err, ErrMiss)
}
