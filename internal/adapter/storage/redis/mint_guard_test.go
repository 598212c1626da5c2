package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintGuard_Acquire(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	guard := NewMintGuard(client)
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "minter-1:7:ref-a", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "first acquire should succeed")

	ok, err = guard.Acquire(ctx, "minter-1:7:ref-a", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire of a held key should fail")

	ok, err = guard.Acquire(ctx, "minter-2:7:ref-a", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "different minter is a different key")
}

func TestMintGuard_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	guard := NewMintGuard(client)
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "minter-1:7:ref-a", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "minter-1:7:ref-a"))

	ok, err = guard.Acquire(ctx, "minter-1:7:ref-a", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "released key can be acquired again")
}

func TestMintGuard_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	guard := NewMintGuard(client)
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "minter-1:7:ref-a", 1*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = guard.Acquire(ctx, "minter-1:7:ref-a", 1*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "a crashed holder's claim expires")
}
