package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// MintGuard implements ports.MintGuard using Redis SET NX. It marks an
// idempotency key as in flight so two concurrent requests carrying the same
// reference never both reach settlement; the loser is told to retry and gets
// the cached receipt once the winner commits.
type MintGuard struct {
	client *goredis.Client
	prefix string
}

// NewMintGuard creates a new Redis-backed mint guard.
func NewMintGuard(client *goredis.Client) *MintGuard {
	return &MintGuard{
		client: client,
		prefix: "mint:inflight:",
	}
}

// Acquire atomically claims the key. Returns false when another request
// holds it.
func (g *MintGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := g.client.SetArgs(ctx, g.prefix+key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — another request is in flight
			return false, nil
		}
		return false, fmt.Errorf("redis mint guard acquire: %w", err)
	}
	return result == "OK", nil
}

// Release frees the key once the mint has committed or failed.
func (g *MintGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis mint guard release: %w", err)
	}
	return nil
}
