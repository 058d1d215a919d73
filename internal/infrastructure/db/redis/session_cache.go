package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultSessionTTL = 15 * time.Minute
	// revokedGrace covers a read-through that fetched the session before
	// logout and writes its entry just after the tombstone.
	revokedGrace = time.Minute
)

// SessionCache is a read-through cache of session token hash -> user ID.
// Key format: session:<token_hash>, tombstones at session:revoked:<token_hash>
//
// Entries expire after ttl so a session deleted behind the cache's back
// stops resolving within that window.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a SessionCache wrapping the given Redis client.
func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionCache{client: client, ttl: ttl}
}

// Get returns the cached user ID for tokenHash. ok is false on a miss or
// when the token carries a tombstone.
func (c *SessionCache) Get(ctx context.Context, tokenHash string) (string, bool, error) {
	vals, err := c.client.MGet(ctx, c.key(tokenHash), c.revokedKey(tokenHash)).Result()
	if err != nil {
		return "", false, fmt.Errorf("session cache get: %w", err)
	}
	if len(vals) != 2 || vals[1] != nil {
		return "", false, nil
	}
	userID, ok := vals[0].(string)
	if !ok || userID == "" {
		return "", false, nil
	}
	return userID, true, nil
}

// Set caches the user ID for tokenHash (expires after ttl).
func (c *SessionCache) Set(ctx context.Context, tokenHash, userID string) error {
	if err := c.client.Set(ctx, c.key(tokenHash), userID, c.ttl).Err(); err != nil {
		return fmt.Errorf("session cache set: %w", err)
	}
	return nil
}

// Revoke evicts tokenHash and writes a tombstone that outlives any entry a
// concurrent Set can still write. Missing keys are not an error.
func (c *SessionCache) Revoke(ctx context.Context, tokenHash string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.revokedKey(tokenHash), "1", c.ttl+revokedGrace)
		pipe.Del(ctx, c.key(tokenHash))
		return nil
	})
	if err != nil {
		return fmt.Errorf("session cache revoke: %w", err)
	}
	return nil
}

func (c *SessionCache) key(tokenHash string) string {
	return "session:" + tokenHash
}

func (c *SessionCache) revokedKey(tokenHash string) string {
	return "session:revoked:" + tokenHash
}
