// Package cache holds short-lived counters and flags: login attempt counters,
// cooldowns and revoked bearer tokens.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Incr bumps the counter at key and (re)arms its expiry to window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count returns the counter at key, zero when missing.
	Count(ctx context.Context, key string) (int64, error)
	// Flag marks key as present for ttl; ttl 0 never expires.
	Flag(ctx context.Context, key string, ttl time.Duration) error
	// TTL reports the remaining lifetime of key and whether it exists.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// --- Bearer token revocation ---

func revokedKey(tokenID string) string { return "revoked:" + tokenID }

// Revoke blacklists a token id until it would have expired anyway.
func Revoke(ctx context.Context, c Cache, tokenID string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return c.Flag(ctx, revokedKey(tokenID), remaining)
}

func IsRevoked(ctx context.Context, c Cache, tokenID string) (bool, error) {
	_, ok, err := c.TTL(ctx, revokedKey(tokenID))
	return ok, err
}
