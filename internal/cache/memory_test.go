package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestMemory() (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.now
	return m, clock
}

func TestMemoryIncrExpires(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	n, err := m.Incr(ctx, "login:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, _ = m.Incr(ctx, "login:a@b.c", time.Minute)
	assert.EqualValues(t, 2, n)

	clock.advance(time.Minute)
	n, _ = m.Count(ctx, "login:a@b.c")
	assert.EqualValues(t, 0, n)
}

func TestMemoryFlagTTL(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, m.Flag(ctx, "cooldown", 10*time.Minute))
	clock.advance(4 * time.Minute)
	ttl, ok, err := m.TTL(ctx, "cooldown")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6*time.Minute, ttl)

	require.NoError(t, m.Delete(ctx, "cooldown"))
	_, ok, _ = m.TTL(ctx, "cooldown")
	assert.False(t, ok)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory()

	require.NoError(t, Revoke(ctx, m, "jti-1", time.Hour))
	require.NoError(t, Revoke(ctx, m, "jti-expired", 0))

	revoked, err := IsRevoked(ctx, m, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, _ = IsRevoked(ctx, m, "jti-expired")
	assert.False(t, revoked)

	clock.advance(time.Hour)
	revoked, _ = IsRevoked(ctx, m, "jti-1")
	assert.False(t, revoked)
}
