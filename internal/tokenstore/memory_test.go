package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock drives the MemoryStore's notion of now.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newClockedStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.Now
	return store, clock
}

func TestMemoryStoreRefreshLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore()

	_, err := store.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetRefresh(ctx, "u1", "token-a", time.Hour))
	got, err := store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "token-a", got)

	// Overwrite is rotation: only the latest value survives.
	require.NoError(t, store.SetRefresh(ctx, "u1", "token-b", time.Hour))
	got, err = store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "token-b", got)

	require.NoError(t, store.DeleteRefresh(ctx, "u1"))
	_, err = store.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.DeleteRefresh(ctx, "u1"))
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore()

	require.NoError(t, store.SetRefresh(ctx, "u1", "token-a", time.Hour))

	clock.Advance(59 * time.Minute)
	got, err := store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "token-a", got)

	// The ttl boundary is closed: at exactly +1h the entry is gone.
	clock.Advance(time.Minute)
	_, err = store.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	// Expired entries are deleted on read, not just hidden.
	require.Equal(t, 0, store.Len())
}

func TestMemoryStoreBlacklist(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore()

	revoked, err := store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, store.Blacklist(ctx, "tok", 5*time.Minute))
	revoked, err = store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	// Once the token would have expired anyway the entry lapses.
	clock.Advance(5 * time.Minute)
	revoked, err = store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryStoreKeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	store, _ := newClockedStore()

	// A user ID and a token with the same text must never collide.
	require.NoError(t, store.SetRefresh(ctx, "same", "refresh-value", time.Hour))
	require.NoError(t, store.Blacklist(ctx, "same", time.Hour))

	got, err := store.GetRefresh(ctx, "same")
	require.NoError(t, err)
	require.Equal(t, "refresh-value", got)

	require.NoError(t, store.DeleteRefresh(ctx, "same"))
	revoked, err := store.IsBlacklisted(ctx, "same")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore()

	require.NoError(t, store.SetRefresh(ctx, "u1", "token-a", time.Hour))
	require.NoError(t, store.SetRefresh(ctx, "u2", "token-b", 3*time.Hour))
	require.NoError(t, store.Blacklist(ctx, "tok", time.Hour))
	require.Equal(t, 3, store.Len())

	require.Equal(t, 0, store.Sweep())

	// Only the entries past their expiry are reclaimed.
	clock.Advance(2 * time.Hour)
	require.Equal(t, 2, store.Sweep())
	require.Equal(t, 1, store.Len())

	got, err := store.GetRefresh(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, "token-b", got)
}
