package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("backend unreachable")

// flakyStore wraps a working store and fails every call while down.
type flakyStore struct {
	inner Store
	down  bool
}

func (s *flakyStore) SetRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if s.down {
		return errStoreDown
	}
	return s.inner.SetRefresh(ctx, userID, token, ttl)
}

func (s *flakyStore) GetRefresh(ctx context.Context, userID string) (string, error) {
	if s.down {
		return "", errStoreDown
	}
	return s.inner.GetRefresh(ctx, userID)
}

func (s *flakyStore) DeleteRefresh(ctx context.Context, userID string) error {
	if s.down {
		return errStoreDown
	}
	return s.inner.DeleteRefresh(ctx, userID)
}

func (s *flakyStore) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if s.down {
		return errStoreDown
	}
	return s.inner.Blacklist(ctx, token, ttl)
}

func (s *flakyStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if s.down {
		return false, errStoreDown
	}
	return s.inner.IsBlacklisted(ctx, token)
}

func newFailoverFixture() (*FailoverStore, *flakyStore, *MemoryStore) {
	primary := &flakyStore{inner: NewMemoryStore()}
	fallback := NewMemoryStore()
	return NewFailoverStore(primary, fallback), primary, fallback
}

func TestFailoverNeverSurfacesOutage(t *testing.T) {
	ctx := context.Background()
	store, primary, _ := newFailoverFixture()
	primary.down = true

	// Every operation succeeds against the fallback while the primary
	// is unreachable.
	require.NoError(t, store.SetRefresh(ctx, "u1", "token-a", time.Hour))
	got, err := store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "token-a", got)

	require.NoError(t, store.Blacklist(ctx, "tok", time.Hour))
	revoked, err := store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	require.NoError(t, store.DeleteRefresh(ctx, "u1"))
	_, err = store.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFailoverReadsFallbackAfterRecovery(t *testing.T) {
	ctx := context.Background()
	store, primary, _ := newFailoverFixture()

	// Write lands in the fallback during an outage.
	primary.down = true
	require.NoError(t, store.SetRefresh(ctx, "u1", "token-a", time.Hour))

	// After recovery the primary has no entry, but the fallback copy
	// must still answer so the user's refresh token keeps working.
	primary.down = false
	got, err := store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "token-a", got)
}

func TestFailoverScrubsStaleFallbackOnWrite(t *testing.T) {
	ctx := context.Background()
	store, primary, fallback := newFailoverFixture()

	primary.down = true
	require.NoError(t, store.SetRefresh(ctx, "u1", "old-token", time.Hour))

	// A healthy rotation must supersede the outage-era fallback copy,
	// or the fallback would resurrect the old token forever.
	primary.down = false
	require.NoError(t, store.SetRefresh(ctx, "u1", "new-token", time.Hour))

	_, err := fallback.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := store.GetRefresh(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new-token", got)
}

func TestFailoverDeleteClearsBoth(t *testing.T) {
	ctx := context.Background()
	store, primary, fallback := newFailoverFixture()

	primary.down = true
	require.NoError(t, store.SetRefresh(ctx, "u1", "outage-token", time.Hour))
	primary.down = false
	require.NoError(t, primary.SetRefresh(ctx, "u1", "primary-token", time.Hour))

	require.NoError(t, store.DeleteRefresh(ctx, "u1"))

	_, err := store.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = fallback.GetRefresh(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFailoverBlacklistSurvivesRecovery(t *testing.T) {
	ctx := context.Background()
	store, primary, _ := newFailoverFixture()

	primary.down = true
	require.NoError(t, store.Blacklist(ctx, "tok", time.Hour))

	// Blacklist entries are add-only: one written during the outage
	// must still reject the token once the primary is back.
	primary.down = false
	revoked, err := store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)
}
