package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/resolvehq/resolve/internal/utils"
)

// FailoverStore fronts the durable backend with the in-memory
// fallback. Any primary I/O error is logged and the operation is
// retried against the fallback for that call only — it is never
// surfaced to the caller, because keeping the session flow up matters
// more than perfect revocation durability.
//
// Reads consult the fallback both on primary error and on a clean
// primary miss, so writes that landed in the fallback during an
// outage still count after the primary comes back.
type FailoverStore struct {
	primary  Store
	fallback *MemoryStore
}

func NewFailoverStore(primary Store, fallback *MemoryStore) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback}
}

func (s *FailoverStore) SetRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.primary.SetRefresh(ctx, userID, token, ttl); err != nil {
		utils.Logger.WithError(err).Warn("token store write failed, falling back to in-memory store")
		return s.fallback.SetRefresh(ctx, userID, token, ttl)
	}
	// Scrub any value a prior outage left behind so the fallback can
	// never resurrect a superseded refresh token.
	_ = s.fallback.DeleteRefresh(ctx, userID)
	return nil
}

func (s *FailoverStore) GetRefresh(ctx context.Context, userID string) (string, error) {
	val, err := s.primary.GetRefresh(ctx, userID)
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, ErrNotFound) {
		utils.Logger.WithError(err).Warn("token store read failed, falling back to in-memory store")
	}
	return s.fallback.GetRefresh(ctx, userID)
}

func (s *FailoverStore) DeleteRefresh(ctx context.Context, userID string) error {
	// Delete from both so a fallback copy cannot outlive a logout.
	_ = s.fallback.DeleteRefresh(ctx, userID)
	if err := s.primary.DeleteRefresh(ctx, userID); err != nil {
		utils.Logger.WithError(err).Warn("token store delete failed, entry already cleared from in-memory store")
	}
	return nil
}

func (s *FailoverStore) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.primary.Blacklist(ctx, token, ttl); err != nil {
		utils.Logger.WithError(err).Warn("token store blacklist write failed, falling back to in-memory store")
		return s.fallback.Blacklist(ctx, token, ttl)
	}
	return nil
}

func (s *FailoverStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	revoked, err := s.primary.IsBlacklisted(ctx, token)
	if err != nil {
		utils.Logger.WithError(err).Warn("token store blacklist check failed, falling back to in-memory store")
		return s.fallback.IsBlacklisted(ctx, token)
	}
	if revoked {
		return true, nil
	}
	// Blacklist entries are add-only; one written during an outage must
	// still reject the token.
	return s.fallback.IsBlacklisted(ctx, token)
}
