// Package tokenstore holds the server-side revocation and rotation
// state for the token lifecycle: the single active refresh token per
// user and the blacklist of access tokens revoked before natural
// expiry. Two interchangeable backends implement the same contract;
// the backend is selected once at process start and never mixed.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetRefresh when no refresh token is
// currently stored for the user.
var ErrNotFound = errors.New("tokenstore: not found")

// Store is the contract shared by the Redis backend and the in-memory
// fallback. Every write must be visible to subsequent reads from the
// same process. All entries carry a TTL bounding storage growth.
type Store interface {
	// SetRefresh stores the single active refresh token for a user,
	// silently replacing any prior value. The overwrite is the rotation
	// mechanism: the superseded token is never valid again.
	SetRefresh(ctx context.Context, userID, token string, ttl time.Duration) error

	// GetRefresh returns the currently stored refresh token for a user,
	// or ErrNotFound.
	GetRefresh(ctx context.Context, userID string) (string, error)

	// DeleteRefresh removes the stored refresh token for a user.
	// Deleting an absent key is not an error.
	DeleteRefresh(ctx context.Context, userID string) error

	// Blacklist marks an access token as revoked for the given TTL,
	// which callers set to the token's remaining lifetime so entries
	// disappear once the token would have expired anyway.
	Blacklist(ctx context.Context, token string, ttl time.Duration) error

	// IsBlacklisted reports whether an access token has been revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Key layout shared by both backends.
const (
	refreshKeyPrefix   = "refresh_token:"
	blacklistKeyPrefix = "blacklist:"
)

func refreshKey(userID string) string {
	return refreshKeyPrefix + userID
}

func blacklistKey(token string) string {
	return blacklistKeyPrefix + token
}
