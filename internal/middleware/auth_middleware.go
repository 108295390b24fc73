package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/token"
	"github.com/resolvehq/resolve/internal/tokenstore"
	"github.com/resolvehq/resolve/internal/utils"
)

type contextKey string

// ContextKeyClaims carries the authenticated user's claims through the
// request context once the guard has admitted the request.
const ContextKeyClaims = contextKey("claims")

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Guard verifies bearer tokens for protected endpoints. It never
// mutates state, so it is safe to run redundantly and concurrently.
type Guard struct {
	codec *token.Codec
	store tokenstore.Store
}

func NewGuard(codec *token.Codec, store tokenstore.Store) *Guard {
	return &Guard{codec: codec, store: store}
}

// Authorize resolves an Authorization header value to the claims it
// carries: extract the bearer token, verify signature and expiry, then
// reject blacklisted tokens regardless of signature validity.
func (g *Guard) Authorize(ctx context.Context, authorizationHeader string) (*models.Claims, error) {
	tokenStr, err := extractBearerToken(authorizationHeader)
	if err != nil {
		return nil, err
	}

	claims, err := g.codec.Verify(tokenStr, token.KindAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := g.store.IsBlacklisted(ctx, tokenStr)
	if err != nil {
		utils.Logger.WithError(err).Error("blacklist check failed")
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RequireAuth is the mux middleware form of Authorize: on success the
// claims are attached to the request context, otherwise the request is
// rejected with a code the client coordinator can act on.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.Authorize(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			respondAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole layers a pure role predicate on top of RequireAuth; it
// performs no additional I/O and must run after the guard has placed
// claims in the context.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required",
				)
				return
			}
			if claims.Role != role {
				utils.RespondErrorWithCode(
					w, http.StatusForbidden, utils.ErrCodeForbidden, "Insufficient permissions",
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims the guard attached, or nil when
// the request never passed through RequireAuth.
func ClaimsFromContext(ctx context.Context) *models.Claims {
	claims, _ := ctx.Value(ContextKeyClaims).(*models.Claims)
	return claims
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		return "", ErrMissingToken
	}
	return tokenStr, nil
}

func respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeTokenExpired, "Token expired", err,
		)
	case errors.Is(err, ErrTokenRevoked):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeTokenRevoked, "Token revoked", err,
		)
	case errors.Is(err, ErrMissingToken):
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Access token required", err,
		)
	default:
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid token", err,
		)
	}
}
