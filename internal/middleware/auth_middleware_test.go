package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resolvehq/resolve/internal/models"
	"github.com/resolvehq/resolve/internal/token"
	"github.com/resolvehq/resolve/internal/tokenstore"
	"github.com/resolvehq/resolve/internal/utils"
)

func newGuardFixture(t *testing.T) (*Guard, *token.Codec, *tokenstore.MemoryStore) {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	store := tokenstore.NewMemoryStore()
	return NewGuard(codec, store), codec, store
}

func issueAccess(t *testing.T, codec *token.Codec, role models.Role) (string, models.Claims) {
	t.Helper()
	claims := models.Claims{
		UserID: "5d3c2e81-9f10-4b6a-a2ce-07f1c5a4d9b2",
		Email:  "alice@example.com",
		Role:   role,
	}
	tokenStr, err := codec.IssueAccess(claims)
	require.NoError(t, err)
	return tokenStr, claims
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	guard, codec, store := newGuardFixture(t)

	accessToken, wantClaims := issueAccess(t, codec, models.RoleUser)
	refreshToken, err := codec.IssueRefresh(wantClaims)
	require.NoError(t, err)

	revokedToken, _ := issueAccess(t, codec, models.RoleUser)
	require.NoError(t, store.Blacklist(ctx, revokedToken, time.Hour))

	cases := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"valid token", "Bearer " + accessToken, nil},
		{"no header", "", ErrMissingToken},
		{"not bearer", "Basic dXNlcjpwYXNz", ErrMissingToken},
		{"empty bearer", "Bearer ", ErrMissingToken},
		{"garbage token", "Bearer not.a.jwt", token.ErrTokenMalformed},
		{"refresh token on access endpoint", "Bearer " + refreshToken, token.ErrTokenMalformed},
		{"blacklisted token", "Bearer " + revokedToken, ErrTokenRevoked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := guard.Authorize(ctx, tc.header)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, wantClaims, *claims)
		})
	}
}

func TestAuthorizeExpiredToken(t *testing.T) {
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	guard := NewGuard(codec, tokenstore.NewMemoryStore())

	expired, _ := issueAccess(t, codec, models.RoleUser)
	_, err = guard.Authorize(context.Background(), "Bearer "+expired)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func TestRequireAuthAttachesClaims(t *testing.T) {
	guard, codec, _ := newGuardFixture(t)
	accessToken, wantClaims := issueAccess(t, codec, models.RoleUser)

	var gotClaims *models.Claims
	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	require.Equal(t, wantClaims, *gotClaims)
}

func TestRequireAuthErrorCodes(t *testing.T) {
	ctx := context.Background()
	guard, codec, store := newGuardFixture(t)

	revokedToken, _ := issueAccess(t, codec, models.RoleUser)
	require.NoError(t, store.Blacklist(ctx, revokedToken, time.Hour))

	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for rejected requests")
	}))

	cases := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing token", "", utils.ErrCodeUnauthorized},
		{"revoked token", "Bearer " + revokedToken, utils.ErrCodeTokenRevoked},
		{"malformed token", "Bearer nope", utils.ErrCodeUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, tc.wantCode, decodeErrorCode(t, rec))
		})
	}
}

func TestRequireAuthExpiredTokenCode(t *testing.T) {
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	guard := NewGuard(codec, tokenstore.NewMemoryStore())
	expired, _ := issueAccess(t, codec, models.RoleUser)

	handler := guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The distinct code is what tells the client coordinator to
	// refresh and retry instead of logging out.
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, utils.ErrCodeTokenExpired, decodeErrorCode(t, rec))
}

func TestRequireRole(t *testing.T) {
	guard, codec, _ := newGuardFixture(t)
	adminOnly := guard.RequireAuth(RequireRole(models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	adminToken, _ := issueAccess(t, codec, models.RoleAdmin)
	userToken, _ := issueAccess(t, codec, models.RoleUser)

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/admin-thing", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("Bearer " + adminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	// Valid token, insufficient role.
	rec = serve("Bearer " + userToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, utils.ErrCodeForbidden, decodeErrorCode(t, rec))

	rec = serve("")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleWithoutGuard(t *testing.T) {
	// RequireRole on its own, with no claims in the context, must
	// reject rather than panic.
	handler := RequireRole(models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/admin-thing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
