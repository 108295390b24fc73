package token

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/resolvehq/resolve/internal/models"
)

// TokenIssuer identifies the service that issues all access/refresh tokens.
const TokenIssuer = "Resolve"

// Kind selects which secret and lifetime a token is signed and
// verified with. Access and refresh secrets must differ so a leaked
// access token can never be replayed against the refresh endpoint.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrTokenExpired is returned when a structurally valid token is past
	// its expiry. The boundary is closed: exp == now is already expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed covers bad structure, bad signature and
	// wrong-kind tokens. A refresh token presented to the access
	// verifier fails its HMAC and is indistinguishable from tampering.
	ErrTokenMalformed = errors.New("token malformed")
)

// Config holds the signing material and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec signs and verifies access and refresh tokens. Verification is
// pure signature + expiry trust; revocation state lives in the store
// and is always the caller's responsibility.
type Codec struct {
	cfg Config
}

type signedClaims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewCodec validates the signing configuration once at startup.
// Misconfiguration here is fatal for the process, never per-request.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both access and refresh secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: access and refresh TTLs must be positive")
	}
	return &Codec{cfg: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime. The client
// coordinator uses it to place its renewal timer.
func (c *Codec) AccessTTL() time.Duration {
	return c.cfg.AccessTTL
}

// RefreshTTL reports the configured refresh-token lifetime, which is
// also the TTL of the single refresh slot kept per user in the store.
func (c *Codec) RefreshTTL() time.Duration {
	return c.cfg.RefreshTTL
}

// IssueAccess signs a short-lived access token for the given claims.
func (c *Codec) IssueAccess(claims models.Claims) (string, error) {
	return c.issue(claims, KindAccess)
}

// IssueRefresh signs a long-lived refresh token for the given claims.
func (c *Codec) IssueRefresh(claims models.Claims) (string, error) {
	return c.issue(claims, KindRefresh)
}

func (c *Codec) issue(claims models.Claims, kind Kind) (string, error) {
	secret, ttl := c.material(kind)
	now := time.Now()

	sc := signedClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(secret)
}

// Verify checks signature, issuer and expiry for the given kind and
// returns the embedded claims. It never consults the revocation store.
func (c *Codec) Verify(tokenStr string, kind Kind) (*models.Claims, error) {
	secret, _ := c.material(kind)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(tokenStr, &signedClaims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	sc, ok := tok.Claims.(*signedClaims)
	if !ok || !tok.Valid {
		return nil, ErrTokenMalformed
	}

	// exp == now counts as expired. Enforced here explicitly so the
	// closed boundary does not depend on parser leeway defaults.
	if sc.ExpiresAt != nil && !time.Now().Before(sc.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	if sc.UserID == "" || !sc.Role.IsValid() {
		return nil, ErrTokenMalformed
	}

	return &models.Claims{UserID: sc.UserID, Email: sc.Email, Role: sc.Role}, nil
}

// DecodeUnsafe extracts claims and expiry without verifying the
// signature. It exists solely so logout can recover the user ID and
// the remaining blacklist TTL from a possibly-expired access token.
// It must never be used to authorize anything.
func (c *Codec) DecodeUnsafe(tokenStr string) (*models.Claims, time.Time, bool) {
	var sc signedClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &sc); err != nil {
		return nil, time.Time{}, false
	}
	if sc.UserID == "" {
		return nil, time.Time{}, false
	}

	var expiresAt time.Time
	if sc.ExpiresAt != nil {
		expiresAt = sc.ExpiresAt.Time
	}
	return &models.Claims{UserID: sc.UserID, Email: sc.Email, Role: sc.Role}, expiresAt, true
}

func (c *Codec) material(kind Kind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return c.cfg.RefreshSecret, c.cfg.RefreshTTL
	}
	return c.cfg.AccessSecret, c.cfg.AccessTTL
}
