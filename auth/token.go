package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRefreshWindowClosed is returned when a token is too old to be refreshed.
var ErrRefreshWindowClosed = errors.New("auth: token can no longer be refreshed")

// Claims carried by access tokens. RegisteredClaims.ID is the revocation key.
type Claims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role,omitempty"`
	// OrigIssuedAt is the login time, carried unchanged across refreshes.
	OrigIssuedAt *jwt.NumericDate `json:"orig_iat,omitempty"`
	jwt.RegisteredClaims
}

// SessionStart is when the user logged in. Tokens minted before orig_iat
// existed fall back to their own iat.
func (c *Claims) SessionStart() time.Time {
	if c.OrigIssuedAt != nil {
		return c.OrigIssuedAt.Time
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates an issuer. Tokens live for ttl and may be refreshed
// up to refreshTTL after they were issued.
func NewTokenIssuer(secret string, ttl, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, refreshTTL: refreshTTL, now: time.Now}
}

// TTL is the lifetime of freshly issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// RefreshTTL is how long after login a session may still be refreshed.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

// Issue signs a new token for the user, starting a session.
func (t *TokenIssuer) Issue(userID uint, role string) (string, *Claims, error) {
	return t.sign(userID, role, t.now())
}

// Reissue signs a replacement for prev inside the same session, so the
// refresh window keeps counting from the original login.
func (t *TokenIssuer) Reissue(prev *Claims, role string) (string, *Claims, error) {
	return t.sign(prev.UserID, role, prev.SessionStart())
}

func (t *TokenIssuer) sign(userID uint, role string, sessionStart time.Time) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID:       userID,
		Role:         role,
		OrigIssuedAt: jwt.NewNumericDate(sessionStart),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature and expiry.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	return t.parse(raw, jwt.WithTimeFunc(t.now))
}

// ParseForRefresh verifies the signature but accepts an expired token as long
// as its session started less than refreshTTL ago.
func (t *TokenIssuer) ParseForRefresh(raw string) (*Claims, error) {
	claims, err := t.parse(raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	start := claims.SessionStart()
	if start.IsZero() || t.now().After(start.Add(t.refreshTTL)) {
		return nil, ErrRefreshWindowClosed
	}
	return claims, nil
}

func (t *TokenIssuer) parse(raw string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("auth: invalid token claims")
	}
	return claims, nil
}
