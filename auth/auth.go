// Package auth resolves the calling user from a JWT bearer token and carries
// the resolved identity through the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/go-pos/httpx"
)

type ctxKey string

const (
	userIDCtxKey = ctxKey("userID")
	claimsCtxKey = ctxKey("claims")

	// CookieName is read when no Authorization header is present.
	CookieName = "jwt_token"
)

// UserVerifier reports whether uid still refers to an existing user.
type UserVerifier func(ctx context.Context, uid uint) bool

// RevocationChecker reports whether the token id has been revoked (logout, refresh).
type RevocationChecker func(ctx context.Context, jti string) bool

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uint)
	return id, ok && id != 0
}

// WithClaims stores the verified token claims (and their user id) in context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return WithUserID(context.WithValue(ctx, claimsCtxKey, c), c.UserID)
}

// ClaimsFromContext returns the claims of the token that authenticated the request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}

// TokenFromRequest returns the bearer token, falling back to the jwt_token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// Authenticator turns tokens into request identities.
type Authenticator struct {
	Tokens  *TokenIssuer
	Verify  UserVerifier
	Revoked RevocationChecker
}

// Authenticate validates raw and returns its claims when it is well formed,
// unexpired, not revoked, and names an existing user.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Claims, bool) {
	if raw == "" {
		return nil, false
	}
	claims, err := a.Tokens.Parse(raw)
	if err != nil {
		return nil, false
	}
	if a.Revoked != nil && a.Revoked(ctx, claims.ID) {
		return nil, false
	}
	if a.Verify != nil && !a.Verify(ctx, claims.UserID) {
		return nil, false
	}
	return claims, true
}

// Middleware attaches the user to the request context when a valid token is
// presented. Requests without one pass through anonymously.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := a.Authenticate(r.Context(), TokenFromRequest(r)); ok {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless an earlier middleware resolved a user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
