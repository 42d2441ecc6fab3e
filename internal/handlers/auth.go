package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenIssuer
	log    *zap.Logger
	// Secure marks the jwt_token cookie HTTPS-only.
	Secure bool
}

func NewAuthHandler(users *services.UserService, tokens *auth.TokenIssuer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

type tokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int64        `json:"expires_in"`
	User      *models.User `json:"user"`
}

// issue signs a token for u and sends it. prev is the token being refreshed,
// nil on login.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, u *models.User, prev *auth.Claims, message string) {
	var (
		raw    string
		claims *auth.Claims
		err    error
	)
	if prev != nil {
		raw, claims, err = h.tokens.Reissue(prev, u.RoleName())
	} else {
		raw, claims, err = h.tokens.Issue(u.ID, u.RoleName())
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    raw,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.Success(w, http.StatusOK, message, tokenResponse{
		Token:     raw,
		TokenType: "bearer",
		ExpiresIn: int64(h.tokens.TTL() / time.Second),
		User:      u,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.Secure})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}
	u, err := h.users.Authenticate(r.Context(), body.Email, body.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		httpx.Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.issue(w, r, u, nil, "Login successful")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", u)
}

// Logout revokes the token that authenticated the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		if err := h.users.RevokeToken(r.Context(), claims.UserID, claims.ID, claims.ExpiresAt.Time); err != nil {
			fail(w, r, h.log, err)
			return
		}
	}
	h.clearCookie(w)
	httpx.Success(w, http.StatusOK, "Logout successful", nil)
}

// Refresh swaps a token (possibly expired, still inside the refresh window)
// for a new one in the same session. The old token is revoked for as long as
// it could be refreshed.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.ParseForRefresh(auth.TokenFromRequest(r))
	if err != nil || h.users.IsRevoked(r.Context(), claims.ID) {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	var nf *services.NotFoundError
	if errors.As(err, &nf) {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if err := h.users.RevokeToken(r.Context(), claims.UserID, claims.ID, claims.SessionStart().Add(h.tokens.RefreshTTL())); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.issue(w, r, u, claims, "Token refreshed")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword  string `json:"old_password"`
		NewPassword  string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}
	if !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	err := h.users.ChangePassword(r.Context(), userID, body.OldPassword, body.NewPassword, body.Confirmation)
	if errors.Is(err, services.ErrWrongPassword) {
		httpx.ValidationWithMessage(w, "Old password is incorrect", map[string][]string{
			"old_password": {"Old password is incorrect"},
		})
		return
	}
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Password changed successfully", nil)
}
