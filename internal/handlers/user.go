package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
)

// RoleCache drops cached authorization data for a user.
type RoleCache interface {
	InvalidateUser(userID uint)
}

// UserHandler manages staff accounts. Routes are admin only.
type UserHandler struct {
	users *services.UserService
	roles RoleCache
	log   *zap.Logger
}

func NewUserHandler(users *services.UserService, roles RoleCache, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, roles: roles, log: log}
}

type userRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Phone    *string `json:"phone"`
	RoleID   *uint   `json:"role_id"`
}

func (b userRequest) input() services.UserInput {
	return services.UserInput{
		Username: b.Username,
		Name:     b.Name,
		Email:    b.Email,
		Password: b.Password,
		Phone:    b.Phone,
		RoleID:   b.RoleID,
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", u)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body userRequest
	if !decode(w, r, &body) {
		return
	}
	u, err := h.users.Create(r.Context(), body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "User created", u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}
	var body userRequest
	if !decode(w, r, &body) {
		return
	}
	u, err := h.users.Update(r.Context(), id, body.input())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.roles.InvalidateUser(id)
	httpx.Success(w, http.StatusOK, "User updated", u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "User")
	if !ok {
		return
	}
	actorID, _ := auth.UserIDFromContext(r.Context())
	if err := h.users.Delete(r.Context(), actorID, id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.roles.InvalidateUser(id)
	httpx.Success(w, http.StatusOK, "User deleted", nil)
}
