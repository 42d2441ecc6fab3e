package handlers

import (
	"net/http"

	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"go.uber.org/zap"
)

// PermissionCache is cleared whenever a role's permissions change, since
// one role can affect many users.
type PermissionCache interface {
	InvalidateAll()
}

// RoleHandler exposes role administration (admin only).
type RoleHandler struct {
	roles *services.RoleService
	cache PermissionCache
	log   *zap.Logger
}

func NewRoleHandler(roles *services.RoleService, cache PermissionCache, log *zap.Logger) *RoleHandler {
	return &RoleHandler{roles: roles, cache: cache, log: log}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", roles)
}

func (h *RoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.roles.Permissions(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Success", perms)
}

func (h *RoleHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Role")
	if !ok {
		return
	}
	var body struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if !decode(w, r, &body) {
		return
	}
	role, err := h.roles.SetPermissions(r.Context(), id, body.PermissionIDs)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	h.cache.InvalidateAll()
	httpx.Success(w, http.StatusOK, "Role permissions updated", role)
}
