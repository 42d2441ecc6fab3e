package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/go-pos/auth"
	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/httpx"
	"gorm.io/gorm"
)

// Resource types registered with the gate.
const (
	ResourceSale     = "sale"
	ResourcePayment  = "payment"
	ResourceProduct  = "product"
	ResourceCategory = "category"
	ResourceStock    = "stock"
	ResourceUser     = "user"
	ResourceReport   = "report"
)

// AuthGate is the application's authorization point: a gate over cached
// database roles.
type AuthGate struct {
	Gate  *gate.Gate[uint]
	Roles *gate.CachedResolver[uint]
}

// NewAuthGate resolves roles from db, caching them for cacheTTL. Sales are
// guarded by ownership; admins may act on any sale.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	roles := gate.NewCachedResolver[uint](NewDBRoleResolver(db), cacheTTL)
	ag := &AuthGate{Gate: gate.New[uint](roles), Roles: roles}
	ag.RegisterPolicy(ResourceSale, NewAdminBypassPolicy(NewOwnershipPolicy(), ag.Gate.IsSuperAdmin))
	return ag
}

func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks the request's user against action on resourceType (and
// resource, when given). It returns gate.ErrUnauthenticated or gate.ErrForbidden.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthenticated
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// IsAdmin reports whether the request's user holds "*:*".
func (ag *AuthGate) IsAdmin(ctx context.Context) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	return ok && ag.Gate.IsSuperAdmin(ctx, userID)
}

// InvalidateUser drops the cached role of userID (role reassigned, user deleted).
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.Roles.Invalidate(userID)
}

func (ag *AuthGate) InvalidateAll() {
	ag.Roles.InvalidateAll()
}

// RequirePermission answers 401 without a user and 403 unless their role
// grants resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), action, resourceType, nil); err != nil {
				WriteDenied(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets "*:*" roles through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				WriteDenied(w, gate.ErrUnauthenticated)
				return
			}
			if !ag.IsAdmin(r.Context()) {
				WriteDenied(w, gate.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteDenied writes the envelope for an authorization failure.
func WriteDenied(w http.ResponseWriter, err error) {
	if errors.Is(err, gate.ErrUnauthenticated) {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	httpx.Error(w, http.StatusForbidden, "Forbidden")
}
