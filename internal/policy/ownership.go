package policy

import (
	"context"

	"github.com/diewo77/go-pos/gate"
)

// Ownable is implemented by models that belong to one user (sales belong to
// the cashier who opened them).
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows an action only on resources the user owns.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can is true for nil resources (list/create) and for owned ones.
// A resource that is not Ownable is refused.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// AdminBypassPolicy lets admins through and defers everyone else to inner.
type AdminBypassPolicy struct {
	inner   gate.Policy[uint]
	isAdmin func(ctx context.Context, userID uint) bool
}

func NewAdminBypassPolicy(inner gate.Policy[uint], isAdmin func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
