// Package gate is a small role/permission authorization layer.
//
// A Gate first checks that the user's role grants "resource:action", then, when a
// concrete resource is given and a Policy is registered for its type, asks the
// policy (ownership rules and the like). The package knows nothing about the
// domain models; U is whatever identifies a user (a uint id in this service).
package gate

import (
	"context"
	"sync"
)

// Gate combines role permissions with per-resource policies.
type Gate[U comparable] struct {
	resolver RoleResolver[U]

	mu       sync.RWMutex
	policies map[string]Policy[U]
}

// New creates a gate resolving roles through resolver.
func New[U comparable](resolver RoleResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register sets the policy for a resource type, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.mu.Lock()
	g.policies[resourceType] = p
	g.mu.Unlock()
}

// Role resolves the user's role. A zero user has no role.
func (g *Gate[U]) Role(ctx context.Context, user U) (Role, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthenticated
	}
	return g.resolver.Resolve(ctx, user)
}

// Authorize returns nil when user may perform action on resourceType,
// ErrUnauthenticated for a zero user and ErrForbidden otherwise.
// resource may be nil for list/create checks; the policy is skipped then.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	role, err := g.Role(ctx, user)
	if err != nil {
		if err == ErrUnauthenticated {
			return err
		}
		return ErrForbidden
	}
	if role == nil || !role.Allows(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	g.mu.RLock()
	p, ok := g.policies[resourceType]
	g.mu.RUnlock()
	if ok && !p.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// IsSuperAdmin reports whether the user's role grants "*:*".
func (g *Gate[U]) IsSuperAdmin(ctx context.Context, user U) bool {
	role, err := g.Role(ctx, user)
	if err != nil || role == nil {
		return false
	}
	return role.Allows(PermissionSuperAdmin)
}
