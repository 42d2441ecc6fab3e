package gate

import (
	"context"
	"sort"
	"sync"
)

// Role is a named set of permissions assigned to a user.
type Role interface {
	ID() uint
	Name() string
	Permissions() []Permission
	Allows(requested Permission) bool
}

// RoleResolver resolves a user to their role. A nil Role with a nil error
// means the user exists but has no role.
type RoleResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Role, error)
}

// StaticRole is an in-memory Role.
type StaticRole struct {
	id    uint
	name  string
	perms []Permission
}

// NewStaticRole creates a role granting perms.
func NewStaticRole(id uint, name string, perms ...Permission) *StaticRole {
	cp := append([]Permission(nil), perms...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return &StaticRole{id: id, name: name, perms: cp}
}

func (r *StaticRole) ID() uint                  { return r.id }
func (r *StaticRole) Name() string              { return r.name }
func (r *StaticRole) Permissions() []Permission { return append([]Permission(nil), r.perms...) }

// Allows reports whether any granted permission matches requested.
func (r *StaticRole) Allows(requested Permission) bool {
	return AnyMatches(r.perms, requested)
}

// AnyMatches reports whether one of granted matches requested.
func AnyMatches(granted []Permission, requested Permission) bool {
	for _, p := range granted {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticResolver maps users to roles in memory. Safe for concurrent use.
type StaticResolver[U comparable] struct {
	mu    sync.RWMutex
	roles map[U]Role
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{roles: make(map[U]Role)}
}

// Set assigns role to user.
func (r *StaticResolver[U]) Set(user U, role Role) {
	r.mu.Lock()
	r.roles[user] = role
	r.mu.Unlock()
}

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[user], nil
}
