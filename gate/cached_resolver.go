package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver wraps a RoleResolver with a TTL cache so that permission
// checks do not hit the database on every request.
type CachedResolver[U comparable] struct {
	inner RoleResolver[U]
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[U]cachedRole
}

type cachedRole struct {
	role      Role
	expiresAt time.Time
}

// NewCachedResolver caches inner's answers for ttl.
func NewCachedResolver[U comparable](inner RoleResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[U]cachedRole),
	}
}

// Resolve returns the cached role for user or fetches it. Errors are not cached.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Role, error) {
	r.mu.RLock()
	entry, ok := r.cache[user]
	r.mu.RUnlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.role, nil
	}

	role, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[user] = cachedRole{role: role, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return role, nil
}

// Invalidate drops user from the cache. Call it when a user's role assignment changes.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.cache, user)
	r.mu.Unlock()
}

// InvalidateAll clears the cache, e.g. after a role's permissions change.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[U]cachedRole)
	r.mu.Unlock()
}
