package gate

import "context"

// Policy decides whether user may perform action on one concrete resource.
// It runs after the role check, so it only has to care about the resource itself
// (ownership, state).
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}
