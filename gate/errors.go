package gate

import "errors"

// Sentinel errors returned by Gate.Authorize.
var (
	// ErrUnauthenticated means no user identity was supplied.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the user is known but lacks the permission,
	// or a resource policy refused the action.
	ErrForbidden = errors.New("forbidden")
)
