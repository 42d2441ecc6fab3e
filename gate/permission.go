package gate

import (
	"fmt"
	"strings"
)

// Permission is an allowed action on a resource type, written "resource:action"
// (e.g. "sale:create", "product:list").
type Permission string

// Wildcards.
const (
	Wildcard             = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// NewPermission builds a permission from a resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// ParsePermission validates the "resource:action" form.
func ParsePermission(s string) (Permission, error) {
	res, act, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || res == "" || act == "" || strings.Contains(act, ":") {
		return "", fmt.Errorf("gate: malformed permission %q", s)
	}
	return NewPermission(res, Action(act)), nil
}

// Split returns the resource type and action. Both are empty for a malformed value.
func (p Permission) Split() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether p grants requested.
// "*" may stand for the resource, the action, or both.
func (p Permission) Matches(requested Permission) bool {
	if p == requested {
		return true
	}
	res, act := p.Split()
	reqRes, reqAct := requested.Split()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == Wildcard || res == reqRes) && (string(act) == Wildcard || act == reqAct)
}
