package policy

import (
	"context"
	"errors"

	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/internal/models"
	"gorm.io/gorm"
)

// DBRoleResolver loads a user's role and its permissions from the database.
type DBRoleResolver struct {
	DB *gorm.DB
}

func NewDBRoleResolver(db *gorm.DB) *DBRoleResolver {
	return &DBRoleResolver{DB: db}
}

// Resolve returns nil, nil for users without a role. Unknown (or deleted)
// users are an error so the gate refuses them.
func (r *DBRoleResolver) Resolve(ctx context.Context, userID uint) (gate.Role, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Role.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate.ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if user.Role == nil {
		return nil, nil
	}
	return newDBRole(user.Role), nil
}

// dbRole adapts models.Role to gate.Role.
type dbRole struct {
	id    uint
	name  string
	perms []gate.Permission
}

func newDBRole(r *models.Role) *dbRole {
	perms := make([]gate.Permission, len(r.Permissions))
	for i, p := range r.Permissions {
		perms[i] = gate.NewPermission(p.ResourceType, gate.Action(p.Action))
	}
	return &dbRole{id: r.ID, name: r.Name, perms: perms}
}

func (r *dbRole) ID() uint     { return r.id }
func (r *dbRole) Name() string { return r.name }

func (r *dbRole) Permissions() []gate.Permission {
	return append([]gate.Permission(nil), r.perms...)
}

func (r *dbRole) Allows(requested gate.Permission) bool {
	return gate.AnyMatches(r.perms, requested)
}
