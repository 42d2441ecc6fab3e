package services

import (
	"context"
	"fmt"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"gorm.io/gorm"
)

// RoleService reads roles and edits their permission sets.
type RoleService struct {
	db *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *RoleService) Permissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Order("resource_type, action").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// SetPermissions replaces the role's permissions with permissionIDs.
// Every id must exist.
func (s *RoleService) SetPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, roleID).Error; err != nil {
			return lookupErr(err, "Role")
		}
		perms := []models.Permission{}
		if len(permissionIDs) > 0 {
			if err := tx.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
				return fmt.Errorf("load permissions: %w", err)
			}
		}
		if len(perms) != len(uniqueIDs(permissionIDs)) {
			v := validation.Violations{}
			validation.Invalid("permission_ids", v)
			return invalid(v)
		}
		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("replace permissions: %w", err)
		}
		role.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
