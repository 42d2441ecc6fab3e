package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions configures the optional bootstrap admin account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

var permissionCatalog = []struct {
	Code        string
	Description string
}{
	{"*:*", "Full system access"},
	{"sale:*", "All sale actions"},
	{"payment:*", "All payment actions"},
	{"product:*", "All product actions"},
	{"product:list", "List products"},
	{"product:view", "View product details"},
	{"category:*", "All category actions"},
	{"category:list", "List categories"},
	{"stock:*", "Record and list stock additions"},
	{"user:*", "Manage staff accounts"},
	{"report:*", "Read sales reports"},
}

var roleCatalog = []struct {
	Name        string
	Description string
	Permissions []string
}{
	{models.RoleAdmin, "Store owner, full access", []string{"*:*"}},
	{models.RoleCashier, "Runs the till", []string{"sale:*", "payment:*", "product:list", "product:view", "category:list"}},
	{models.RoleWarehouse, "Receives goods and maintains the catalogue", []string{"product:*", "category:*", "stock:*"}},
}

// Seed creates permissions, roles and (when configured) the admin account.
// It can run on every start: existing rows are left as they are.
func Seed(conn *gorm.DB, opts SeedOptions) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		perms := map[string]models.Permission{}
		for _, p := range permissionCatalog {
			parsed, err := gate.ParsePermission(p.Code)
			if err != nil {
				return err
			}
			res, act := parsed.Split()
			perm := models.Permission{ResourceType: res, Action: string(act), Description: p.Description}
			if err := tx.Where("resource_type = ? AND action = ?", res, string(act)).FirstOrCreate(&perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Code, err)
			}
			perms[p.Code] = perm
		}

		for _, r := range roleCatalog {
			var role models.Role
			err := tx.Where("name = ?", r.Name).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				role = models.Role{Name: r.Name, Description: r.Description}
				if err := tx.Create(&role).Error; err != nil {
					return fmt.Errorf("seed role %s: %w", r.Name, err)
				}
				granted := make([]models.Permission, 0, len(r.Permissions))
				for _, code := range r.Permissions {
					granted = append(granted, perms[code])
				}
				if err := tx.Model(&role).Association("Permissions").Append(granted); err != nil {
					return fmt.Errorf("grant permissions to %s: %w", r.Name, err)
				}
			} else if err != nil {
				return fmt.Errorf("load role %s: %w", r.Name, err)
			}
		}

		return seedAdmin(tx, opts)
	})
}

func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	email := strings.TrimSpace(opts.AdminEmail)
	if email == "" || opts.AdminPassword == "" {
		return nil
	}
	var n int64
	if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if n > 0 {
		return nil
	}
	var role models.Role
	if err := tx.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Username: "admin",
		Name:     "Administrator",
		Email:    email,
		Password: string(hash),
		RoleID:   &role.ID,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}
