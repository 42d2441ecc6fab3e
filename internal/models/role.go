package models

import (
	"time"
)

// Seeded role names.
const (
	RoleAdmin     = "Admin"
	RoleCashier   = "Kasir"
	RoleWarehouse = "Gudang"
)

// Role groups permissions. A user has at most one role.
type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	// Many-to-many via the role_permissions join table.
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Permission is one "resource:action" grant.
type Permission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ResourceType string    `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string    `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string    `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "resource:action" format for matching.
func (p Permission) Code() string {
	return p.ResourceType + ":" + p.Action
}
