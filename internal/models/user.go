package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a staff account (admin, cashier or warehouse clerk).
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UUID      string         `gorm:"column:uuid;uniqueIndex;size:36;not null" json:"uuid"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Name      string         `gorm:"size:255" json:"name"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Phone     string         `gorm:"size:30" json:"phone,omitempty"`
	RoleID    *uint          `gorm:"index" json:"role_id"`
	Role      *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// BeforeCreate assigns the public uuid.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UUID == "" {
		u.UUID = uuid.NewString()
	}
	return nil
}

// RoleName is empty for users without a role.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// RevokedToken blacklists a token id until the token would have expired anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	JTI       string    `gorm:"column:jti;uniqueIndex;size:64;not null"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
}
