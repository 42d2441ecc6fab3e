package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/diewo77/go-pos/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength applies to every password set through the API.
const MinPasswordLength = 8

// UserService manages staff accounts, credentials and revoked tokens.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// UserInput carries an account create or update. On update only non-nil
// fields change; Password is re-hashed when present.
type UserInput struct {
	Username *string
	Name     *string
	Email    *string
	Password *string
	Phone    *string
	RoleID   *uint
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) List(ctx context.Context, role string) ([]models.User, error) {
	q := s.db.WithContext(ctx).Preload("Role")
	if role = strings.TrimSpace(role); role != "" {
		q = q.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.name = ?", role)
	}
	var users []models.User
	if err := q.Order("users.id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&u, id).Error; err != nil {
		return nil, lookupErr(err, "User")
	}
	return &u, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *UserService) validate(db *gorm.DB, in UserInput, creating bool, selfID uint) error {
	v := validation.Violations{}
	if creating || in.Username != nil {
		validation.Required("username", deref(in.Username), v)
		validation.MaxLength("username", deref(in.Username), 100, v)
	}
	if creating || in.Email != nil {
		validation.Required("email", deref(in.Email), v)
		validation.Email("email", deref(in.Email), v)
	}
	if creating || in.Password != nil {
		validation.Required("password", deref(in.Password), v)
		validation.MinLength("password", deref(in.Password), MinPasswordLength, v)
	}
	if creating || in.RoleID != nil {
		var n int64
		if in.RoleID != nil {
			if err := db.Model(&models.Role{}).Where("id = ?", *in.RoleID).Count(&n).Error; err != nil {
				return fmt.Errorf("check role: %w", err)
			}
		}
		if n == 0 {
			validation.Invalid("role_id", v)
		}
	}
	unique := func(field, column string, value *string) error {
		if value == nil || v.Has(field) {
			return nil
		}
		var n int64
		if err := db.Unscoped().Model(&models.User{}).Where(column+" = ? AND id <> ?", *value, selfID).Count(&n).Error; err != nil {
			return fmt.Errorf("check %s: %w", field, err)
		}
		if n > 0 {
			v.Add(field, fmt.Sprintf("The %s has already been taken.", field))
		}
		return nil
	}
	if err := unique("username", "username", in.Username); err != nil {
		return err
	}
	if err := unique("email", "email", in.Email); err != nil {
		return err
	}
	return invalid(v)
}

func (in UserInput) applyTo(u *models.User) error {
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.RoleID != nil {
		u.RoleID = in.RoleID
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.Password = hash
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	if err := s.validate(db, in, true, 0); err != nil {
		return nil, err
	}
	u := &models.User{}
	if err := in.applyTo(u); err != nil {
		return nil, err
	}
	if err := db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.Get(ctx, u.ID)
}

func (s *UserService) Update(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, lookupErr(err, "User")
	}
	if err := s.validate(db, in, false, u.ID); err != nil {
		return nil, err
	}
	if err := in.applyTo(&u); err != nil {
		return nil, err
	}
	if err := db.Omit("Role").Save(&u).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.Get(ctx, u.ID)
}

// Delete soft-deletes an account. Nobody can delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return &ConflictError{Message: "You cannot delete your own account"}
	}
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return lookupErr(err, "User")
	}
	if err := db.Delete(&u).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Exists reports whether id is a live account.
func (s *UserService) Exists(ctx context.Context, id uint) bool {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	v := validation.Violations{}
	validation.Required("email", email, v)
	validation.Required("password", password, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	var u models.User
	err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", strings.TrimSpace(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword, confirmation string) error {
	v := validation.Violations{}
	validation.Required("old_password", oldPassword, v)
	validation.Required("new_password", newPassword, v)
	validation.MinLength("new_password", newPassword, MinPasswordLength, v)
	if newPassword != "" {
		validation.Confirmed("new_password", newPassword, confirmation, v)
	}
	if err := invalid(v); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		return lookupErr(err, "User")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := db.Model(&u).Update("password", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RevokeToken blacklists jti until expiresAt. Revoking twice is harmless.
func (s *UserService) RevokeToken(ctx context.Context, userID uint, jti string, expiresAt time.Time) error {
	db := s.db.WithContext(ctx)
	if s.IsRevoked(ctx, jti) {
		return nil
	}
	if err := db.Create(&models.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}).Error; err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked.
func (s *UserService) IsRevoked(ctx context.Context, jti string) bool {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", jti).Count(&n).Error; err != nil {
		// Fail closed: an unreadable blacklist must not let tokens through.
		return true
	}
	return n > 0
}

// PurgeRevokedTokens drops entries whose tokens have expired on their own.
func (s *UserService) PurgeRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
