package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-pos/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createRole(t *testing.T, conn *gorm.DB, name string) *models.Role {
	t.Helper()
	r := &models.Role{Name: name}
	require.NoError(t, conn.Create(r).Error)
	return r
}

func TestUserLifecycle(t *testing.T) {
	conn := newTestDB(t)
	svc := NewUserService(conn)
	ctx := context.Background()
	cashier := createRole(t, conn, models.RoleCashier)
	admin := createRole(t, conn, models.RoleAdmin)

	ani, err := svc.Create(ctx, UserInput{
		Username: ptr("ani"), Name: ptr("Ani"), Email: ptr("ani@pos.test"), Password: ptr("rahasia123"), RoleID: &cashier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCashier, ani.RoleName())
	assert.NotEqual(t, "rahasia123", ani.Password)
	assert.NotEmpty(t, ani.UUID)

	boss, err := svc.Create(ctx, UserInput{
		Username: ptr("boss"), Email: ptr("boss@pos.test"), Password: ptr("rahasia123"), RoleID: &admin.ID,
	})
	require.NoError(t, err)

	cashiers, err := svc.List(ctx, models.RoleCashier)
	require.NoError(t, err)
	require.Len(t, cashiers, 1)
	assert.Equal(t, ani.ID, cashiers[0].ID)
	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.Update(ctx, ani.ID, UserInput{Phone: ptr("0812"), RoleID: &admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "0812", updated.Phone)
	assert.Equal(t, models.RoleAdmin, updated.RoleName())
	assert.Equal(t, "ani@pos.test", updated.Email)

	var conflict *ConflictError
	require.ErrorAs(t, svc.Delete(ctx, boss.ID, boss.ID), &conflict)
	require.NoError(t, svc.Delete(ctx, boss.ID, ani.ID))
	assert.False(t, svc.Exists(ctx, ani.ID))
	assert.True(t, svc.Exists(ctx, boss.ID))

	_, err = svc.Get(ctx, ani.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "User not found", err.Error())
}

func TestCreateUser_Validation(t *testing.T) {
	conn := newTestDB(t)
	svc := NewUserService(conn)
	ctx := context.Background()
	role := createRole(t, conn, models.RoleWarehouse)

	_, err := svc.Create(ctx, UserInput{Email: ptr("not-an-email"), Password: ptr("short")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The username field is required."}, verr.Violations["username"])
	assert.Equal(t, []string{"The email must be a valid email address."}, verr.Violations["email"])
	assert.Equal(t, []string{"The password must be at least 8 characters."}, verr.Violations["password"])
	assert.Equal(t, []string{"The selected role id is invalid."}, verr.Violations["role_id"])

	_, err = svc.Create(ctx, UserInput{Username: ptr("dewi"), Email: ptr("dewi@pos.test"), Password: ptr("12345678"), RoleID: &role.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, UserInput{Username: ptr("dewi"), Email: ptr("dewi@pos.test"), Password: ptr("12345678"), RoleID: &role.ID})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"The username has already been taken."}, verr.Violations["username"])
	assert.Equal(t, []string{"The email has already been taken."}, verr.Violations["email"])
}

func TestAuthenticateAndChangePassword(t *testing.T) {
	conn := newTestDB(t)
	svc := NewUserService(conn)
	ctx := context.Background()
	role := createRole(t, conn, models.RoleCashier)
	u, err := svc.Create(ctx, UserInput{Username: ptr("ani"), Email: ptr("ani@pos.test"), Password: ptr("rahasia123"), RoleID: &role.ID})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "ani@pos.test", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, models.RoleCashier, got.RoleName())

	_, err = svc.Authenticate(ctx, "ani@pos.test", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@pos.test", "rahasia123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong-pass", "baru12345", "baru12345"), ErrWrongPassword)
	require.ErrorAs(t, svc.ChangePassword(ctx, u.ID, "rahasia123", "baru12345", "different"), &verr)
	assert.Equal(t, []string{"The new password confirmation does not match."}, verr.Violations["new_password"])

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "rahasia123", "baru12345", "baru12345"))
	_, err = svc.Authenticate(ctx, "ani@pos.test", "baru12345")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "ani@pos.test", "rahasia123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRevokedTokens(t *testing.T) {
	conn := newTestDB(t)
	svc := NewUserService(conn)
	ctx := context.Background()

	assert.False(t, svc.IsRevoked(ctx, "jti-1"))
	require.NoError(t, svc.RevokeToken(ctx, 1, "jti-1", testNow.Add(-time.Minute)))
	require.NoError(t, svc.RevokeToken(ctx, 1, "jti-1", testNow.Add(-time.Minute)))
	require.NoError(t, svc.RevokeToken(ctx, 1, "jti-2", testNow.Add(time.Hour)))
	assert.True(t, svc.IsRevoked(ctx, "jti-1"))

	n, err := svc.PurgeRevokedTokens(ctx, testNow)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.False(t, svc.IsRevoked(ctx, "jti-1"))
	assert.True(t, svc.IsRevoked(ctx, "jti-2"))
}

func TestRoleSetPermissions(t *testing.T) {
	conn := newTestDB(t)
	svc := NewRoleService(conn)
	ctx := context.Background()
	role := createRole(t, conn, models.RoleCashier)
	perms := []models.Permission{
		{ResourceType: "sale", Action: "*"},
		{ResourceType: "product", Action: "list"},
	}
	require.NoError(t, conn.Create(&perms).Error)

	got, err := svc.SetPermissions(ctx, role.ID, []uint{perms[0].ID, perms[1].ID, perms[1].ID})
	require.NoError(t, err)
	assert.Len(t, got.Permissions, 2)

	got, err = svc.SetPermissions(ctx, role.ID, []uint{perms[1].ID})
	require.NoError(t, err)
	require.Len(t, got.Permissions, 1)

	roles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Len(t, roles[0].Permissions, 1)
	assert.Equal(t, "product:list", roles[0].Permissions[0].Code())

	_, err = svc.SetPermissions(ctx, role.ID, []uint{perms[0].ID, 999})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Violations.Has("permission_ids"))

	_, err = svc.SetPermissions(ctx, 404, nil)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	all, err := svc.Permissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "product:list", all[0].Code())
}
