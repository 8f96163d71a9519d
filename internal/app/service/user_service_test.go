package service

import (
	"testing"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/internal/app/repository"
	"github.com/oakmart/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserServiceTest(t *testing.T) (UserService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return NewUserService(repository.NewUserRepository(testDB)), testDB
}

func createUser(t *testing.T, testDB *gorm.DB, email string, role model.UserRole) *model.User {
	user := &model.User{Email: email, PasswordHash: "h", Name: "U", Role: role}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func TestUserService_ChangeRole(t *testing.T) {
	userService, testDB := setupUserServiceTest(t)

	createUser(t, testDB, "admin@example.com", model.RoleAdmin)
	member := createUser(t, testDB, "member@example.com", model.RoleUser)

	promoted, err := userService.ChangeRole(member.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	demoted, err := userService.ChangeRole(member.ID, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, demoted.Role)

	_, err = userService.ChangeRole(9999, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_ChangeRole_LastAdminGuard(t *testing.T) {
	userService, testDB := setupUserServiceTest(t)

	admin := createUser(t, testDB, "admin@example.com", model.RoleAdmin)
	createUser(t, testDB, "member@example.com", model.RoleUser)

	_, err := userService.ChangeRole(admin.ID, model.RoleUser)
	assert.ErrorIs(t, err, ErrLastAdmin)

	// With a second admin the demotion goes through
	second := createUser(t, testDB, "admin2@example.com", model.RoleAdmin)
	demoted, err := userService.ChangeRole(admin.ID, model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, demoted.Role)

	// And now the remaining admin is protected again
	_, err = userService.ChangeRole(second.ID, model.RoleUser)
	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestUserService_ChangeRole_SameRoleIsNoop(t *testing.T) {
	userService, testDB := setupUserServiceTest(t)

	admin := createUser(t, testDB, "admin@example.com", model.RoleAdmin)

	// Re-assigning the current role never trips the last-admin guard
	unchanged, err := userService.ChangeRole(admin.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, unchanged.Role)
}

func TestUserService_ListUsers(t *testing.T) {
	userService, testDB := setupUserServiceTest(t)

	createUser(t, testDB, "a@example.com", model.RoleUser)
	createUser(t, testDB, "b@example.com", model.RoleUser)

	users, total, err := userService.ListUsers(1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)
}
