package services

import (
	"context"
	"testing"

	"fileshare/internal/models"
	"fileshare/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_DeleteUserLastAdminGuard(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo()
	svc := NewUserService(users, newFakeFileRepo())

	admin := users.add(testUser("admin-1", "root", models.UserRoleAdmin))
	member := users.add(testUser("user-1", "alice", models.UserRoleUser))

	// 1. The sole admin cannot be deleted.
	err := svc.DeleteUser(context.Background(), admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrLastAdmin)

	_, err = users.FindByID(admin.ID)
	assert.NoError(t, err)

	// 2. Regular accounts are unaffected by the guard.
	require.NoError(t, svc.DeleteUser(context.Background(), member.ID))

	// 3. With a second admin present, deleting one is allowed.
	users.add(testUser("admin-2", "backup", models.UserRoleAdmin))
	require.NoError(t, svc.DeleteUser(context.Background(), admin.ID))

	_, err = users.FindByID(admin.ID)
	assert.Error(t, err)
}
