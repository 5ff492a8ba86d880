package service_test

import (
	"context"
	"testing"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest(username string) *types.RegisterRequest {
	return &types.RegisterRequest{
		Email:     username + "@Example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  "password-123",
	}
}

func TestRegister(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db)

	user, err := svc.Register(context.Background(), registerRequest("alice"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password-123", user.PasswordHash)
	assert.NoError(t, service.CheckPassword(user.PasswordHash, "password-123"))
}

func TestRegisterDuplicate(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest("alice"))
	require.NoError(t, err)

	var verr *service.ValidationError

	_, err = svc.Register(ctx, registerRequest("alice"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	req := registerRequest("alice")
	req.Email = "other@example.com"
	_, err = svc.Register(ctx, req)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)

	assert.Equal(t, int64(1), testhelpers.Count(t, db, &models.User{}))
}

func TestUserGetNotFound(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	svc := service.NewUserService(db)

	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserListPaginatesByUsername(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	for _, name := range []string{"carol", "alice", "bob"} {
		testhelpers.CreateUser(t, db, name)
	}
	svc := service.NewUserService(db)

	users, total, err := svc.List(context.Background(), types.PageQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	users, _, err = svc.List(context.Background(), types.PageQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)
}

func TestSetPassword(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	user := testhelpers.CreateUser(t, db, "alice")
	svc := service.NewUserService(db)
	ctx := context.Background()

	err := svc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{NewPassword: "new-password-1", CurrentPassword: "wrong"})
	assert.ErrorIs(t, err, service.ErrWrongPassword)

	err = svc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{NewPassword: "new-password-1", CurrentPassword: testhelpers.TestPassword})
	require.NoError(t, err)

	reloaded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, service.CheckPassword(reloaded.PasswordHash, "new-password-1"))
}

func TestUserPresentSubscriptionFlag(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	viewer := testhelpers.CreateUser(t, db, "viewer")
	followed := testhelpers.CreateUser(t, db, "followed")
	other := testhelpers.CreateUser(t, db, "other")
	testhelpers.Subscribe(t, db, viewer, followed)
	svc := service.NewUserService(db)

	users := []models.User{*followed, *other}

	out, err := svc.Present(context.Background(), &viewer.ID, users)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsSubscribed)
	assert.False(t, out[1].IsSubscribed)

	out, err = svc.Present(context.Background(), nil, users)
	require.NoError(t, err)
	assert.False(t, out[0].IsSubscribed)
	assert.False(t, out[1].IsSubscribed)
}
