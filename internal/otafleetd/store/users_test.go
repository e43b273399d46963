package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func TestUserCreateDefaultsToViewer(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)

	u, err := users.Create(&models.CreateUserRequest{
		Name:  "No Role",
		Email: "norole@example.com",
	}, "hash")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, u.Role)
	assert.Equal(t, models.UserStatusActive, u.Status)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)

	seedUser(t, conn, "dup@example.com", models.RoleViewer)
	_, err := users.Create(&models.CreateUserRequest{
		Name:  "Duplicate",
		Email: "dup@example.com",
	}, "hash")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserToggleStatusRevokesSessions(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)
	tokens := NewTokenStore(conn)

	u := seedUser(t, conn, "toggle@example.com", models.RoleViewer)
	token, err := tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)

	status, err := users.ToggleStatus(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, status)

	_, err = tokens.Redeem(token)
	assert.ErrorIs(t, err, ErrNotFound)

	status, err = users.ToggleStatus(u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, status)
}

func TestUserUpdatePassword(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)
	tokens := NewTokenStore(conn)

	u := seedUser(t, conn, "reset@example.com", models.RoleViewer)
	token, err := tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)

	require.NoError(t, users.UpdatePassword(u.ID, "new-hash"))

	got, err := users.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	// password change invalidates existing sessions
	_, err = tokens.Redeem(token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDeleteBlockedByOwnership(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)

	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	seedApp(t, conn, "com.example.owned", owner.ID)

	err := users.Delete(owner.ID)
	assert.ErrorIs(t, err, ErrConflict)

	bystander := seedUser(t, conn, "bystander@example.com", models.RoleViewer)
	assert.NoError(t, users.Delete(bystander.ID))
}

func TestUserAppScopeRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	users := NewUserStore(conn)

	u, err := users.Create(&models.CreateUserRequest{
		Name:   "Manager",
		Email:  "manager@example.com",
		Role:   models.RoleAppManager,
		AppIDs: []string{"app-1", "app-2"},
	}, "hash")
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1", "app-2"}, u.AppIDs)

	scope := []string{"app-3"}
	updated, err := users.Update(u.ID, &models.UpdateUserRequest{AppIDs: &scope})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-3"}, updated.AppIDs)
}

func TestTokenIssueRedeemRevoke(t *testing.T) {
	conn := setupTestDB(t)
	tokens := NewTokenStore(conn)
	u := seedUser(t, conn, "tokens@example.com", models.RoleViewer)

	token, err := tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	userID, err := tokens.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	require.NoError(t, tokens.Revoke(token))
	_, err = tokens.Redeem(token)
	assert.ErrorIs(t, err, ErrNotFound)

	// expired tokens are deleted on redemption
	expired, err := tokens.Issue(u.ID, -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Redeem(expired)
	assert.ErrorIs(t, err, ErrNotFound)
}
