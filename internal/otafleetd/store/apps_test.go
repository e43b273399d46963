package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func TestAppCreateAndGet(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	apps := NewAppStore(conn)

	app, err := apps.Create(&models.CreateAppRequest{
		Name:        "My App",
		AppID:       "com.example.myapp",
		Description: "demo",
	}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppStatusActive, app.Status)
	assert.Equal(t, "com.example.myapp", app.AppID)
	assert.Equal(t, owner.ID, app.OwnerID)
	require.NotNil(t, app.Owner)
	assert.Equal(t, "owner@example.com", app.Owner.Email)
	assert.Equal(t, 0, app.UserCount)
	assert.Equal(t, 0, app.Versions)

	got, err := apps.GetByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
}

func TestAppCreateDuplicateAppID(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	apps := NewAppStore(conn)

	_, err := apps.Create(&models.CreateAppRequest{Name: "One", AppID: "com.example.dup"}, owner.ID)
	require.NoError(t, err)

	_, err = apps.Create(&models.CreateAppRequest{Name: "Two", AppID: "com.example.dup"}, owner.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAppGetNotFound(t *testing.T) {
	conn := setupTestDB(t)
	seedUser(t, conn, "owner@example.com", models.RoleAdmin)

	_, err := NewAppStore(conn).GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppListPagination(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	apps := NewAppStore(conn)

	for i := 0; i < 45; i++ {
		_, err := apps.Create(&models.CreateAppRequest{
			Name:  fmt.Sprintf("App %02d", i),
			AppID: fmt.Sprintf("com.example.app%02d", i),
		}, owner.ID)
		require.NoError(t, err)
	}

	page1, total, err := apps.List(ListOptions{Page: 1, Limit: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 45, total)
	assert.Len(t, page1, 20)

	page3, total, err := apps.List(ListOptions{Page: 3, Limit: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 45, total)
	assert.Len(t, page3, 5)

	empty, total, err := apps.List(ListOptions{Page: 4, Limit: 20}, nil)
	require.NoError(t, err)
	assert.Equal(t, 45, total)
	assert.Empty(t, empty)
}

func TestAppListSearchAndStatus(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	apps := NewAppStore(conn)

	alpha, err := apps.Create(&models.CreateAppRequest{Name: "Alpha", AppID: "com.example.alpha"}, owner.ID)
	require.NoError(t, err)
	_, err = apps.Create(&models.CreateAppRequest{Name: "Beta", AppID: "com.example.beta"}, owner.ID)
	require.NoError(t, err)

	inactive := models.AppStatusInactive
	_, err = apps.Update(alpha.ID, &models.UpdateAppRequest{Status: &inactive})
	require.NoError(t, err)

	results, total, err := apps.List(ListOptions{Search: "alp"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, "Alpha", results[0].Name)

	results, total, err = apps.List(ListOptions{Status: models.AppStatusActive}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, "Beta", results[0].Name)
}

func TestAppListOwnerScope(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	apps := NewAppStore(conn)

	a := seedApp(t, conn, "com.example.a", owner.ID)
	seedApp(t, conn, "com.example.b", owner.ID)

	// nil scope sees everything
	all, total, err := apps.List(ListOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	// empty scope matches nothing
	none, total, err := apps.List(ListOptions{}, []string{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, none)

	// scoped to one app
	scoped, total, err := apps.List(ListOptions{}, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, scoped, 1)
	assert.Equal(t, a.ID, scoped[0].ID)
}

func TestAppUpdatePartial(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.update", owner.ID)

	name := "Renamed"
	updated, err := NewAppStore(conn).Update(app.ID, &models.UpdateAppRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	// untouched fields survive
	assert.Equal(t, app.AppID, updated.AppID)
	assert.Equal(t, app.Status, updated.Status)
}

func TestAppSetCurrentVersionRequiresPublished(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.current", owner.ID)
	apps := NewAppStore(conn)
	versions := NewVersionStore(conn)

	draft := seedVersion(t, conn, app.ID, "1.0.0", "1")

	err := apps.SetCurrentVersion(app.ID, draft.ID)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = versions.Publish(app.ID, draft.ID, owner.ID, "")
	require.NoError(t, err)

	require.NoError(t, apps.SetCurrentVersion(app.ID, draft.ID))

	currentID, err := apps.CurrentVersionID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, currentID)
}

func TestAppDeleteCascades(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.delete", owner.ID)
	seedVersion(t, conn, app.ID, "1.0.0", "1")
	device := seedDevice(t, conn, app.ID, "device-1", models.DeviceStatusOnline)

	groups := NewGroupStore(conn)
	_, err := groups.Create(app.ID, &models.CreateGroupRequest{
		Name:    "Pilot",
		UserIDs: []string{device.ID},
	}, owner.ID)
	require.NoError(t, err)

	apps := NewAppStore(conn)
	require.NoError(t, apps.Delete(app.ID))

	_, err = apps.GetByID(app.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, table := range []string{"versions", "devices", "device_groups", "group_members"} {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		require.NoError(t, conn.QueryRow(query).Scan(&count))
		assert.Zero(t, count, table)
	}
}
