package tasks

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/db"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
)

type fixture struct {
	conn    *sql.DB
	runner  *Runner
	tasks   *store.TaskStore
	devices *store.DeviceStore
	groups  *store.GroupStore
	app     *models.App
	version *models.Version
	owner   *models.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	conn := database.DB

	owner, err := store.NewUserStore(conn).Create(&models.CreateUserRequest{
		Name:  "Owner",
		Email: "owner@example.com",
		Role:  models.RoleAdmin,
	}, "hash")
	require.NoError(t, err)

	app, err := store.NewAppStore(conn).Create(&models.CreateAppRequest{
		Name:  "Demo",
		AppID: "com.example.runner",
	}, owner.ID)
	require.NoError(t, err)

	version, err := store.NewVersionStore(conn).Create(&models.Version{
		AppID:    app.ID,
		Version:  "2.0.0",
		Build:    "7",
		Name:     "Release",
		FileURL:  "/uploads/bundle.tar.gz",
		FileSize: 1,
		Checksum: "cafe",
	})
	require.NoError(t, err)

	f := &fixture{
		conn:    conn,
		tasks:   store.NewTaskStore(conn),
		devices: store.NewDeviceStore(conn),
		groups:  store.NewGroupStore(conn),
		app:     app,
		version: version,
		owner:   owner,
	}
	f.runner = NewRunner(f.tasks, f.devices, f.groups, time.Second)
	return f
}

func (f *fixture) device(t *testing.T, deviceID, status string) *models.Device {
	t.Helper()
	d, err := f.devices.Register(&models.Device{
		AppID:    f.app.ID,
		DeviceID: deviceID,
		Status:   status,
	})
	require.NoError(t, err)
	return d
}

func TestRunnerFullRollout(t *testing.T) {
	f := setup(t)
	online := f.device(t, "d1", models.DeviceStatusOnline)
	offline := f.device(t, "d2", models.DeviceStatusOffline)

	task, err := f.tasks.Create(f.app.ID, f.version.ID, models.TaskTypeFull, f.owner.ID, nil, nil)
	require.NoError(t, err)

	f.runner.tick()

	got, err := f.tasks.GetByID(f.app.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.Equal(t, 1, got.SuccessCount)
	assert.Equal(t, 1, got.FailureCount, "offline devices count as failures")

	updated, err := f.devices.GetByID(f.app.ID, online.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentVersion)
	assert.Equal(t, "2.0.0", *updated.CurrentVersion)

	untouched, err := f.devices.GetByID(f.app.ID, offline.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.CurrentVersion)
}

func TestRunnerTargetedRollout(t *testing.T) {
	f := setup(t)
	direct := f.device(t, "d1", models.DeviceStatusOnline)
	grouped := f.device(t, "d2", models.DeviceStatusOnline)
	bystander := f.device(t, "d3", models.DeviceStatusOnline)

	group, err := f.groups.Create(f.app.ID, &models.CreateGroupRequest{
		Name:    "Pilot",
		UserIDs: []string{grouped.ID, direct.ID},
	}, f.owner.ID)
	require.NoError(t, err)

	task, err := f.tasks.Create(f.app.ID, f.version.ID, models.TaskTypeTargeted, f.owner.ID, nil, map[string]any{
		"userIds":  []string{direct.ID},
		"groupIds": []string{group.ID},
	})
	require.NoError(t, err)

	f.runner.tick()

	got, err := f.tasks.GetByID(f.app.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	// the direct target overlaps the group; the union counts it once
	assert.Equal(t, 2, got.SuccessCount)
	assert.Zero(t, got.FailureCount)

	left, err := f.devices.GetByID(f.app.ID, bystander.ID)
	require.NoError(t, err)
	assert.Nil(t, left.CurrentVersion, "devices outside the target set are untouched")
}

func TestRunnerAllOfflineFails(t *testing.T) {
	f := setup(t)
	f.device(t, "d1", models.DeviceStatusOffline)
	f.device(t, "d2", models.DeviceStatusOffline)

	task, err := f.tasks.Create(f.app.ID, f.version.ID, models.TaskTypeFull, f.owner.ID, nil, nil)
	require.NoError(t, err)

	f.runner.tick()

	got, err := f.tasks.GetByID(f.app.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	assert.Equal(t, 2, got.FailureCount)
}

func TestRunnerSkipsScheduledFutureTasks(t *testing.T) {
	f := setup(t)
	f.device(t, "d1", models.DeviceStatusOnline)

	future := time.Now().UTC().Add(time.Hour)
	task, err := f.tasks.Create(f.app.ID, f.version.ID, models.TaskTypeFull, f.owner.ID, &future, nil)
	require.NoError(t, err)

	f.runner.tick()

	got, err := f.tasks.GetByID(f.app.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestDetailStrings(t *testing.T) {
	// details maps round-trip through JSON, so values arrive as []any
	assert.Equal(t, []string{"a", "b"}, detailStrings(map[string]any{
		"userIds": []any{"a", "b"},
	}, "userIds"))
	assert.Equal(t, []string{"a"}, detailStrings(map[string]any{
		"userIds": []string{"a"},
	}, "userIds"))
	assert.Nil(t, detailStrings(map[string]any{}, "userIds"))
	assert.Nil(t, detailStrings(nil, "userIds"))
	assert.Nil(t, detailStrings(map[string]any{"userIds": 42}, "userIds"))
}
