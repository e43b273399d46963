package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func TestDeviceRegister(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.devices", owner.ID)
	devices := NewDeviceStore(conn)

	d, err := devices.Register(&models.Device{
		AppID:    app.ID,
		DeviceID: "install-1",
		DeviceInfo: map[string]any{
			"platform": "ios",
			"model":    "iPhone 15",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusOffline, d.Status, "status defaults to offline")
	assert.Equal(t, "ios", d.DeviceInfo["platform"])

	// deviceId is unique per app
	_, err = devices.Register(&models.Device{AppID: app.ID, DeviceID: "install-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeviceStats(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.devstats", owner.ID)
	devices := NewDeviceStore(conn)

	seedDevice(t, conn, app.ID, "d1", models.DeviceStatusOnline)
	seedDevice(t, conn, app.ID, "d2", models.DeviceStatusOnline)
	seedDevice(t, conn, app.ID, "d3", models.DeviceStatusOffline)

	stats, err := devices.Stats(app.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Online)
	assert.Equal(t, 1, stats.Offline)
}

func TestDeviceApplyVersion(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.apply", owner.ID)
	devices := NewDeviceStore(conn)

	d := seedDevice(t, conn, app.ID, "d1", models.DeviceStatusOnline)
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, devices.ApplyVersion(d.ID, "2.0.0", at))

	got, err := devices.GetByID(app.ID, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentVersion)
	assert.Equal(t, "2.0.0", *got.CurrentVersion)
	require.NotNil(t, got.LastUpdateAt)
	assert.WithinDuration(t, at, *got.LastUpdateAt, time.Second)

	assert.ErrorIs(t, devices.ApplyVersion("missing", "2.0.0", at), ErrNotFound)
}

func TestDeviceSetTargetVersion(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.target", owner.ID)
	devices := NewDeviceStore(conn)

	d := seedDevice(t, conn, app.ID, "d1", models.DeviceStatusOnline)
	v := seedVersion(t, conn, app.ID, "1.0.0", "1")

	require.NoError(t, devices.SetTargetVersion(app.ID, d.ID, v.ID))

	got, err := devices.GetByID(app.ID, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TargetVersionID)
	assert.Equal(t, v.ID, *got.TargetVersionID)
}

func TestDeviceStatuses(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.statuses", owner.ID)
	devices := NewDeviceStore(conn)

	d1 := seedDevice(t, conn, app.ID, "d1", models.DeviceStatusOnline)
	d2 := seedDevice(t, conn, app.ID, "d2", models.DeviceStatusOffline)

	statuses, err := devices.Statuses([]string{d1.ID, d2.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		d1.ID: models.DeviceStatusOnline,
		d2.ID: models.DeviceStatusOffline,
	}, statuses)
}

func TestDeviceListFilters(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.devlist", owner.ID)
	devices := NewDeviceStore(conn)

	ios, err := devices.Register(&models.Device{
		AppID:      app.ID,
		DeviceID:   "ios-1",
		Status:     models.DeviceStatusOnline,
		DeviceInfo: map[string]any{"platform": "ios"},
	})
	require.NoError(t, err)
	_, err = devices.Register(&models.Device{
		AppID:      app.ID,
		DeviceID:   "android-1",
		Status:     models.DeviceStatusOffline,
		DeviceInfo: map[string]any{"platform": "android"},
	})
	require.NoError(t, err)

	byPlatform, total, err := devices.List(app.ID, DeviceListOptions{Platform: "ios"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byPlatform, 1)
	assert.Equal(t, ios.ID, byPlatform[0].ID)

	byStatus, total, err := devices.List(app.ID, DeviceListOptions{
		ListOptions: ListOptions{Status: models.DeviceStatusOffline},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "android-1", byStatus[0].DeviceID)
}
