package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/db"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return database.DB
}

func seedUser(t *testing.T, conn *sql.DB, email, role string) *models.User {
	t.Helper()

	user, err := NewUserStore(conn).Create(&models.CreateUserRequest{
		Name:  "Test User",
		Email: email,
		Role:  role,
	}, "not-a-real-hash")
	require.NoError(t, err)
	return user
}

func seedApp(t *testing.T, conn *sql.DB, appID, ownerID string) *models.App {
	t.Helper()

	app, err := NewAppStore(conn).Create(&models.CreateAppRequest{
		Name:  "Demo App",
		AppID: appID,
	}, ownerID)
	require.NoError(t, err)
	return app
}

func seedVersion(t *testing.T, conn *sql.DB, appID, version, build string) *models.Version {
	t.Helper()

	v, err := NewVersionStore(conn).Create(&models.Version{
		AppID:    appID,
		Version:  version,
		Build:    build,
		Name:     "Release " + version,
		FileURL:  fmt.Sprintf("/uploads/apps/%s/%s/bundle.tar.gz", appID, version),
		FileSize: 1024,
		Checksum: "deadbeef",
	})
	require.NoError(t, err)
	return v
}

func seedDevice(t *testing.T, conn *sql.DB, appID, deviceID, status string) *models.Device {
	t.Helper()

	d, err := NewDeviceStore(conn).Register(&models.Device{
		AppID:    appID,
		DeviceID: deviceID,
		Status:   status,
	})
	require.NoError(t, err)
	return d
}

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{
			name: "defaults",
			in:   ListOptions{},
			want: ListOptions{Page: 1, Limit: DefaultLimit, Order: "desc"},
		},
		{
			name: "limit clamped to max",
			in:   ListOptions{Page: 2, Limit: 500, Order: "asc"},
			want: ListOptions{Page: 2, Limit: MaxLimit, Order: "asc"},
		},
		{
			name: "short search dropped",
			in:   ListOptions{Search: "a"},
			want: ListOptions{Page: 1, Limit: DefaultLimit, Order: "desc"},
		},
		{
			name: "two character search kept",
			in:   ListOptions{Search: "ab"},
			want: ListOptions{Page: 1, Limit: DefaultLimit, Search: "ab", Order: "desc"},
		},
		{
			name: "bogus order falls back to desc",
			in:   ListOptions{Order: "sideways"},
			want: ListOptions{Page: 1, Limit: DefaultLimit, Order: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.in
			opts.Normalize()
			assert.Equal(t, tt.want, opts)
		})
	}
}

func TestListOptionsOffset(t *testing.T) {
	opts := ListOptions{Page: 3, Limit: 20}
	opts.Normalize()
	assert.Equal(t, 40, opts.Offset())
}
