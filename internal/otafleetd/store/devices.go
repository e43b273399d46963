package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// DeviceStore handles end-device registrations
type DeviceStore struct {
	db *sql.DB
}

// NewDeviceStore creates a new device store
func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

// DeviceListOptions extends ListOptions with device-specific filters.
type DeviceListOptions struct {
	ListOptions
	Version  string
	Platform string
}

const deviceColumns = `
	d.id, d.app_id, d.device_id, d.user_id, d.current_version, d.target_version_id,
	d.last_update_at, d.device_info, d.status`

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	var d models.Device
	var lastUpdate sql.NullTime
	var info *string
	err := row.Scan(
		&d.ID, &d.AppID, &d.DeviceID, &d.UserID, &d.CurrentVersion, &d.TargetVersionID,
		&lastUpdate, &info, &d.Status,
	)
	if err != nil {
		return nil, err
	}
	if lastUpdate.Valid {
		d.LastUpdateAt = &lastUpdate.Time
	}
	d.DeviceInfo = unmarshalJSON(info)
	return &d, nil
}

// Register inserts a device registration; deviceId is unique per app.
func (s *DeviceStore) Register(d *models.Device) (*models.Device, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM devices WHERE app_id = ? AND device_id = ?)",
		d.AppID, d.DeviceID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check if device exists: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("device %q: %w", d.DeviceID, ErrConflict)
	}

	d.ID = uuid.New().String()
	if d.Status == "" {
		d.Status = models.DeviceStatusOffline
	}
	info, err := marshalJSON(d.DeviceInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to encode device info: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO devices (id, app_id, device_id, user_id, current_version, status, device_info, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.AppID, d.DeviceID, d.UserID, d.CurrentVersion, d.Status, info, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	return s.GetByID(d.AppID, d.ID)
}

// GetByID gets a device scoped to an app.
func (s *DeviceStore) GetByID(appID, id string) (*models.Device, error) {
	row := s.db.QueryRow("SELECT "+deviceColumns+" FROM devices d WHERE d.app_id = ? AND d.id = ?", appID, id)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// List lists devices with pagination and optional status, version and
// platform filters. Search matches deviceId and userId.
func (s *DeviceStore) List(appID string, opts DeviceListOptions) ([]models.Device, int, error) {
	opts.Normalize()

	where := "WHERE d.app_id = ?"
	args := []any{appID}

	if opts.Status != "" {
		where += " AND d.status = ?"
		args = append(args, opts.Status)
	}
	if opts.Version != "" {
		where += " AND d.current_version = ?"
		args = append(args, opts.Version)
	}
	if opts.Platform != "" {
		// device_info is a JSON blob; platform lives at the top level
		where += " AND d.device_info LIKE ?"
		args = append(args, fmt.Sprintf(`%%"platform":"%s"%%`, opts.Platform))
	}
	if opts.Search != "" {
		where += " AND (d.device_id LIKE ? OR d.user_id LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM devices d "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "d.last_update_at", map[string]string{
		"deviceId":     "d.device_id",
		"lastUpdateAt": "d.last_update_at",
		"status":       "d.status",
	})

	query := fmt.Sprintf("SELECT %s FROM devices d %s ORDER BY %s LIMIT ? OFFSET ?",
		deviceColumns, where, order)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}

	return devices, total, rows.Err()
}

// Stats summarizes the device population of an app.
func (s *DeviceStore) Stats(appID string) (*models.DeviceStats, error) {
	var stats models.DeviceStats
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'online' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'offline' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT current_version)
		FROM devices WHERE app_id = ?
	`, appID).Scan(&stats.Total, &stats.Online, &stats.Offline, &stats.Versions)
	if err != nil {
		return nil, fmt.Errorf("failed to get device stats: %w", err)
	}
	return &stats, nil
}

// SetTargetVersion pins a device to a version for targeted rollout.
func (s *DeviceStore) SetTargetVersion(appID, id, versionID string) error {
	result, err := s.db.Exec(
		"UPDATE devices SET target_version_id = ? WHERE app_id = ? AND id = ?",
		versionID, appID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set target version: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	return nil
}

// ApplyVersion records a completed update on a device.
func (s *DeviceStore) ApplyVersion(id, version string, at time.Time) error {
	result, err := s.db.Exec(
		"UPDATE devices SET current_version = ?, last_update_at = ? WHERE id = ?",
		version, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to apply version: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	return nil
}

// IDs returns all device IDs for an app (full-rollout target set).
func (s *DeviceStore) IDs(appID string) ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM devices WHERE app_id = ?", appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Statuses returns id -> status for the given devices.
func (s *DeviceStore) Statuses(ids []string) (map[string]string, error) {
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(
		"SELECT id, status FROM devices WHERE id IN (?"+repeatPlaceholder(len(ids)-1)+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get device statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan device status: %w", err)
		}
		out[id] = status
	}
	return out, rows.Err()
}
