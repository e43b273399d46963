package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// AppStore handles application database operations
type AppStore struct {
	db *sql.DB
}

// NewAppStore creates a new app store
func NewAppStore(db *sql.DB) *AppStore {
	return &AppStore{db: db}
}

const appColumns = `
	a.id, a.name, a.app_id, a.icon, a.description, a.status, a.owner_id, a.created_at, a.updated_at,
	(SELECT v.version FROM versions v WHERE v.id = a.current_version_id),
	(SELECT COUNT(*) FROM devices d WHERE d.app_id = a.id),
	(SELECT COUNT(*) FROM update_tasks t WHERE t.app_id = a.id),
	(SELECT COUNT(*) FROM versions v WHERE v.app_id = a.id),
	u.name, u.email`

func scanApp(row interface{ Scan(...any) error }) (*models.App, error) {
	var app models.App
	var ownerName, ownerEmail string
	err := row.Scan(
		&app.ID, &app.Name, &app.AppID, &app.Icon, &app.Description, &app.Status,
		&app.OwnerID, &app.CreatedAt, &app.UpdatedAt,
		&app.CurrentVersion, &app.UserCount, &app.UpdateCount, &app.Versions,
		&ownerName, &ownerEmail,
	)
	if err != nil {
		return nil, err
	}
	app.Owner = &models.UserRef{ID: app.OwnerID, Name: ownerName, Email: ownerEmail}
	return &app, nil
}

// Create creates a new application. The external appId must be unique.
func (s *AppStore) Create(req *models.CreateAppRequest, ownerID string) (*models.App, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM apps WHERE app_id = ?)", req.AppID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check if app exists: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("app %q: %w", req.AppID, ErrConflict)
	}

	now := time.Now().UTC()
	id := uuid.New().String()

	var icon, description any
	if req.Icon != "" {
		icon = req.Icon
	}
	if req.Description != "" {
		description = req.Description
	}

	_, err = s.db.Exec(`
		INSERT INTO apps (id, name, app_id, icon, description, status, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, req.Name, req.AppID, icon, description, models.AppStatusActive, ownerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	return s.GetByID(id)
}

// GetByID gets an application with its derived counts and owner.
func (s *AppStore) GetByID(id string) (*models.App, error) {
	row := s.db.QueryRow(`
		SELECT `+appColumns+`
		FROM apps a JOIN users u ON u.id = a.owner_id
		WHERE a.id = ?
	`, id)

	app, err := scanApp(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("app %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return app, nil
}

// List lists applications with pagination, optional search and status
// filter. ownerScope restricts results to the given app IDs when
// non-nil (app_manager scoping); an empty non-nil scope matches
// nothing.
func (s *AppStore) List(opts ListOptions, ownerScope []string) ([]models.App, int, error) {
	opts.Normalize()

	where := "WHERE 1=1"
	args := []any{}

	if opts.Status != "" {
		where += " AND a.status = ?"
		args = append(args, opts.Status)
	}
	if opts.Search != "" {
		where += " AND (a.name LIKE ? OR a.app_id LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}
	if ownerScope != nil {
		if len(ownerScope) == 0 {
			return []models.App{}, 0, nil
		}
		where += " AND a.id IN (?" + repeatPlaceholder(len(ownerScope)-1) + ")"
		for _, id := range ownerScope {
			args = append(args, id)
		}
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM apps a "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count apps: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "a.created_at", map[string]string{
		"name":      "a.name",
		"createdAt": "a.created_at",
		"updatedAt": "a.updated_at",
	})

	query := fmt.Sprintf(`
		SELECT %s
		FROM apps a JOIN users u ON u.id = a.owner_id
		%s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, appColumns, where, order)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list apps: %w", err)
	}
	defer rows.Close()

	apps := []models.App{}
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan app: %w", err)
		}
		apps = append(apps, *app)
	}

	return apps, total, rows.Err()
}

// Update applies partial updates to name, description, icon and
// status. The external appId is immutable.
func (s *AppStore) Update(id string, req *models.UpdateAppRequest) (*models.App, error) {
	set := "updated_at = ?"
	args := []any{time.Now().UTC()}

	if req.Name != nil {
		set += ", name = ?"
		args = append(args, *req.Name)
	}
	if req.Description != nil {
		set += ", description = ?"
		args = append(args, *req.Description)
	}
	if req.Icon != nil {
		set += ", icon = ?"
		args = append(args, *req.Icon)
	}
	if req.Status != nil {
		set += ", status = ?"
		args = append(args, *req.Status)
	}
	args = append(args, id)

	result, err := s.db.Exec("UPDATE apps SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update app: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("app %q: %w", id, ErrNotFound)
	}

	return s.GetByID(id)
}

// Delete removes an app and everything that hangs off it in one
// transaction. Destructive and irreversible.
func (s *AppStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM apps WHERE id = ?)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check app: %w", err)
	}
	if !exists {
		return fmt.Errorf("app %q: %w", id, ErrNotFound)
	}

	statements := []string{
		"DELETE FROM group_members WHERE group_id IN (SELECT id FROM device_groups WHERE app_id = ?)",
		"DELETE FROM device_groups WHERE app_id = ?",
		"DELETE FROM logs WHERE app_id = ?",
		"DELETE FROM update_tasks WHERE app_id = ?",
		"DELETE FROM devices WHERE app_id = ?",
		"DELETE FROM versions WHERE app_id = ?",
		"DELETE FROM apps WHERE id = ?",
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, id); err != nil {
			return fmt.Errorf("failed to cascade app delete: %w", err)
		}
	}

	return tx.Commit()
}

// SetCurrentVersion points the app at a published version.
func (s *AppStore) SetCurrentVersion(appID, versionID string) error {
	var status string
	err := s.db.QueryRow("SELECT status FROM versions WHERE id = ? AND app_id = ?", versionID, appID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("version %q: %w", versionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if status != models.VersionStatusPublished {
		return fmt.Errorf("version must be published to become current: %w", ErrBadRequest)
	}

	result, err := s.db.Exec(
		"UPDATE apps SET current_version_id = ?, updated_at = ? WHERE id = ?",
		versionID, time.Now().UTC(), appID,
	)
	if err != nil {
		return fmt.Errorf("failed to set current version: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("app %q: %w", appID, ErrNotFound)
	}
	return nil
}

// CurrentVersionID returns the app's current version ID, or empty.
func (s *AppStore) CurrentVersionID(appID string) (string, error) {
	var versionID sql.NullString
	err := s.db.QueryRow("SELECT current_version_id FROM apps WHERE id = ?", appID).Scan(&versionID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("app %q: %w", appID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get current version: %w", err)
	}
	return versionID.String, nil
}

// repeatPlaceholder returns ", ?" repeated n times for IN clauses.
func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
