package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// VersionStore handles version database operations
type VersionStore struct {
	db *sql.DB
}

// NewVersionStore creates a new version store
func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

const versionColumns = `
	v.id, v.app_id, v.version, v.build, v.name, v.runtime_version, v.description,
	v.status, v.file_url, v.file_size, v.checksum, v.is_mandatory,
	v.published_at, v.rolled_back_at, v.published_by, v.created_at, v.task_id,
	(SELECT COUNT(*) FROM devices d WHERE d.app_id = v.app_id AND d.current_version = v.version)`

func scanVersion(row interface{ Scan(...any) error }) (*models.Version, error) {
	var v models.Version
	var publishedAt, rolledBackAt sql.NullTime
	err := row.Scan(
		&v.ID, &v.AppID, &v.Version, &v.Build, &v.Name, &v.RuntimeVersion, &v.Description,
		&v.Status, &v.FileURL, &v.FileSize, &v.Checksum, &v.IsMandatory,
		&publishedAt, &rolledBackAt, &v.PublishedBy, &v.CreatedAt, &v.TaskID,
		&v.UserCount,
	)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		v.PublishedAt = &publishedAt.Time
	}
	if rolledBackAt.Valid {
		v.RolledBackAt = &rolledBackAt.Time
	}
	return &v, nil
}

// Create inserts a version in draft status. The artifact triple
// (fileUrl, fileSize, checksum) is immutable from here on.
func (s *VersionStore) Create(v *models.Version) (*models.Version, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM versions WHERE app_id = ? AND version = ? AND build = ?)",
		v.AppID, v.Version, v.Build,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check if version exists: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("version %s (%s): %w", v.Version, v.Build, ErrConflict)
	}

	v.ID = uuid.New().String()
	v.Status = models.VersionStatusDraft
	v.CreatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO versions (id, app_id, version, build, name, runtime_version, description,
			status, file_url, file_size, checksum, is_mandatory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.AppID, v.Version, v.Build, v.Name, v.RuntimeVersion, v.Description,
		v.Status, v.FileURL, v.FileSize, v.Checksum, v.IsMandatory, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	return s.GetByID(v.AppID, v.ID)
}

// GetByID gets a version scoped to an app.
func (s *VersionStore) GetByID(appID, id string) (*models.Version, error) {
	row := s.db.QueryRow(`
		SELECT `+versionColumns+`
		FROM versions v
		WHERE v.app_id = ? AND v.id = ?
	`, appID, id)

	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("version %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// List lists versions for an app with pagination and optional status
// filter and search across version, build and name.
func (s *VersionStore) List(appID string, opts ListOptions) ([]models.Version, int, error) {
	opts.Normalize()

	where := "WHERE v.app_id = ?"
	args := []any{appID}

	if opts.Status != "" {
		where += " AND v.status = ?"
		args = append(args, opts.Status)
	}
	if opts.Search != "" {
		where += " AND (v.version LIKE ? OR v.build LIKE ? OR v.name LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM versions v "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count versions: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "v.created_at", map[string]string{
		"version":     "v.version",
		"createdAt":   "v.created_at",
		"publishedAt": "v.published_at",
	})

	query := fmt.Sprintf("SELECT %s FROM versions v %s ORDER BY %s LIMIT ? OFFSET ?",
		versionColumns, where, order)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []models.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}

	return versions, total, rows.Err()
}

// Publish moves a draft version to published. Only drafts can be
// published; a rolled_back version stays rolled back forever.
func (s *VersionStore) Publish(appID, id, publishedBy, taskID string) (*models.Version, error) {
	v, err := s.GetByID(appID, id)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VersionStatusDraft {
		return nil, fmt.Errorf("only draft versions can be published (status %s): %w", v.Status, ErrBadRequest)
	}

	_, err = s.db.Exec(`
		UPDATE versions
		SET status = ?, published_at = ?, published_by = ?, task_id = ?
		WHERE id = ?
	`, models.VersionStatusPublished, time.Now().UTC(), publishedBy, taskID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to publish version: %w", err)
	}

	return s.GetByID(appID, id)
}

// RollBack moves a published version to rolled_back. Terminal for this
// version; serving devices are reverted to a prior published version
// by the associated update task.
func (s *VersionStore) RollBack(appID, id, taskID string) (*models.Version, error) {
	v, err := s.GetByID(appID, id)
	if err != nil {
		return nil, err
	}
	if v.Status != models.VersionStatusPublished {
		return nil, fmt.Errorf("only published versions can be rolled back (status %s): %w", v.Status, ErrBadRequest)
	}

	_, err = s.db.Exec(`
		UPDATE versions
		SET status = ?, rolled_back_at = ?, task_id = ?
		WHERE id = ?
	`, models.VersionStatusRolledBack, time.Now().UTC(), taskID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to roll back version: %w", err)
	}

	return s.GetByID(appID, id)
}

// Delete removes a version. Drafts and rolled-back versions delete
// freely; a published version may only be deleted when it is not the
// app's current version.
func (s *VersionStore) Delete(appID, id string) error {
	v, err := s.GetByID(appID, id)
	if err != nil {
		return err
	}

	if v.Status == models.VersionStatusPublished {
		var currentID sql.NullString
		err := s.db.QueryRow("SELECT current_version_id FROM apps WHERE id = ?", appID).Scan(&currentID)
		if err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		if currentID.Valid && currentID.String == id {
			return fmt.Errorf("cannot delete the app's current version: %w", ErrBadRequest)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Rollout tasks reference the version row; task history for a
	// deleted version goes with it.
	if _, err := tx.Exec("DELETE FROM update_tasks WHERE version_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete version tasks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM versions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	return tx.Commit()
}
