package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// GroupStore handles device groups. Membership lives in a relational
// group_members table, so userCount == len(userIds) holds by
// construction rather than by bookkeeping.
type GroupStore struct {
	db *sql.DB
}

// NewGroupStore creates a new group store
func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

// Create creates a group and its initial membership in one
// transaction.
func (s *GroupStore) Create(appID string, req *models.CreateGroupRequest, createdBy string) (*models.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	now := time.Now().UTC()

	var description any
	if req.Description != "" {
		description = req.Description
	}

	_, err = tx.Exec(`
		INSERT INTO device_groups (id, app_id, name, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, appID, req.Name, description, createdBy, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	for _, deviceID := range req.UserIDs {
		if err := s.insertMember(tx, appID, id, deviceID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}

	return s.GetByID(appID, id)
}

// insertMember adds a membership row, verifying the device belongs to
// the same app. Duplicate adds are ignored.
func (s *GroupStore) insertMember(tx *sql.Tx, appID, groupID, deviceID string) error {
	var exists bool
	if err := tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM devices WHERE id = ? AND app_id = ?)", deviceID, appID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check device: %w", err)
	}
	if !exists {
		return fmt.Errorf("device %q: %w", deviceID, ErrNotFound)
	}

	_, err := tx.Exec(
		"INSERT OR IGNORE INTO group_members (group_id, device_id) VALUES (?, ?)",
		groupID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// GetByID gets a group with its full membership.
func (s *GroupStore) GetByID(appID, id string) (*models.Group, error) {
	var g models.Group
	err := s.db.QueryRow(`
		SELECT id, app_id, name, description, created_by, created_at, updated_at
		FROM device_groups WHERE app_id = ? AND id = ?
	`, appID, id).Scan(&g.ID, &g.AppID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT d.id, d.user_id, d.device_id
		FROM group_members m JOIN devices d ON d.id = m.device_id
		WHERE m.group_id = ?
		ORDER BY m.added_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	g.UserIDs = []string{}
	g.Users = []models.DeviceRef{}
	for rows.Next() {
		var ref models.DeviceRef
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		g.UserIDs = append(g.UserIDs, ref.ID)
		g.Users = append(g.Users, ref)
	}
	g.UserCount = len(g.UserIDs)

	return &g, rows.Err()
}

// List lists groups for an app with pagination and optional name
// search. Membership IDs are loaded per group.
func (s *GroupStore) List(appID string, opts ListOptions) ([]models.Group, int, error) {
	opts.Normalize()

	where := "WHERE g.app_id = ?"
	args := []any{appID}
	if opts.Search != "" {
		where += " AND g.name LIKE ?"
		args = append(args, "%"+opts.Search+"%")
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM device_groups g "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "g.created_at", map[string]string{
		"name":      "g.name",
		"createdAt": "g.created_at",
		"updatedAt": "g.updated_at",
	})

	args = append(args, opts.Limit, opts.Offset())
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT g.id FROM device_groups g %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, order), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	groups := []models.Group{}
	for _, id := range ids {
		g, err := s.GetByID(appID, id)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, *g)
	}

	return groups, total, nil
}

// Update applies partial updates; a non-nil UserIDs replaces the whole
// membership in the same transaction.
func (s *GroupStore) Update(appID, id string, req *models.UpdateGroupRequest) (*models.Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

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
	args = append(args, appID, id)

	result, err := tx.Exec("UPDATE device_groups SET "+set+" WHERE app_id = ? AND id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}

	if req.UserIDs != nil {
		if _, err := tx.Exec("DELETE FROM group_members WHERE group_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to clear group members: %w", err)
		}
		for _, deviceID := range *req.UserIDs {
			if err := s.insertMember(tx, appID, id, deviceID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group update: %w", err)
	}

	return s.GetByID(appID, id)
}

// Delete removes a group and its membership.
func (s *GroupStore) Delete(appID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Members reference the group row, so they go first.
	if _, err := tx.Exec("DELETE FROM group_members WHERE group_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	result, err := tx.Exec("DELETE FROM device_groups WHERE app_id = ? AND id = ?", appID, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("group %q: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// AddMembers adds devices to a group; already-present devices do not
// count as added.
func (s *GroupStore) AddMembers(appID, id string, deviceIDs []string) (added, userCount int, err error) {
	if _, err := s.GetByID(appID, id); err != nil {
		return 0, 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, deviceID := range deviceIDs {
		var exists bool
		if err := tx.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND device_id = ?)",
			id, deviceID,
		).Scan(&exists); err != nil {
			return 0, 0, fmt.Errorf("failed to check membership: %w", err)
		}
		if exists {
			continue
		}
		if err := s.insertMember(tx, appID, id, deviceID); err != nil {
			return 0, 0, err
		}
		added++
	}

	if _, err := tx.Exec("UPDATE device_groups SET updated_at = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
		return 0, 0, fmt.Errorf("failed to touch group: %w", err)
	}

	if err := tx.QueryRow("SELECT COUNT(*) FROM group_members WHERE group_id = ?", id).Scan(&userCount); err != nil {
		return 0, 0, fmt.Errorf("failed to count members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit membership: %w", err)
	}
	return added, userCount, nil
}

// RemoveMembers removes devices from a group.
func (s *GroupStore) RemoveMembers(appID, id string, deviceIDs []string) (removed, userCount int, err error) {
	if _, err := s.GetByID(appID, id); err != nil {
		return 0, 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, deviceID := range deviceIDs {
		result, err := tx.Exec("DELETE FROM group_members WHERE group_id = ? AND device_id = ?", id, deviceID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to remove member: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			removed++
		}
	}

	if _, err := tx.Exec("UPDATE device_groups SET updated_at = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
		return 0, 0, fmt.Errorf("failed to touch group: %w", err)
	}

	if err := tx.QueryRow("SELECT COUNT(*) FROM group_members WHERE group_id = ?", id).Scan(&userCount); err != nil {
		return 0, 0, fmt.Errorf("failed to count members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit membership: %w", err)
	}
	return removed, userCount, nil
}

// MemberIDs returns the union of device IDs in the given groups.
func (s *GroupStore) MemberIDs(groupIDs []string) ([]string, error) {
	if len(groupIDs) == 0 {
		return []string{}, nil
	}

	args := make([]any, len(groupIDs))
	for i, id := range groupIDs {
		args[i] = id
	}
	rows, err := s.db.Query(
		"SELECT DISTINCT device_id FROM group_members WHERE group_id IN (?"+repeatPlaceholder(len(groupIDs)-1)+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
