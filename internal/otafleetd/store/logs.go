package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// LogStore handles the append-only audit trail
type LogStore struct {
	db *sql.DB
}

// NewLogStore creates a new log store
func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

// LogListOptions extends ListOptions with audit-specific filters.
// StartDate and EndDate are inclusive; a zero time means unbounded.
type LogListOptions struct {
	ListOptions
	Type      string
	UserID    string
	StartDate time.Time
	EndDate   time.Time
}

const logColumns = `
	l.id, l.app_id, l.type, l.action, l.target_id, l.target_type,
	l.status, l.details, l.user_id, l.created_at,
	u.name, u.email
`

func scanLog(row interface{ Scan(...any) error }) (*models.Log, error) {
	var l models.Log
	var details *string
	var userName, userEmail sql.NullString

	err := row.Scan(
		&l.ID, &l.AppID, &l.Type, &l.Action, &l.TargetID, &l.TargetType,
		&l.Status, &details, &l.UserID, &l.CreatedAt,
		&userName, &userEmail,
	)
	if err != nil {
		return nil, err
	}

	l.Details = unmarshalJSON(details)
	if userName.Valid {
		l.User = &models.UserRef{ID: l.UserID, Name: userName.String, Email: userEmail.String}
	}
	return &l, nil
}

// Append records an audit entry. Failures to write the trail are
// returned to the caller but never roll back the operation they
// describe.
func (s *LogStore) Append(appID string, entry *models.Log) error {
	detailsJSON, err := marshalJSON(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to encode log details: %w", err)
	}

	entry.ID = uuid.New().String()
	entry.AppID = appID
	entry.CreatedAt = time.Now().UTC()

	_, err = s.db.Exec(`
		INSERT INTO logs (id, app_id, type, action, target_id, target_type, status, details, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, appID, entry.Type, entry.Action, entry.TargetID, entry.TargetType,
		entry.Status, detailsJSON, entry.UserID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// GetByID gets a log entry by ID
func (s *LogStore) GetByID(appID, id string) (*models.Log, error) {
	entry, err := scanLog(s.db.QueryRow(`
		SELECT `+logColumns+`
		FROM logs l LEFT JOIN users u ON u.id = l.user_id
		WHERE l.app_id = ? AND l.id = ?
	`, appID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("log %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	return entry, nil
}

func (s *LogStore) buildFilter(appID string, opts *LogListOptions) (string, []any) {
	where := "WHERE l.app_id = ?"
	args := []any{appID}

	if opts.Type != "" {
		where += " AND l.type = ?"
		args = append(args, opts.Type)
	}
	if opts.Status != "" {
		where += " AND l.status = ?"
		args = append(args, opts.Status)
	}
	if opts.UserID != "" {
		where += " AND l.user_id = ?"
		args = append(args, opts.UserID)
	}
	if !opts.StartDate.IsZero() {
		where += " AND l.created_at >= ?"
		args = append(args, opts.StartDate.UTC())
	}
	if !opts.EndDate.IsZero() {
		where += " AND l.created_at <= ?"
		args = append(args, opts.EndDate.UTC())
	}
	if opts.Search != "" {
		where += " AND (l.action LIKE ? OR l.target_id LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}
	return where, args
}

// List lists audit entries for an app, newest first.
func (s *LogStore) List(appID string, opts LogListOptions) ([]models.Log, int, error) {
	opts.Normalize()
	where, args := s.buildFilter(appID, &opts)

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM logs l "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "l.created_at", map[string]string{
		"createdAt": "l.created_at",
		"type":      "l.type",
		"status":    "l.status",
	})

	args = append(args, opts.Limit, opts.Offset())
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s
		FROM logs l LEFT JOIN users u ON u.id = l.user_id
		%s ORDER BY %s LIMIT ? OFFSET ?
	`, logColumns, where, order), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	logs := []models.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, *l)
	}

	return logs, total, rows.Err()
}

// ListAll returns every entry matching the filter without pagination,
// oldest first. Used by exports.
func (s *LogStore) ListAll(appID string, opts LogListOptions) ([]models.Log, error) {
	where, args := s.buildFilter(appID, &opts)

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s
		FROM logs l LEFT JOIN users u ON u.id = l.user_id
		%s ORDER BY l.created_at
	`, logColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export logs: %w", err)
	}
	defer rows.Close()

	logs := []models.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}
