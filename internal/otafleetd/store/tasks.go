package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// TaskStore handles update tasks
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a new task store
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `
	t.id, t.app_id, t.version_id, t.type, t.status,
	t.scheduled_at, t.started_at, t.completed_at,
	t.success_count, t.failure_count, t.details,
	t.created_by, t.created_at,
	v.version
`

func scanTask(row interface{ Scan(...any) error }) (*models.UpdateTask, error) {
	var t models.UpdateTask
	var scheduledAt, startedAt, completedAt sql.NullTime
	var details *string
	var ref models.VersionRef

	err := row.Scan(
		&t.ID, &t.AppID, &t.VersionID, &t.Type, &t.Status,
		&scheduledAt, &startedAt, &completedAt,
		&t.SuccessCount, &t.FailureCount, &details,
		&t.CreatedBy, &t.CreatedAt,
		&ref.Version,
	)
	if err != nil {
		return nil, err
	}

	if scheduledAt.Valid {
		t.ScheduledAt = &scheduledAt.Time
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.Details = unmarshalJSON(details)
	ref.ID = t.VersionID
	t.Version = &ref

	// Per-device counts land only at completion, so progress is
	// coarse: terminal states report 100, everything else 0.
	switch t.Status {
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		t.Progress = 100
	}

	return &t, nil
}

// Create enqueues a task. A nil scheduledAt means the task is due
// immediately.
func (s *TaskStore) Create(appID, versionID, taskType, createdBy string, scheduledAt *time.Time, details map[string]any) (*models.UpdateTask, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM versions WHERE id = ? AND app_id = ?)", versionID, appID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check version: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("version %q: %w", versionID, ErrNotFound)
	}

	id := uuid.New().String()
	detailsJSON, err := marshalJSON(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task details: %w", err)
	}

	var at any
	if scheduledAt != nil {
		at = scheduledAt.UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO update_tasks (id, app_id, version_id, type, status, scheduled_at, details, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, appID, versionID, taskType, models.TaskStatusPending, at, detailsJSON, createdBy, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetByID(appID, id)
}

// GetByID gets a task by ID
func (s *TaskStore) GetByID(appID, id string) (*models.UpdateTask, error) {
	task, err := scanTask(s.db.QueryRow(`
		SELECT `+taskColumns+`
		FROM update_tasks t JOIN versions v ON v.id = t.version_id
		WHERE t.app_id = ? AND t.id = ?
	`, appID, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List lists tasks for an app, newest first by default.
func (s *TaskStore) List(appID string, opts ListOptions) ([]models.UpdateTask, int, error) {
	opts.Normalize()

	where := "WHERE t.app_id = ?"
	args := []any{appID}
	if opts.Status != "" {
		where += " AND t.status = ?"
		args = append(args, opts.Status)
	}

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM update_tasks t "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	order := orderClause(opts.Sort, opts.Order, "t.created_at", map[string]string{
		"createdAt":   "t.created_at",
		"scheduledAt": "t.scheduled_at",
		"status":      "t.status",
	})

	args = append(args, opts.Limit, opts.Offset())
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s
		FROM update_tasks t JOIN versions v ON v.id = t.version_id
		%s ORDER BY %s LIMIT ? OFFSET ?
	`, taskColumns, where, order), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.UpdateTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}

	return tasks, total, rows.Err()
}

// ClaimDue transitions due pending tasks to running and returns them.
// A task is due when it has no schedule or its scheduled time has
// passed. The status flip and the read happen in one transaction so
// concurrent runners cannot claim the same task twice.
func (s *TaskStore) ClaimDue(limit int) ([]models.UpdateTask, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := tx.Query(`
		SELECT t.id FROM update_tasks t
		WHERE t.status = ? AND (t.scheduled_at IS NULL OR t.scheduled_at <= ?)
		ORDER BY t.created_at
		LIMIT ?
	`, models.TaskStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		_, err := tx.Exec(
			"UPDATE update_tasks SET status = ?, started_at = ? WHERE id = ?",
			models.TaskStatusRunning, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	tasks := []models.UpdateTask{}
	for _, id := range ids {
		task, err := scanTask(s.db.QueryRow(`
			SELECT `+taskColumns+`
			FROM update_tasks t JOIN versions v ON v.id = t.version_id
			WHERE t.id = ?
		`, id))
		if err != nil {
			return nil, fmt.Errorf("failed to load claimed task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// Complete records the outcome of a finished task. The task fails when
// every targeted device failed; a mixed or empty outcome completes.
func (s *TaskStore) Complete(id string, successCount, failureCount int) error {
	status := models.TaskStatusCompleted
	if failureCount > 0 && successCount == 0 {
		status = models.TaskStatusFailed
	}

	result, err := s.db.Exec(`
		UPDATE update_tasks
		SET status = ?, success_count = ?, failure_count = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`, status, successCount, failureCount, time.Now().UTC(), id, models.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return nil
}
