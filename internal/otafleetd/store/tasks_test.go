package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func TestTaskCreateAndGet(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.tasks", owner.ID)
	v := seedVersion(t, conn, app.ID, "1.0.0", "1")
	tasks := NewTaskStore(conn)

	task, err := tasks.Create(app.ID, v.ID, models.TaskTypeTargeted, owner.ID, nil, map[string]any{
		"userIds": []string{"d1", "d2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.TaskTypeTargeted, task.Type)
	assert.Zero(t, task.Progress)
	require.NotNil(t, task.Version)
	assert.Equal(t, "1.0.0", task.Version.Version)
	assert.NotNil(t, task.Details["userIds"])
}

func TestTaskCreateUnknownVersion(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.tasknover", owner.ID)

	_, err := NewTaskStore(conn).Create(app.ID, "missing", models.TaskTypeFull, owner.ID, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskClaimDue(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.claim", owner.ID)
	v := seedVersion(t, conn, app.ID, "1.0.0", "1")
	tasks := NewTaskStore(conn)

	immediate, err := tasks.Create(app.ID, v.ID, models.TaskTypeFull, owner.ID, nil, nil)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	overdue, err := tasks.Create(app.ID, v.ID, models.TaskTypeFull, owner.ID, &past, nil)
	require.NoError(t, err)

	future := time.Now().UTC().Add(time.Hour)
	scheduled, err := tasks.Create(app.ID, v.ID, models.TaskTypeFull, owner.ID, &future, nil)
	require.NoError(t, err)

	claimed, err := tasks.ClaimDue(10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	claimedIDs := []string{claimed[0].ID, claimed[1].ID}
	assert.ElementsMatch(t, []string{immediate.ID, overdue.ID}, claimedIDs)
	for _, task := range claimed {
		assert.Equal(t, models.TaskStatusRunning, task.Status)
		assert.NotNil(t, task.StartedAt)
	}

	// a second claim finds nothing new
	again, err := tasks.ClaimDue(10)
	require.NoError(t, err)
	assert.Empty(t, again)

	// the future task is untouched
	got, err := tasks.GetByID(app.ID, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, got.Status)
}

func TestTaskComplete(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.complete", owner.ID)
	v := seedVersion(t, conn, app.ID, "1.0.0", "1")
	tasks := NewTaskStore(conn)

	tests := []struct {
		name         string
		successCount int
		failureCount int
		wantStatus   string
	}{
		{"mixed outcome completes", 3, 2, models.TaskStatusCompleted},
		{"all failed fails", 0, 4, models.TaskStatusFailed},
		{"empty target set completes", 0, 0, models.TaskStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := tasks.Create(app.ID, v.ID, models.TaskTypeFull, owner.ID, nil, nil)
			require.NoError(t, err)
			_, err = tasks.ClaimDue(10)
			require.NoError(t, err)

			require.NoError(t, tasks.Complete(task.ID, tt.successCount, tt.failureCount))

			got, err := tasks.GetByID(app.ID, task.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.successCount, got.SuccessCount)
			assert.Equal(t, tt.failureCount, got.FailureCount)
			assert.NotNil(t, got.CompletedAt)
			assert.Equal(t, float64(100), got.Progress)

			// completing a finished task is rejected
			assert.ErrorIs(t, tasks.Complete(task.ID, 0, 0), ErrNotFound)
		})
	}
}
