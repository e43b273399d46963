package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func TestVersionLifecycle(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.lifecycle", owner.ID)
	versions := NewVersionStore(conn)

	v := seedVersion(t, conn, app.ID, "1.0.0", "1")
	assert.Equal(t, models.VersionStatusDraft, v.Status)
	assert.Nil(t, v.PublishedAt)

	published, err := versions.Publish(app.ID, v.ID, owner.ID, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	// publishing twice is rejected
	_, err = versions.Publish(app.ID, v.ID, owner.ID, "task-2")
	assert.ErrorIs(t, err, ErrBadRequest)

	rolledBack, err := versions.RollBack(app.ID, v.ID, "task-3")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusRolledBack, rolledBack.Status)
	assert.NotNil(t, rolledBack.RolledBackAt)

	// rolled_back is terminal: neither publish nor another rollback works
	_, err = versions.Publish(app.ID, v.ID, owner.ID, "task-4")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = versions.RollBack(app.ID, v.ID, "task-5")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestVersionRollBackRequiresPublished(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.rollback", owner.ID)

	draft := seedVersion(t, conn, app.ID, "1.0.0", "1")
	_, err := NewVersionStore(conn).RollBack(app.ID, draft.ID, "task-1")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestVersionDuplicateBuild(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.dupver", owner.ID)
	versions := NewVersionStore(conn)

	seedVersion(t, conn, app.ID, "1.0.0", "1")

	_, err := versions.Create(&models.Version{
		AppID:    app.ID,
		Version:  "1.0.0",
		Build:    "1",
		Name:     "Duplicate",
		FileURL:  "/uploads/other.tar.gz",
		FileSize: 1,
		Checksum: "cafe",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// the same version string with a new build is fine
	_, err = versions.Create(&models.Version{
		AppID:    app.ID,
		Version:  "1.0.0",
		Build:    "2",
		Name:     "Rebuild",
		FileURL:  "/uploads/other.tar.gz",
		FileSize: 1,
		Checksum: "cafe",
	})
	assert.NoError(t, err)
}

func TestVersionDeleteRules(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.delver", owner.ID)
	apps := NewAppStore(conn)
	versions := NewVersionStore(conn)

	current := seedVersion(t, conn, app.ID, "1.0.0", "1")
	other := seedVersion(t, conn, app.ID, "1.1.0", "2")
	draft := seedVersion(t, conn, app.ID, "1.2.0", "3")

	_, err := versions.Publish(app.ID, current.ID, owner.ID, "")
	require.NoError(t, err)
	_, err = versions.Publish(app.ID, other.ID, owner.ID, "")
	require.NoError(t, err)
	require.NoError(t, apps.SetCurrentVersion(app.ID, current.ID))

	// the app's current version is protected
	err = versions.Delete(app.ID, current.ID)
	assert.ErrorIs(t, err, ErrBadRequest)

	// a published non-current version deletes
	assert.NoError(t, versions.Delete(app.ID, other.ID))

	// drafts delete freely
	assert.NoError(t, versions.Delete(app.ID, draft.ID))
}

func TestVersionDeleteWithTaskHistory(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.taskhist", owner.ID)
	apps := NewAppStore(conn)
	versions := NewVersionStore(conn)
	tasks := NewTaskStore(conn)

	old := seedVersion(t, conn, app.ID, "1.0.0", "1")
	next := seedVersion(t, conn, app.ID, "1.1.0", "2")

	// publish both through the same flow the API uses: task first,
	// then the status flip carrying the task ID
	oldTask, err := tasks.Create(app.ID, old.ID, models.TaskTypeFull, owner.ID, nil, nil)
	require.NoError(t, err)
	_, err = versions.Publish(app.ID, old.ID, owner.ID, oldTask.ID)
	require.NoError(t, err)

	nextTask, err := tasks.Create(app.ID, next.ID, models.TaskTypeFull, owner.ID, nil, nil)
	require.NoError(t, err)
	_, err = versions.Publish(app.ID, next.ID, owner.ID, nextTask.ID)
	require.NoError(t, err)
	require.NoError(t, apps.SetCurrentVersion(app.ID, next.ID))

	rbTask, err := tasks.Create(app.ID, next.ID, models.TaskTypeFull, owner.ID, nil, map[string]any{
		"reason":         "crash loop",
		"rolledBackFrom": old.ID,
	})
	require.NoError(t, err)
	_, err = versions.RollBack(app.ID, old.ID, rbTask.ID)
	require.NoError(t, err)

	// a rolled-back version with task history deletes cleanly
	require.NoError(t, versions.Delete(app.ID, old.ID))
	_, err = versions.GetByID(app.ID, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// its own task rows go with it; tasks on other versions survive
	_, err = tasks.GetByID(app.ID, oldTask.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tasks.GetByID(app.ID, nextTask.ID)
	assert.NoError(t, err)
}

func TestVersionListStatusFilter(t *testing.T) {
	conn := setupTestDB(t)
	owner := seedUser(t, conn, "owner@example.com", models.RoleAdmin)
	app := seedApp(t, conn, "com.example.listver", owner.ID)
	versions := NewVersionStore(conn)

	v1 := seedVersion(t, conn, app.ID, "1.0.0", "1")
	seedVersion(t, conn, app.ID, "1.1.0", "2")

	_, err := versions.Publish(app.ID, v1.ID, owner.ID, "")
	require.NoError(t, err)

	published, total, err := versions.List(app.ID, ListOptions{Status: models.VersionStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, published, 1)
	assert.Equal(t, v1.ID, published[0].ID)

	all, total, err := versions.List(app.ID, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)
}
