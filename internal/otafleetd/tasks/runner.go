package tasks

import (
	"context"
	"log"
	"time"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
)

// Runner drains the update task queue. Each tick it claims due tasks,
// resolves their target devices and pushes the task's version to every
// online target. Offline targets count as failures.
type Runner struct {
	tasks    *store.TaskStore
	devices  *store.DeviceStore
	groups   *store.GroupStore
	interval time.Duration
}

const claimBatchSize = 10

// NewRunner creates a task runner
func NewRunner(tasks *store.TaskStore, devices *store.DeviceStore, groups *store.GroupStore, interval time.Duration) *Runner {
	return &Runner{
		tasks:    tasks,
		devices:  devices,
		groups:   groups,
		interval: interval,
	}
}

// Start runs the polling loop until the context is cancelled
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Runner) tick() {
	claimed, err := r.tasks.ClaimDue(claimBatchSize)
	if err != nil {
		log.Printf("Error claiming update tasks: %v", err)
		return
	}

	for i := range claimed {
		r.run(&claimed[i])
	}
}

// run executes a single claimed task
func (r *Runner) run(task *models.UpdateTask) {
	targets, err := r.resolveTargets(task)
	if err != nil {
		log.Printf("Error resolving targets for task %s: %v", task.ID, err)
		if err := r.tasks.Complete(task.ID, 0, 0); err != nil {
			log.Printf("Error completing task %s: %v", task.ID, err)
		}
		return
	}

	statuses, err := r.devices.Statuses(targets)
	if err != nil {
		log.Printf("Error reading device statuses for task %s: %v", task.ID, err)
		return
	}

	version := ""
	if task.Version != nil {
		version = task.Version.Version
	}

	now := time.Now().UTC()
	success, failure := 0, 0
	for _, deviceID := range targets {
		if statuses[deviceID] != models.DeviceStatusOnline {
			failure++
			continue
		}
		if err := r.devices.ApplyVersion(deviceID, version, now); err != nil {
			log.Printf("Error applying version to device %s: %v", deviceID, err)
			failure++
			continue
		}
		success++
	}

	if err := r.tasks.Complete(task.ID, success, failure); err != nil {
		log.Printf("Error completing task %s: %v", task.ID, err)
		return
	}
	log.Printf("Task %s finished: %d succeeded, %d failed", task.ID, success, failure)
}

// resolveTargets expands a task into concrete device IDs. Full tasks
// target every device of the app; targeted tasks take the union of the
// listed devices and the members of the listed groups.
func (r *Runner) resolveTargets(task *models.UpdateTask) ([]string, error) {
	if task.Type == models.TaskTypeFull {
		return r.devices.IDs(task.AppID)
	}

	seen := map[string]bool{}
	targets := []string{}

	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				targets = append(targets, id)
			}
		}
	}

	add(detailStrings(task.Details, "userIds"))

	groupIDs := detailStrings(task.Details, "groupIds")
	if len(groupIDs) > 0 {
		members, err := r.groups.MemberIDs(groupIDs)
		if err != nil {
			return nil, err
		}
		add(members)
	}

	return targets, nil
}

// detailStrings reads a string slice out of a task's details map,
// which round-trips through JSON as []any.
func detailStrings(details map[string]any, key string) []string {
	raw, ok := details[key]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
