package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// StatsStore computes the adoption dashboard aggregates. Everything is
// derived from the tasks and devices tables at query time.
type StatsStore struct {
	db *sql.DB
}

// NewStatsStore creates a new stats store
func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db}
}

const timelineDays = 30

// Overview assembles the full stats payload for an app
func (s *StatsStore) Overview(appID string) (*models.Stats, error) {
	summary, err := s.Summary(appID)
	if err != nil {
		return nil, err
	}
	distribution, err := s.VersionDistribution(appID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.updateTimeline(appID)
	if err != nil {
		return nil, err
	}
	reasons, err := s.failureReasons(appID)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		Summary:             *summary,
		VersionDistribution: distribution,
		UpdateTimeline:      timeline,
		FailureReasons:      reasons,
	}, nil
}

// Summary aggregates per-device outcomes across finished tasks
func (s *StatsStore) Summary(appID string) (*models.StatsSummary, error) {
	var summary models.StatsSummary
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(success_count), 0), COALESCE(SUM(failure_count), 0)
		FROM update_tasks WHERE app_id = ? AND status IN (?, ?)
	`, appID, models.TaskStatusCompleted, models.TaskStatusFailed).
		Scan(&summary.SuccessCount, &summary.FailureCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task outcomes: %w", err)
	}

	summary.TotalUpdates = summary.SuccessCount + summary.FailureCount
	if summary.TotalUpdates > 0 {
		summary.UpdateSuccessRate = float64(summary.SuccessCount) / float64(summary.TotalUpdates) * 100
	}

	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM versions WHERE app_id = ? AND status = ?",
		appID, models.VersionStatusPublished,
	).Scan(&summary.ActiveVersions)
	if err != nil {
		return nil, fmt.Errorf("failed to count active versions: %w", err)
	}

	return &summary, nil
}

// VersionDistribution groups devices by their reported version
func (s *StatsStore) VersionDistribution(appID string) ([]models.VersionDistribution, error) {
	var total int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM devices WHERE app_id = ? AND current_version IS NOT NULL",
		appID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT current_version, COUNT(*) AS n
		FROM devices
		WHERE app_id = ? AND current_version IS NOT NULL
		GROUP BY current_version
		ORDER BY n DESC
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to group devices by version: %w", err)
	}
	defer rows.Close()

	distribution := []models.VersionDistribution{}
	for rows.Next() {
		var d models.VersionDistribution
		if err := rows.Scan(&d.Version, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		if total > 0 {
			d.Percentage = float64(d.Count) / float64(total) * 100
		}
		distribution = append(distribution, d)
	}
	return distribution, rows.Err()
}

// updateTimeline counts tasks per day over the trailing window
func (s *StatsStore) updateTimeline(appID string) ([]models.TimelinePoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -timelineDays)
	rows, err := s.db.Query(`
		SELECT date(created_at) AS day, COUNT(*)
		FROM update_tasks
		WHERE app_id = ? AND created_at >= ?
		GROUP BY day
		ORDER BY day
	`, appID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to build timeline: %w", err)
	}
	defer rows.Close()

	timeline := []models.TimelinePoint{}
	for rows.Next() {
		var p models.TimelinePoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan timeline: %w", err)
		}
		timeline = append(timeline, p)
	}
	return timeline, rows.Err()
}

// failureReasons tallies rollout failures. Task details carry an
// operator-supplied reason; tasks without one are counted as offline
// devices, which is the only failure mode the runner produces itself.
func (s *StatsStore) failureReasons(appID string) ([]models.FailureReason, error) {
	rows, err := s.db.Query(`
		SELECT details, failure_count
		FROM update_tasks
		WHERE app_id = ? AND failure_count > 0
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to read failed tasks: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var details *string
		var failures int
		if err := rows.Scan(&details, &failures); err != nil {
			return nil, fmt.Errorf("failed to scan failed task: %w", err)
		}

		reason := "device offline"
		if m := unmarshalJSON(details); m != nil {
			if r, ok := m["reason"].(string); ok && r != "" {
				reason = r
			}
		}
		counts[reason] += failures
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reasons := []models.FailureReason{}
	for reason, count := range counts {
		reasons = append(reasons, models.FailureReason{Reason: reason, Count: count})
	}
	return reasons, nil
}
