package client

import (
	"context"
	"net/http"
)

// GetStats gets the full stats aggregate for an app
func (c *Client) GetStats(ctx context.Context, appID string) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetVersionDistribution gets the per-version device breakdown
func (c *Client) GetVersionDistribution(ctx context.Context, appID string) ([]VersionDistribution, error) {
	var distribution []VersionDistribution
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/stats/version-distribution", nil, &distribution); err != nil {
		return nil, err
	}
	return distribution, nil
}

// GetUpdateSuccessRate gets the rollout outcome summary
func (c *Client) GetUpdateSuccessRate(ctx context.Context, appID string) (*StatsSummary, error) {
	var summary StatsSummary
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/stats/update-success-rate", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
