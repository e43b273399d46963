package client

import (
	"context"
	"net/http"
	"net/url"
)

// LogListParams filters the audit trail
type LogListParams struct {
	ListParams
	Type      string
	UserID    string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
}

func (p LogListParams) logQuery() url.Values {
	query := p.query()
	if p.Type != "" {
		query.Set("type", p.Type)
	}
	if p.UserID != "" {
		query.Set("userId", p.UserID)
	}
	if p.StartDate != "" {
		query.Set("startDate", p.StartDate)
	}
	if p.EndDate != "" {
		query.Set("endDate", p.EndDate)
	}
	return query
}

// ListLogs lists audit entries for an app
func (c *Client) ListLogs(ctx context.Context, appID string, params LogListParams) (*Page[Log], error) {
	var page Page[Log]
	if err := c.get(ctx, "/api/apps/"+appID+"/logs", params.logQuery(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetLog gets a single audit entry
func (c *Client) GetLog(ctx context.Context, appID, logID string) (*Log, error) {
	var entry Log
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/logs/"+logID, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExportLogs downloads the filtered audit trail as csv or xlsx bytes
func (c *Client) ExportLogs(ctx context.Context, appID, format string, params LogListParams) ([]byte, error) {
	query := params.logQuery()
	query.Set("format", format)
	return c.Download(ctx, "/api/apps/"+appID+"/logs/export?"+query.Encode())
}
