package client

import (
	"context"
	"net/http"
)

// CreateAppParams creates an app
type CreateAppParams struct {
	Name        string `json:"name"`
	AppID       string `json:"appId"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// UpdateAppParams updates an app; nil fields are left unchanged
type UpdateAppParams struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ListApps lists apps
func (c *Client) ListApps(ctx context.Context, params ListParams) (*Page[App], error) {
	var page Page[App]
	if err := c.get(ctx, "/api/apps", params.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateApp creates an app
func (c *Client) CreateApp(ctx context.Context, params CreateAppParams) (*App, error) {
	var app App
	if err := c.do(ctx, http.MethodPost, "/api/apps", params, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApp gets an app by ID
func (c *Client) GetApp(ctx context.Context, appID string) (*App, error) {
	var app App
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApp applies a partial update to an app
func (c *Client) UpdateApp(ctx context.Context, appID string, params UpdateAppParams) (*App, error) {
	var app App
	if err := c.do(ctx, http.MethodPut, "/api/apps/"+appID, params, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApp deletes an app and everything under it
func (c *Client) DeleteApp(ctx context.Context, appID string) error {
	return c.do(ctx, http.MethodDelete, "/api/apps/"+appID, nil, nil)
}

// SetCurrentVersion points an app at a published version
func (c *Client) SetCurrentVersion(ctx context.Context, appID, versionID string) (*App, error) {
	var app App
	body := map[string]string{"versionId": versionID}
	if err := c.do(ctx, http.MethodPut, "/api/apps/"+appID+"/current-version", body, &app); err != nil {
		return nil, err
	}
	return &app, nil
}
