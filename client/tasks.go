package client

import (
	"context"
	"net/http"
)

// ListTasks lists update tasks for an app
func (c *Client) ListTasks(ctx context.Context, appID string, params ListParams) (*Page[UpdateTask], error) {
	var page Page[UpdateTask]
	if err := c.get(ctx, "/api/apps/"+appID+"/update-tasks", params.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTask gets an update task
func (c *Client) GetTask(ctx context.Context, appID, taskID string) (*UpdateTask, error) {
	var task UpdateTask
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/update-tasks/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
