package client

import (
	"context"
	"net/http"
)

// CreateGroupParams creates a device group
type CreateGroupParams struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	UserIDs     []string `json:"userIds,omitempty"`
}

// UpdateGroupParams updates a group; a non-nil UserIDs replaces the
// whole membership.
type UpdateGroupParams struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	UserIDs     *[]string `json:"userIds,omitempty"`
}

// ListGroups lists an app's device groups
func (c *Client) ListGroups(ctx context.Context, appID string, params ListParams) (*Page[Group], error) {
	var page Page[Group]
	if err := c.get(ctx, "/api/apps/"+appID+"/user-groups", params.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateGroup creates a device group
func (c *Client) CreateGroup(ctx context.Context, appID string, params CreateGroupParams) (*Group, error) {
	var group Group
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/user-groups", params, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroup gets a group with its membership
func (c *Client) GetGroup(ctx context.Context, appID, groupID string) (*Group, error) {
	var group Group
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/user-groups/"+groupID, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroup applies a partial update to a group
func (c *Client) UpdateGroup(ctx context.Context, appID, groupID string, params UpdateGroupParams) (*Group, error) {
	var group Group
	if err := c.do(ctx, http.MethodPut, "/api/apps/"+appID+"/user-groups/"+groupID, params, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup deletes a group
func (c *Client) DeleteGroup(ctx context.Context, appID, groupID string) error {
	return c.do(ctx, http.MethodDelete, "/api/apps/"+appID+"/user-groups/"+groupID, nil, nil)
}

// AddGroupUsers adds devices to a group
func (c *Client) AddGroupUsers(ctx context.Context, appID, groupID string, deviceIDs []string) (*GroupMembershipResult, error) {
	var result GroupMembershipResult
	body := map[string][]string{"userIds": deviceIDs}
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/user-groups/"+groupID+"/users", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveGroupUsers removes devices from a group
func (c *Client) RemoveGroupUsers(ctx context.Context, appID, groupID string, deviceIDs []string) (*GroupMembershipResult, error) {
	var result GroupMembershipResult
	body := map[string][]string{"userIds": deviceIDs}
	if err := c.do(ctx, http.MethodDelete, "/api/apps/"+appID+"/user-groups/"+groupID+"/users", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
