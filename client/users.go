package client

import (
	"context"
	"net/http"
)

// CreateUserParams creates a platform user
type CreateUserParams struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Role     string   `json:"role,omitempty"`
	AppIDs   []string `json:"appIds,omitempty"`
}

// UpdateUserParams updates a platform user
type UpdateUserParams struct {
	Name   *string   `json:"name,omitempty"`
	Role   *string   `json:"role,omitempty"`
	Status *string   `json:"status,omitempty"`
	AppIDs *[]string `json:"appIds,omitempty"`
}

// ListUsers lists platform users
func (c *Client) ListUsers(ctx context.Context, params ListParams, role string) (*Page[User], error) {
	query := params.query()
	if role != "" {
		query.Set("role", role)
	}

	var page Page[User]
	if err := c.get(ctx, "/api/users", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateUser creates a platform user
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/api/users", params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to a platform user
func (c *Client) UpdateUser(ctx context.Context, userID string, params UpdateUserParams) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/api/users/"+userID, params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser deletes a platform user
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+userID, nil, nil)
}

// ResetUserPassword sets a new password for a user
func (c *Client) ResetUserPassword(ctx context.Context, userID, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, http.MethodPost, "/api/users/"+userID+"/reset-password", body, nil)
}

// ToggleUserStatus flips a user between active and inactive
func (c *Client) ToggleUserStatus(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/users/"+userID+"/toggle-status", nil, nil)
}
