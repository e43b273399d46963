package client

import (
	"context"
	"net/http"
)

// DeviceListParams extends the shared list parameters with device
// filters.
type DeviceListParams struct {
	ListParams
	Version  string
	Platform string
}

// ListDevices lists an app's devices with population stats
func (c *Client) ListDevices(ctx context.Context, appID string, params DeviceListParams) (*DevicePage, error) {
	query := params.query()
	if params.Version != "" {
		query.Set("version", params.Version)
	}
	if params.Platform != "" {
		query.Set("platform", params.Platform)
	}

	var page DevicePage
	if err := c.get(ctx, "/api/apps/"+appID+"/users", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetDevice gets a device
func (c *Client) GetDevice(ctx context.Context, appID, deviceID string) (*Device, error) {
	var device Device
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/users/"+deviceID, nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// SetDeviceTargetVersion pins a device to a version
func (c *Client) SetDeviceTargetVersion(ctx context.Context, appID, deviceID, versionID string) (*Device, error) {
	var device Device
	body := map[string]string{"versionId": versionID}
	if err := c.do(ctx, http.MethodPut, "/api/apps/"+appID+"/users/"+deviceID+"/target-version", body, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateDevice pushes a version to a single device
func (c *Client) UpdateDevice(ctx context.Context, appID, deviceID, versionID string, force bool) (*TaskAck, error) {
	var ack TaskAck
	body := map[string]any{"versionId": versionID, "force": force}
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/users/"+deviceID+"/update", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// BatchUpdateDevices pushes a version to a set of devices
func (c *Client) BatchUpdateDevices(ctx context.Context, appID string, deviceIDs []string, versionID string) (*BatchTaskAck, error) {
	var ack BatchTaskAck
	body := map[string]any{"userIds": deviceIDs, "versionId": versionID}
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/users/batch-update", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// RollbackDevice rolls a single device back to a prior version
func (c *Client) RollbackDevice(ctx context.Context, appID, deviceID, toVersionID, reason string) (*TaskAck, error) {
	var ack TaskAck
	body := map[string]string{"toVersionId": toVersionID, "reason": reason}
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/users/"+deviceID+"/rollback", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
