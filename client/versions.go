package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxArtifactSize caps update package uploads at 100 MB. Enforced
// before any bytes go over the wire; the server applies the same
// limit.
const MaxArtifactSize = 100 * 1024 * 1024

var allowedArtifactExtensions = []string{".tar.gz", ".tgz", ".zip"}

// ValidateArtifact checks a filename and size against the upload
// guards without touching the network.
func ValidateArtifact(filename string, size int64) error {
	lower := strings.ToLower(filename)
	allowed := false
	for _, ext := range allowedArtifactExtensions {
		if strings.HasSuffix(lower, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		return &Error{
			Code: "VALIDATION_ERROR",
			Message: fmt.Sprintf("unsupported file type %q: expected one of %s",
				filename, strings.Join(allowedArtifactExtensions, ", ")),
		}
	}
	if size > MaxArtifactSize {
		return &Error{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("file exceeds %d MB limit", MaxArtifactSize/(1024*1024)),
		}
	}
	return nil
}

// CreateVersionParams is the metadata for a multipart version upload
type CreateVersionParams struct {
	Version        string
	Build          string
	Name           string
	Description    string
	RuntimeVersion string
	IsMandatory    bool
}

// CreateVersionByURLParams creates a version from a hosted artifact
type CreateVersionByURLParams struct {
	Version        string     `json:"version"`
	Build          string     `json:"build"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	RuntimeVersion string     `json:"runtimeVersion,omitempty"`
	IsMandatory    bool       `json:"isMandatory"`
	FileURL        string     `json:"fileUrl"`
	FileSize       int64      `json:"fileSize"`
	Checksum       string     `json:"checksum"`
	PublishTime    string     `json:"publishTime,omitempty"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
}

// PublishVersionParams controls the rollout created by a publish
type PublishVersionParams struct {
	Type           string     `json:"type,omitempty"`
	TargetUserIDs  []string   `json:"targetUserIds,omitempty"`
	TargetGroupIDs []string   `json:"targetGroupIds,omitempty"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
}

// RollbackVersionParams rolls a published version back to a prior one
type RollbackVersionParams struct {
	ToVersionID    string   `json:"toVersionId"`
	Type           string   `json:"type,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	TargetUserIDs  []string `json:"targetUserIds,omitempty"`
	TargetGroupIDs []string `json:"targetGroupIds,omitempty"`
}

// ListVersions lists versions of an app
func (c *Client) ListVersions(ctx context.Context, appID string, params ListParams) (*Page[Version], error) {
	var page Page[Version]
	if err := c.get(ctx, "/api/apps/"+appID+"/versions", params.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateVersion uploads an artifact and creates a draft version. The
// guard checks run before the upload starts.
func (c *Client) CreateVersion(ctx context.Context, appID string, params CreateVersionParams, filename string, content io.Reader, size int64) (*Version, error) {
	if err := ValidateArtifact(filename, size); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"version":     params.Version,
		"build":       params.Build,
		"name":        params.Name,
		"isMandatory": strconv.FormatBool(params.IsMandatory),
	}
	if params.Description != "" {
		fields["description"] = params.Description
	}
	if params.RuntimeVersion != "" {
		fields["runtimeVersion"] = params.RuntimeVersion
	}

	var version Version
	if err := c.upload(ctx, "/api/apps/"+appID+"/versions", filename, content, fields, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// CreateVersionByURL creates a draft version from a hosted artifact
func (c *Client) CreateVersionByURL(ctx context.Context, appID string, params CreateVersionByURLParams) (*Version, error) {
	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/versions/by-url", params, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// GetVersion gets a version
func (c *Client) GetVersion(ctx context.Context, appID, versionID string) (*Version, error) {
	var version Version
	if err := c.do(ctx, http.MethodGet, "/api/apps/"+appID+"/versions/"+versionID, nil, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// DeleteVersion deletes a version subject to the lifecycle rules
func (c *Client) DeleteVersion(ctx context.Context, appID, versionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/apps/"+appID+"/versions/"+versionID, nil, nil)
}

// PublishVersion publishes a draft and enqueues its rollout. The
// returned acknowledgement carries the rollout task ID; the rollout
// itself runs asynchronously.
func (c *Client) PublishVersion(ctx context.Context, appID, versionID string, params PublishVersionParams) (*TaskAck, error) {
	var ack TaskAck
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/versions/"+versionID+"/publish", params, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// RollbackVersion rolls a published version back
func (c *Client) RollbackVersion(ctx context.Context, appID, versionID string, params RollbackVersionParams) (*TaskAck, error) {
	var ack TaskAck
	if err := c.do(ctx, http.MethodPost, "/api/apps/"+appID+"/versions/"+versionID+"/rollback", params, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
