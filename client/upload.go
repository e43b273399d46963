package client

import (
	"context"
	"io"
	"net/http"
)

// UploadArtifact stages an artifact without creating a version. The
// returned fileUrl can be passed to CreateVersionByURL later. Guard
// checks run before any bytes are sent.
func (c *Client) UploadArtifact(ctx context.Context, filename string, content io.Reader, size int64) (*Upload, error) {
	if err := ValidateArtifact(filename, size); err != nil {
		return nil, err
	}

	var up Upload
	if err := c.upload(ctx, "/api/upload", filename, content, nil, &up); err != nil {
		return nil, err
	}
	return &up, nil
}

// GetUploadProgress reports the state of a staged upload
func (c *Client) GetUploadProgress(ctx context.Context, uploadID string) (*Upload, error) {
	var up Upload
	if err := c.do(ctx, http.MethodGet, "/api/upload/"+uploadID+"/progress", nil, &up); err != nil {
		return nil, err
	}
	return &up, nil
}
