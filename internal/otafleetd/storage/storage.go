package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// MaxArtifactSize caps update package uploads at 100 MB.
const MaxArtifactSize = 100 * 1024 * 1024

var allowedExtensions = []string{".tar.gz", ".tgz", ".zip"}

// Backend stores and serves update package artifacts. Keys are
// slash-separated relative paths; the public URL for a key is
// "/uploads/" + key.
type Backend interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
}

// ValidateArtifact checks an upload against the filename and size
// limits before any bytes are stored.
func ValidateArtifact(filename string, size int64) error {
	if !AllowedExtension(filename) {
		return fmt.Errorf("unsupported file type %q: expected one of %s",
			filename, strings.Join(allowedExtensions, ", "))
	}
	if size > MaxArtifactSize {
		return fmt.Errorf("file exceeds %d MB limit", MaxArtifactSize/(1024*1024))
	}
	return nil
}

// AllowedExtension reports whether a filename carries a supported
// package extension.
func AllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// URLToKey converts a public file URL back to a storage key. Returns
// an error for URLs outside the uploads namespace.
func URLToKey(fileURL string) (string, error) {
	key, ok := strings.CutPrefix(fileURL, "/uploads/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid file url %q", fileURL)
	}
	return key, nil
}

// KeyToURL converts a storage key to its public URL
func KeyToURL(key string) string {
	return "/uploads/" + key
}
