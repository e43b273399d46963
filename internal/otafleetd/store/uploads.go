package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// UploadStore tracks artifact uploads so a file can be staged once and
// referenced later when a version is created from its URL.
type UploadStore struct {
	db *sql.DB
}

// NewUploadStore creates a new upload store
func NewUploadStore(db *sql.DB) *UploadStore {
	return &UploadStore{db: db}
}

// Create records a completed upload
func (s *UploadStore) Create(fileURL string, fileSize int64, checksum string) (*models.Upload, error) {
	up := &models.Upload{
		ID:            uuid.New().String(),
		FileURL:       fileURL,
		FileSize:      fileSize,
		Checksum:      checksum,
		Status:        models.UploadStatusCompleted,
		UploadedBytes: fileSize,
		TotalBytes:    fileSize,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO uploads (id, file_url, file_size, checksum, status, uploaded_bytes, total_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, up.ID, up.FileURL, up.FileSize, up.Checksum, up.Status, up.UploadedBytes, up.TotalBytes, up.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	return up, nil
}

// GetByID gets an upload by ID
func (s *UploadStore) GetByID(id string) (*models.Upload, error) {
	var up models.Upload
	err := s.db.QueryRow(`
		SELECT id, file_url, file_size, checksum, status, uploaded_bytes, total_bytes, created_at
		FROM uploads WHERE id = ?
	`, id).Scan(&up.ID, &up.FileURL, &up.FileSize, &up.Checksum, &up.Status,
		&up.UploadedBytes, &up.TotalBytes, &up.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &up, nil
}

// GetByURL resolves a staged upload by its file URL
func (s *UploadStore) GetByURL(fileURL string) (*models.Upload, error) {
	var id string
	err := s.db.QueryRow("SELECT id FROM uploads WHERE file_url = ?", fileURL).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload %q: %w", fileURL, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up upload: %w", err)
	}
	return s.GetByID(id)
}
