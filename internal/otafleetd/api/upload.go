package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/storage"
)

// handleUpload stages an artifact without creating a version. The
// returned fileUrl can be passed to the create-by-url endpoint later.
func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "file is required")
		return
	}
	defer file.Close()

	if err := storage.ValidateArtifact(header.Filename, header.Size); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	key := fmt.Sprintf("staged/%s/%s", uuid.New().String(), path.Base(header.Filename))
	hasher := sha256.New()
	if err := s.backend.Save(c.Request.Context(), key, io.TeeReader(file, hasher), header.Size); err != nil {
		respondStoreError(c, err)
		return
	}

	up, err := s.uploads.Create(storage.KeyToURL(key), header.Size, hex.EncodeToString(hasher.Sum(nil)))
	if err != nil {
		s.backend.Delete(c.Request.Context(), key)
		respondStoreError(c, err)
		return
	}

	respondCreated(c, up)
}

// handleUploadProgress reports upload state by ID. Uploads are written
// synchronously, so a known ID always reads as completed; the endpoint
// exists for clients that poll after a disconnect.
func (s *Server) handleUploadProgress(c *gin.Context) {
	up, err := s.uploads.GetByID(c.Param("uploadId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, up)
}

// handleDownload serves a stored artifact. The route is authenticated;
// artifact URLs are not public.
func (s *Server) handleDownload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" || strings.Contains(key, "..") {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid path")
		return
	}

	r, size, err := s.backend.Open(c.Request.Context(), key)
	if err != nil {
		respondError(c, http.StatusNotFound, codeNotFound, "artifact not found")
		return
	}
	defer r.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	}
	c.DataFromReader(http.StatusOK, size, "application/octet-stream", r, headers)
}
