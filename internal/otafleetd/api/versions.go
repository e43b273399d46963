package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/storage"
)

func (s *Server) handleListVersions(c *gin.Context) {
	opts := parseListOptions(c)
	versions, total, err := s.versions.List(c.Param("appId"), opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(versions, opts.Page, opts.Limit, total))
}

// handleCreateVersion creates a draft version from a multipart upload.
// The artifact is streamed to storage while its sha256 is computed, so
// the recorded checksum always matches the stored bytes.
func (s *Server) handleCreateVersion(c *gin.Context) {
	appID := c.Param("appId")

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

	version := c.PostForm("version")
	build := c.PostForm("build")
	name := c.PostForm("name")
	if version == "" || build == "" || name == "" {
		respondError(c, http.StatusBadRequest, codeValidation, "version, build and name are required")
		return
	}

	key := fmt.Sprintf("apps/%s/%s/%s", appID, uuid.New().String(), path.Base(header.Filename))
	hasher := sha256.New()
	if err := s.backend.Save(c.Request.Context(), key, io.TeeReader(file, hasher), header.Size); err != nil {
		respondStoreError(c, err)
		return
	}

	v := &models.Version{
		AppID:       appID,
		Version:     version,
		Build:       build,
		Name:        name,
		FileURL:     storage.KeyToURL(key),
		FileSize:    header.Size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
		IsMandatory: parseBool(c.PostForm("isMandatory")),
	}
	if desc := c.PostForm("description"); desc != "" {
		v.Description = &desc
	}
	if rv := c.PostForm("runtimeVersion"); rv != "" {
		v.RuntimeVersion = &rv
	}

	created, err := s.versions.Create(v)
	if err != nil {
		s.backend.Delete(c.Request.Context(), key)
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeVersion, "version.create", created.ID, "version", models.LogStatusSuccess, map[string]any{
		"version": created.Version,
		"build":   created.Build,
	})
	respondCreated(c, created)
}

// handleCreateVersionByURL creates a draft version from an already
// hosted artifact, either an external URL or a staged upload. When
// publishTime is set the version is published in the same request.
func (s *Server) handleCreateVersionByURL(c *gin.Context) {
	appID := c.Param("appId")

	var req models.CreateVersionByURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if req.FileSize > storage.MaxArtifactSize {
		respondError(c, http.StatusBadRequest, codeValidation,
			fmt.Sprintf("file exceeds %d MB limit", storage.MaxArtifactSize/(1024*1024)))
		return
	}

	v := &models.Version{
		AppID:       appID,
		Version:     req.Version,
		Build:       req.Build,
		Name:        req.Name,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
		Checksum:    req.Checksum,
		IsMandatory: req.IsMandatory,
	}
	if req.Description != "" {
		v.Description = &req.Description
	}
	if req.RuntimeVersion != "" {
		v.RuntimeVersion = &req.RuntimeVersion
	}

	created, err := s.versions.Create(v)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeVersion, "version.create_by_url", created.ID, "version", models.LogStatusSuccess, map[string]any{
		"version": created.Version,
		"build":   created.Build,
	})

	if req.PublishTime == "" {
		respondCreated(c, created)
		return
	}

	var scheduledAt *time.Time
	if req.PublishTime == "scheduled" {
		if req.ScheduledAt == nil {
			respondError(c, http.StatusBadRequest, codeValidation, "scheduledAt is required for scheduled publish")
			return
		}
		scheduledAt = req.ScheduledAt
	}

	published, _, err := s.publishVersion(c, appID, created.ID, &models.PublishVersionRequest{
		Type:        models.TaskTypeFull,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondCreated(c, published)
}

func (s *Server) handleGetVersion(c *gin.Context) {
	v, err := s.versions.GetByID(c.Param("appId"), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, v)
}

func (s *Server) handleDeleteVersion(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	v, err := s.versions.GetByID(appID, id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if err := s.versions.Delete(appID, id); err != nil {
		respondStoreError(c, err)
		return
	}

	// Stored artifacts are only reclaimed for local uploads; external
	// URLs are not ours to delete.
	if key, err := storage.URLToKey(v.FileURL); err == nil {
		s.backend.Delete(c.Request.Context(), key)
	}

	s.audit(c, appID, models.LogTypeVersion, "version.delete", id, "version", models.LogStatusSuccess, map[string]any{
		"version": v.Version,
		"build":   v.Build,
	})
	respondMessage(c, "version deleted")
}

// publishVersion runs the publish flow shared by the publish endpoint
// and create-by-url: enqueue the rollout task, flip the version to
// published and make it the app's current version.
func (s *Server) publishVersion(c *gin.Context, appID, id string, req *models.PublishVersionRequest) (*models.Version, *models.UpdateTask, error) {
	taskType := req.Type
	if taskType == "" {
		taskType = models.TaskTypeFull
	}

	details := map[string]any{}
	if taskType == models.TaskTypeTargeted {
		details["userIds"] = req.TargetUserIDs
		details["groupIds"] = req.TargetGroupIDs
	}

	task, err := s.tasks.Create(appID, id, taskType, c.GetString(ctxUserID), req.ScheduledAt, details)
	if err != nil {
		return nil, nil, err
	}

	v, err := s.versions.Publish(appID, id, c.GetString(ctxUserID), task.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.apps.SetCurrentVersion(appID, id); err != nil {
		return nil, nil, err
	}
	return v, task, nil
}

func (s *Server) handlePublishVersion(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.PublishVersionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
	}

	v, task, err := s.publishVersion(c, appID, id, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeVersion, "version.publish", id, "version", models.LogStatusSuccess, map[string]any{
		"version": v.Version,
		"type":    task.Type,
		"taskId":  task.ID,
	})
	respondOK(c, models.TaskAck{TaskID: task.ID, Status: task.Status})
}

// handleRollbackVersion rolls the published version back and pushes a
// prior published version out in its place.
func (s *Server) handleRollbackVersion(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.RollbackVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	target, err := s.versions.GetByID(appID, req.ToVersionID)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if target.Status != models.VersionStatusPublished {
		respondError(c, http.StatusBadRequest, codeValidation, "rollback target must be a published version")
		return
	}

	taskType := req.Type
	if taskType == "" {
		taskType = models.TaskTypeFull
	}
	details := map[string]any{"reason": req.Reason, "rolledBackFrom": id}
	if taskType == models.TaskTypeTargeted {
		details["userIds"] = req.TargetUserIDs
		details["groupIds"] = req.TargetGroupIDs
	}

	task, err := s.tasks.Create(appID, req.ToVersionID, taskType, c.GetString(ctxUserID), nil, details)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if _, err := s.versions.RollBack(appID, id, task.ID); err != nil {
		respondStoreError(c, err)
		return
	}
	if err := s.apps.SetCurrentVersion(appID, req.ToVersionID); err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeVersion, "version.rollback", id, "version", models.LogStatusSuccess, map[string]any{
		"toVersionId": req.ToVersionID,
		"toVersion":   target.Version,
		"reason":      req.Reason,
		"taskId":      task.ID,
	})
	respondOK(c, models.TaskAck{TaskID: task.ID, Status: task.Status})
}

// parseBool mirrors strconv for form values where "1" and "true" both
// mean true.
func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
