package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
)

// deviceListPayload augments the standard list shape with population
// stats for the device dashboard.
type deviceListPayload struct {
	Items      []models.Device     `json:"items"`
	Pagination pagination          `json:"pagination"`
	Stats      *models.DeviceStats `json:"stats"`
}

func (s *Server) handleListDevices(c *gin.Context) {
	appID := c.Param("appId")

	opts := store.DeviceListOptions{
		ListOptions: parseListOptions(c),
		Version:     c.Query("version"),
		Platform:    c.Query("platform"),
	}

	devices, total, err := s.devices.List(appID, opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	stats, err := s.devices.Stats(appID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	opts.Normalize()
	base := newPaginated(nil, opts.Page, opts.Limit, total)
	respondOK(c, deviceListPayload{
		Items:      devices,
		Pagination: base.Pagination,
		Stats:      stats,
	})
}

func (s *Server) handleGetDevice(c *gin.Context) {
	device, err := s.devices.GetByID(c.Param("appId"), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, device)
}

func (s *Server) handleSetTargetVersion(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.SetTargetVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if !s.requirePublishedVersion(c, appID, req.VersionID) {
		return
	}
	if err := s.devices.SetTargetVersion(appID, id, req.VersionID); err != nil {
		respondStoreError(c, err)
		return
	}

	device, err := s.devices.GetByID(appID, id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeDevice, "device.set_target_version", id, "device", models.LogStatusSuccess, map[string]any{
		"versionId": req.VersionID,
	})
	respondOK(c, device)
}

// requirePublishedVersion rejects device rollouts against versions
// that are not serving. Only published versions may be pushed.
func (s *Server) requirePublishedVersion(c *gin.Context, appID, versionID string) bool {
	v, err := s.versions.GetByID(appID, versionID)
	if err != nil {
		respondStoreError(c, err)
		return false
	}
	if v.Status != models.VersionStatusPublished {
		respondError(c, http.StatusBadRequest, codeValidation, "target version is not published")
		return false
	}
	return true
}

// enqueueDeviceTask creates a targeted task for a set of devices
func (s *Server) enqueueDeviceTask(c *gin.Context, appID, versionID string, deviceIDs []string, extra map[string]any) (*models.UpdateTask, error) {
	details := map[string]any{"userIds": deviceIDs}
	for k, v := range extra {
		details[k] = v
	}
	return s.tasks.Create(appID, versionID, models.TaskTypeTargeted, c.GetString(ctxUserID), nil, details)
}

func (s *Server) handleUpdateDevice(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.UpdateDeviceVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if _, err := s.devices.GetByID(appID, id); err != nil {
		respondStoreError(c, err)
		return
	}
	if !s.requirePublishedVersion(c, appID, req.VersionID) {
		return
	}

	task, err := s.enqueueDeviceTask(c, appID, req.VersionID, []string{id}, map[string]any{"force": req.Force})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeDevice, "device.update", id, "device", models.LogStatusSuccess, map[string]any{
		"versionId": req.VersionID,
		"taskId":    task.ID,
	})
	respondOK(c, models.TaskAck{TaskID: task.ID, Status: task.Status})
}

func (s *Server) handleBatchUpdateDevices(c *gin.Context) {
	appID := c.Param("appId")

	var req models.BatchUpdateDevicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if !s.requirePublishedVersion(c, appID, req.VersionID) {
		return
	}

	task, err := s.enqueueDeviceTask(c, appID, req.VersionID, req.UserIDs, nil)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeDevice, "device.batch_update", task.ID, "task", models.LogStatusSuccess, map[string]any{
		"versionId": req.VersionID,
		"count":     len(req.UserIDs),
	})
	respondOK(c, models.BatchTaskAck{TaskID: task.ID, AffectedCount: len(req.UserIDs)})
}

func (s *Server) handleRollbackDevice(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.DeviceRollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if _, err := s.devices.GetByID(appID, id); err != nil {
		respondStoreError(c, err)
		return
	}
	if !s.requirePublishedVersion(c, appID, req.ToVersionID) {
		return
	}

	task, err := s.enqueueDeviceTask(c, appID, req.ToVersionID, []string{id}, map[string]any{"reason": req.Reason})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeDevice, "device.rollback", id, "device", models.LogStatusSuccess, map[string]any{
		"toVersionId": req.ToVersionID,
		"reason":      req.Reason,
		"taskId":      task.ID,
	})
	respondOK(c, models.TaskAck{TaskID: task.ID, Status: task.Status})
}
