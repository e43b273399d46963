package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func (s *Server) handleListApps(c *gin.Context) {
	opts := parseListOptions(c)
	apps, total, err := s.apps.List(opts, s.appScope(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(apps, opts.Page, opts.Limit, total))
}

func (s *Server) handleCreateApp(c *gin.Context) {
	var req models.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	app, err := s.apps.Create(&req, c.GetString(ctxUserID))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, app.ID, models.LogTypeApp, "app.create", app.ID, "app", models.LogStatusSuccess, map[string]any{
		"name":  app.Name,
		"appId": app.AppID,
	})
	respondCreated(c, app)
}

func (s *Server) handleGetApp(c *gin.Context) {
	app, err := s.apps.GetByID(c.Param("appId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, app)
}

func (s *Server) handleUpdateApp(c *gin.Context) {
	var req models.UpdateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	app, err := s.apps.Update(c.Param("appId"), &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, app.ID, models.LogTypeApp, "app.update", app.ID, "app", models.LogStatusSuccess, nil)
	respondOK(c, app)
}

func (s *Server) handleDeleteApp(c *gin.Context) {
	id := c.Param("appId")
	if err := s.apps.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}

	// No audit row here: log rows are keyed to the app and cascade
	// away with it, so the entry could never be read back.
	respondMessage(c, "app deleted")
}

func (s *Server) handleSetCurrentVersion(c *gin.Context) {
	var req models.SetCurrentVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	appID := c.Param("appId")
	if err := s.apps.SetCurrentVersion(appID, req.VersionID); err != nil {
		respondStoreError(c, err)
		return
	}

	app, err := s.apps.GetByID(appID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeApp, "app.set_current_version", req.VersionID, "version", models.LogStatusSuccess, nil)
	respondOK(c, app)
}
