package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func (s *Server) handleListGroups(c *gin.Context) {
	opts := parseListOptions(c)
	groups, total, err := s.groups.List(c.Param("appId"), opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(groups, opts.Page, opts.Limit, total))
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	appID := c.Param("appId")

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	group, err := s.groups.Create(appID, &req, c.GetString(ctxUserID))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeGroup, "group.create", group.ID, "group", models.LogStatusSuccess, map[string]any{
		"name":      group.Name,
		"userCount": group.UserCount,
	})
	respondCreated(c, group)
}

func (s *Server) handleGetGroup(c *gin.Context) {
	group, err := s.groups.GetByID(c.Param("appId"), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, group)
}

func (s *Server) handleUpdateGroup(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	group, err := s.groups.Update(appID, id, &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeGroup, "group.update", id, "group", models.LogStatusSuccess, nil)
	respondOK(c, group)
}

func (s *Server) handleDeleteGroup(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	if err := s.groups.Delete(appID, id); err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeGroup, "group.delete", id, "group", models.LogStatusSuccess, nil)
	respondMessage(c, "group deleted")
}

func (s *Server) handleAddGroupUsers(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.GroupUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	added, userCount, err := s.groups.AddMembers(appID, id, req.UserIDs)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeGroup, "group.add_users", id, "group", models.LogStatusSuccess, map[string]any{
		"addedCount": added,
	})
	respondOK(c, models.GroupMembershipResult{AddedCount: added, UserCount: userCount})
}

func (s *Server) handleRemoveGroupUsers(c *gin.Context) {
	appID, id := c.Param("appId"), c.Param("id")

	var req models.GroupUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	removed, userCount, err := s.groups.RemoveMembers(appID, id, req.UserIDs)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.audit(c, appID, models.LogTypeGroup, "group.remove_users", id, "group", models.LogStatusSuccess, map[string]any{
		"removedCount": removed,
	})
	respondOK(c, models.GroupMembershipResult{RemovedCount: removed, UserCount: userCount})
}
