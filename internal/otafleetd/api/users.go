package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/auth"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

func (s *Server) handleListUsers(c *gin.Context) {
	opts := parseListOptions(c)
	users, total, err := s.users.List(opts, c.Query("role"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(users, opts.Page, opts.Limit, total))
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	user, err := s.users.Create(&req, hash)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondCreated(c, user)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	user, err := s.users.Update(c.Param("id"), &req)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, user)
}

// handleDeleteUser removes an account. Self-deletion is rejected so an
// admin cannot lock themselves out.
func (s *Server) handleDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == c.GetString(ctxUserID) {
		respondError(c, http.StatusBadRequest, codeValidation, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}
	respondMessage(c, "user deleted")
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if err := s.users.UpdatePassword(c.Param("id"), hash); err != nil {
		respondStoreError(c, err)
		return
	}
	respondMessage(c, "password reset")
}

func (s *Server) handleToggleStatus(c *gin.Context) {
	id := c.Param("id")
	if id == c.GetString(ctxUserID) {
		respondError(c, http.StatusBadRequest, codeValidation, "cannot disable your own account")
		return
	}

	status, err := s.users.ToggleStatus(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id, "status": status})
}
