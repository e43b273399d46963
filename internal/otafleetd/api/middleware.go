package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// authRequired validates the bearer token and loads the acting user's
// identity into the request context. Inactive accounts are rejected
// even when their token is still valid.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := s.jwt.Parse(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		user, err := s.users.GetByID(claims.UserID)
		if err != nil || user.Status != models.UserStatusActive {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, "account unavailable")
			c.Abort()
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxRole, user.Role)
		c.Next()
	}
}

// writeRequired blocks mutating requests from viewer accounts
func (s *Server) writeRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) == models.RoleViewer {
			respondError(c, http.StatusForbidden, codeForbidden, "viewer accounts are read-only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// adminRequired restricts a route to admin accounts
func (s *Server) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != models.RoleAdmin {
			respondError(c, http.StatusForbidden, codeForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// appScoped verifies the acting user may act on the app named by the
// :appId route parameter. Admin and viewer roles see every app;
// app_manager is limited to its assigned apps.
func (s *Server) appScoped(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		appID := c.Param(param)
		if c.GetString(ctxRole) == models.RoleAppManager {
			user, err := s.users.GetByID(c.GetString(ctxUserID))
			if err != nil {
				respondError(c, http.StatusUnauthorized, codeUnauthorized, "account unavailable")
				c.Abort()
				return
			}
			if !contains(user.AppIDs, appID) {
				respondError(c, http.StatusForbidden, codeForbidden, "app is outside your scope")
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// appScope returns the list of app IDs visible to the acting user,
// or nil for an unscoped role.
func (s *Server) appScope(c *gin.Context) []string {
	if c.GetString(ctxRole) != models.RoleAppManager {
		return nil
	}
	user, err := s.users.GetByID(c.GetString(ctxUserID))
	if err != nil {
		return []string{}
	}
	if user.AppIDs == nil {
		return []string{}
	}
	return user.AppIDs
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
