package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/auth"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
)

// loginFailedMessage is deliberately generic so responses do not
// reveal whether an email is registered.
const loginFailedMessage = "login failed: check your email and password"

func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	user, err := s.users.GetByEmail(req.Email)
	if err != nil || user.Status != models.UserStatusActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, loginFailedMessage)
		return
	}

	accessToken, err := s.jwt.Generate(user.ID, user.Role)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	refreshTTL := s.cfg.Auth.RefreshTokenTTL
	if req.RememberMe {
		refreshTTL = s.cfg.Auth.RememberMeTTL
	}
	refreshToken, err := s.tokens.Issue(user.ID, refreshTTL)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	s.users.TouchLastLogin(user.ID)

	respondOK(c, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwt.TTL().Seconds()),
		User:         user,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	userID, err := s.tokens.Redeem(req.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.users.GetByID(userID)
	if err != nil || user.Status != models.UserStatusActive {
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "account unavailable")
		return
	}

	accessToken, err := s.jwt.Generate(user.ID, user.Role)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respondOK(c, models.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
	})
}

// handleLogout revokes the presented refresh token. Always succeeds:
// logout with a stale or missing token still leaves the client logged
// out.
func (s *Server) handleLogout(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		s.tokens.Revoke(req.RefreshToken)
	}
	respondMessage(c, "logged out")
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.users.GetByID(c.GetString(ctxUserID))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, user)
}
