package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
)

// parseListOptions reads the shared list query parameters. Values are
// clamped by ListOptions.Normalize in the store layer.
func parseListOptions(c *gin.Context) store.ListOptions {
	opts := store.ListOptions{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Sort:   c.Query("sortBy"),
		Order:  c.Query("sortOrder"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		opts.Limit = limit
	}
	return opts
}

// parseDate parses a YYYY-MM-DD query value. Invalid input reads as
// the zero time, meaning unbounded.
func parseDate(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// audit appends an audit trail entry for a mutating operation. Trail
// failures are logged by the store caller but never fail the request.
func (s *Server) audit(c *gin.Context, appID, logType, action string, targetID, targetType string, status string, details map[string]any) {
	entry := &models.Log{
		Type:    logType,
		Action:  action,
		Status:  status,
		Details: details,
		UserID:  c.GetString(ctxUserID),
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if targetType != "" {
		entry.TargetType = &targetType
	}
	s.logs.Append(appID, entry)
}
