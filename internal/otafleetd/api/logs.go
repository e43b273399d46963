package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otafleet/otafleet/internal/otafleetd/models"
	"github.com/otafleet/otafleet/internal/otafleetd/store"
	"github.com/xuri/excelize/v2"
)

func (s *Server) parseLogOptions(c *gin.Context) store.LogListOptions {
	return store.LogListOptions{
		ListOptions: parseListOptions(c),
		Type:        c.Query("type"),
		UserID:      c.Query("userId"),
		StartDate:   parseDate(c.Query("startDate")),
		EndDate:     parseDate(c.Query("endDate")),
	}
}

func (s *Server) handleListLogs(c *gin.Context) {
	opts := s.parseLogOptions(c)
	logs, total, err := s.logs.List(c.Param("appId"), opts)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	opts.Normalize()
	respondOK(c, newPaginated(logs, opts.Page, opts.Limit, total))
}

func (s *Server) handleGetLog(c *gin.Context) {
	entry, err := s.logs.GetByID(c.Param("appId"), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respondOK(c, entry)
}

var logExportHeader = []string{"ID", "Type", "Action", "Target", "Status", "User", "Details", "Created At"}

func logExportRow(l *models.Log) []string {
	target := ""
	if l.TargetID != nil {
		target = *l.TargetID
	}
	user := l.UserID
	if l.User != nil {
		user = l.User.Name
	}
	details := ""
	if len(l.Details) > 0 {
		if data, err := json.Marshal(l.Details); err == nil {
			details = string(data)
		}
	}
	return []string{
		l.ID, l.Type, l.Action, target, l.Status, user, details,
		l.CreatedAt.Format(time.RFC3339),
	}
}

// handleExportLogs streams the filtered audit trail as a CSV or XLSX
// attachment. Unlike the JSON endpoints, the body is raw bytes.
func (s *Server) handleExportLogs(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		respondError(c, http.StatusBadRequest, codeValidation, "format must be csv or xlsx")
		return
	}

	logs, err := s.logs.ListAll(c.Param("appId"), s.parseLogOptions(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	filename := fmt.Sprintf("logs-%s.%s", time.Now().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		w := csv.NewWriter(c.Writer)
		w.Write(logExportHeader)
		for i := range logs {
			w.Write(logExportRow(&logs[i]))
		}
		w.Flush()
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Logs"
	f.SetSheetName("Sheet1", sheet)
	for col, title := range logExportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}
	for row, l := range logs {
		for col, value := range logExportRow(&l) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to write export")
	}
}
