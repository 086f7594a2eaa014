package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
)

// LogHandler serves the audit log
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// QueryLogs filters the audit log
// GET /api/logs?level=&module=&action=&start=&end=&page=&limit=
func (h *LogHandler) QueryLogs(c *gin.Context) {
	query := services.LogQuery{
		Level:  strings.ToUpper(c.Query("level")),
		Module: c.Query("module"),
		Action: c.Query("action"),
		Limit:  queryLimit(c, 50, 500),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if uid, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		query.UserID = uint(uid)
	}

	for param, dst := range map[string]**time.Time{"start": &query.StartTime, "end": &query.EndTime} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, CodeValidation, param+" must be an RFC 3339 timestamp")
			return
		}
		*dst = &t
	}

	result, err := h.logService.QueryLogs(query)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to query logs")
		return
	}

	respondOK(c, gin.H{
		"total": result.Total,
		"logs":  result.Logs,
	})
}

// Recent returns the newest audit rows, optionally for one module, together
// with the level the audit log is filtered at
// GET /api/logs/recent?module=&limit=
func (h *LogHandler) Recent(c *gin.Context) {
	limit := queryLimit(c, 100, 500)

	var (
		logs []models.Log
		err  error
	)
	if module := c.Query("module"); module != "" {
		logs, err = h.logService.GetLogsByModule(models.LogModule(module), limit)
	} else {
		logs, err = h.logService.GetRecentLogs(limit)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to query logs")
		return
	}

	respondOK(c, gin.H{
		"level": h.logService.GetLogLevel(),
		"logs":  logs,
	})
}
