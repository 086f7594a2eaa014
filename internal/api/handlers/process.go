package handlers

import (
	"errors"
	"net/http"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// ProcessHandler starts runs and reports on past ones
type ProcessHandler struct {
	process  *services.ProcessService
	validate *validatorv10.Validate
}

// NewProcessHandler creates a new ProcessHandler instance
func NewProcessHandler(process *services.ProcessService, validate *validatorv10.Validate) *ProcessHandler {
	return &ProcessHandler{
		process:  process,
		validate: validate,
	}
}

// Run executes a process run for the logged in operator
// POST /api/process
func (h *ProcessHandler) Run(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	h.run(c, models.TriggerAPI, userID)
}

// Trigger executes a process run for machine callers holding the API key
// POST /api/trigger/process
func (h *ProcessHandler) Trigger(c *gin.Context) {
	h.run(c, models.TriggerAPIKey, 0)
}

func (h *ProcessHandler) run(c *gin.Context, trigger string, userID uint) {
	var req validation.ProcessRequest
	if err := validation.BindOptional(c, &req, h.validate); err != nil {
		return
	}

	summary, err := h.process.Run(c.Request.Context(), services.RunOptions{
		Action:  services.RunAction(req.Action),
		Trigger: trigger,
		UserID:  userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProcessBusy):
			respondError(c, http.StatusConflict, CodeProcessBusy, "Process already running")
		case errors.Is(err, services.ErrUnknownAction):
			respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
		case errors.Is(err, booking.ErrStoreUnavailable):
			respondError(c, http.StatusServiceUnavailable, CodeStoreUnavailable, err.Error())
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    CodeInternal,
					"message": err.Error(),
				},
				"data": summary,
			})
		}
		return
	}

	respondOK(c, summary)
}

// Runs lists recent process runs
// GET /api/process/runs
func (h *ProcessHandler) Runs(c *gin.Context) {
	runs, err := h.process.RecentRuns(queryLimit(c, 20, 200))
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to load runs")
		return
	}
	respondOK(c, runs)
}

// Replies lists recorded replies, optionally filtered by category
// GET /api/replies
func (h *ProcessHandler) Replies(c *gin.Context) {
	replies, err := h.process.Replies(c.Query("category"), queryLimit(c, 50, 500))
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to load replies")
		return
	}
	respondOK(c, replies)
}
