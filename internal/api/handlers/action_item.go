package handlers

import (
	"errors"
	"net/http"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// ActionItemHandler exposes the per-booking activity trail
type ActionItemHandler struct {
	actions    *services.ActionItemService
	logService *services.LogService
	validate   *validatorv10.Validate
}

// NewActionItemHandler creates a new ActionItemHandler instance
func NewActionItemHandler(actions *services.ActionItemService, logService *services.LogService, validate *validatorv10.Validate) *ActionItemHandler {
	return &ActionItemHandler{
		actions:    actions,
		logService: logService,
		validate:   validate,
	}
}

// ByBooking returns a booking's items, oldest first
// GET /api/action-items/booking/:booking_id
func (h *ActionItemHandler) ByBooking(c *gin.Context) {
	bookingID := c.Param("booking_id")
	items, err := h.actions.ByBooking(bookingID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to load action items")
		return
	}
	respondOK(c, gin.H{
		"booking_id":   bookingID,
		"total":        len(items),
		"action_items": items,
	})
}

// Recent returns the newest items across bookings
// GET /api/action-items/recent
func (h *ActionItemHandler) Recent(c *gin.Context) {
	items, err := h.actions.Recent(queryLimit(c, services.DefaultRecentActionItems, 500))
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to load action items")
		return
	}
	respondOK(c, gin.H{
		"total":        len(items),
		"action_items": items,
	})
}

// Add records an item performed by the caller
// POST /api/action-items/add
func (h *ActionItemHandler) Add(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	username, _ := middleware.GetUsernameFromContext(c)

	var req validation.AddActionItemRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	item, err := h.actions.Add(req.BookingID, models.ActionType(req.ActionType), req.Description, username, req.Metadata)
	if err != nil {
		if errors.Is(err, services.ErrInvalidActionItem) {
			respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to add action item")
		return
	}

	h.logService.LogInfo(userID, models.LogModuleAction, "add", "Action item added", map[string]interface{}{
		"action_id":   item.ID,
		"booking_id":  item.BookingID,
		"action_type": item.ActionType,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// Delete removes an item
// DELETE /api/action-items/:action_id
func (h *ActionItemHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	actionID := c.Param("action_id")
	if err := h.actions.Delete(actionID); err != nil {
		if errors.Is(err, services.ErrActionItemNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "Action item not found")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeInternal, "Failed to delete action item")
		return
	}

	h.logService.LogInfo(userID, models.LogModuleAction, "delete", "Action item deleted", map[string]interface{}{
		"action_id": actionID,
	})

	respondOK(c, gin.H{"message": "Action item deleted", "action_id": actionID})
}
