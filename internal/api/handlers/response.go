package handlers

import (
	"net/http"
	"strconv"

	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// Error codes
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeProcessBusy      = "PROCESS_BUSY"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, CodeAuthFailed, "User not authenticated")
	}
	return userID, ok
}

// queryLimit parses the limit query parameter, falling back to def and
// capping at max
func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
