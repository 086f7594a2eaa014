package middleware

import (
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and records it in the audit log
// once the handler chain has finished.
func RequestLogger(logService *services.LogService) gin.HandlerFunc {
	log := logger.WithModule("api")

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		elapsed := time.Since(start)
		userID, _ := GetUserIDFromContext(c)
		status := c.Writer.Status()

		log.WithField("request_id", requestID).Debugf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, status, elapsed)

		if logService != nil {
			logService.LogAPIRequest(userID, requestID, c.Request.Method, c.FullPath(),
				status, elapsed.Milliseconds(), c.ClientIP(), c.Request.UserAgent())
		}
	}
}

// GetRequestID returns the id assigned by RequestLogger
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
