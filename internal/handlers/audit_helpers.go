package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-hub/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader(middleware.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

// userIDFromContext returns the chat user id asserted by the caller, if any.
func userIDFromContext(c *gin.Context) *string {
	userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
	if userID == "" {
		return nil
	}
	return &userID
}
