package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-hub/internal/telemetry"
)

// RegisterDebugRoutes wires operator-only endpoints. GET /debug/hub-snapshot
// returns the hub's current counters and records who asked for them on the
// audit stream.
func RegisterDebugRoutes(router *gin.Engine, source StatsSource, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/hub-snapshot", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
		defer cancel()

		requestID := requestIDFromContext(c)
		info, err := source.ServerInfo(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub unavailable", "request_id": requestID})
			return
		}

		emitter.Emit(c.Request.Context(), telemetry.AuditRecord{
			Level:     "INFO",
			Event:     "debug_snapshot",
			Text:      "hub snapshot requested",
			RequestID: requestID,
			UserID:    userIDFromContext(c),
			Details: map[string]any{
				"active_connections": info.ActiveConnections,
				"online_users":       info.OnlineUsers,
				"registered_users":   info.RegisteredUsers,
				"stored_messages":    info.StoredMessages,
				"typing_users":       info.TypingUsers,
			},
		})
		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"audited":    emitter != nil,
			"snapshot":   info,
		})
	})
}
