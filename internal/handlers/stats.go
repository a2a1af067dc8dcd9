package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-hub/internal/models"
)

const statsTimeout = 2 * time.Second

// StatsSource answers read-only questions about the hub.
type StatsSource interface {
	ServerInfo(ctx context.Context) (models.ServerInfo, error)
}

// ArchiveCounter reports how many messages the durable archive holds.
type ArchiveCounter interface {
	CountMessages(ctx context.Context) (int, error)
}

// StatsHandler serves the stats and health endpoints.
type StatsHandler struct {
	source  StatsSource
	archive ArchiveCounter
}

// NewStatsHandler builds a StatsHandler. archive may be nil.
func NewStatsHandler(source StatsSource, archive ArchiveCounter) *StatsHandler {
	return &StatsHandler{source: source, archive: archive}
}

// Stats returns the hub counters and store sizes.
func (h *StatsHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	info, err := h.source.ServerInfo(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub unavailable"})
		return
	}

	type statsResponse struct {
		models.ServerInfo
		ArchivedMessages *int `json:"archivedMessages,omitempty"`
	}
	resp := statsResponse{ServerInfo: info}

	if h.archive != nil {
		count, err := h.archive.CountMessages(ctx)
		if err == nil {
			resp.ArchivedMessages = &count
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Health reports process liveness.
func (h *StatsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	info, err := h.source.ServerInfo(ctx)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		c.JSON(status, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime_seconds": info.UptimeSeconds})
}
