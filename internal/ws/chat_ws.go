package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chat-hub/internal/observability"
)

// HandlerOptions configures the websocket endpoint.
type HandlerOptions struct {
	AllowedOrigins []string
	SendBuffer     int
	MaxMessageSize int64
	Logger         *slog.Logger
}

// ChatWebSocketHandler upgrades HTTP requests and hands the connection to the hub.
type ChatWebSocketHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	origins  map[string]struct{}
	allowAll bool
	client   ClientOptions
	logger   *slog.Logger
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, opts HandlerOptions) *ChatWebSocketHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &ChatWebSocketHandler{
		hub:     hub,
		origins: make(map[string]struct{}),
		client: ClientOptions{
			SendBuffer:     opts.SendBuffer,
			MaxMessageSize: opts.MaxMessageSize,
			Logger:         logger,
		},
		logger: logger,
	}
	for _, o := range opts.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			h.allowAll = true
			continue
		}
		if n, ok := normalizeOrigin(o); ok {
			h.origins[n] = struct{}{}
		} else if o != "" {
			logger.Warn("ignoring invalid allowed origin", "origin", o)
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Handle upgrades the connection and registers the client.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-hub/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if !h.checkOrigin(c.Request) {
		span.SetAttributes(attribute.String("ws.rejected", "origin"))
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "ip", observability.IPFromRequest(c.Request))
		return
	}

	info := ConnInfo{
		Identity:  observability.IdentityFromRequest(c.Request),
		RequestID: observability.RequestIDFromRequest(c.Request),
		TraceID:   span.SpanContext().TraceID().String(),
	}
	client := NewClient(conn, h.hub, h.client)
	span.SetAttributes(attribute.String("ws.conn_id", client.ID()))
	if !client.Start(info) {
		h.logger.Warn("hub stopped, dropping connection", "conn_id", client.ID())
	}
}

// checkOrigin allows requests without an Origin header (non-browser clients),
// any origin under "*", and otherwise only the configured origins.
func (h *ChatWebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll {
		return true
	}
	n, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, allowed := h.origins[n]
	return allowed
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
