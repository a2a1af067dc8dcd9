package ws

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
	"chat-hub/internal/repositories"
	"chat-hub/internal/telemetry"
)

// ErrHubStopped is returned by queries made after the hub has shut down.
var ErrHubStopped = errors.New("hub stopped")

// Options configures a Hub. Zero values fall back to the defaults below.
type Options struct {
	HistoryCap    int
	HistoryReplay int
	ReplayPace    time.Duration
	TypingTimeout time.Duration
	OfflineGrace  time.Duration
	QueueSize     int

	Logger  *slog.Logger
	Clock   func() time.Time
	Archive *repositories.ArchiveWriter
	Audit   *telemetry.AuditEmitter
}

func (o Options) withDefaults() Options {
	if o.HistoryCap <= 0 {
		o.HistoryCap = repositories.DefaultHistoryCap
	}
	if o.HistoryReplay <= 0 {
		o.HistoryReplay = 50
	}
	if o.ReplayPace < 0 {
		o.ReplayPace = 0
	}
	if o.TypingTimeout <= 0 {
		o.TypingTimeout = 30 * time.Second
	}
	if o.OfflineGrace <= 0 {
		o.OfflineGrace = time.Hour
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = systemNow
	}
	return o
}

type connection struct {
	conn   Conn
	info   ConnInfo
	userID string
	// closed is set once the hub gave up on the connection; it stays in
	// conns until the read pump reports Disconnected.
	closed bool
}

// Hub owns all chat state. Every mutation happens on the goroutine running
// Run; other goroutines talk to it only through Post, TryPost and ServerInfo.
type Hub struct {
	users    *repositories.UserRegistry
	messages *repositories.MessageStore
	typing   *repositories.TypingTracker
	stats    models.RoomStats
	conns    map[string]*connection

	events  chan Event
	stopped chan struct{}

	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewHub creates a hub. Call Run to start processing events.
func NewHub(opts Options) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		users:    repositories.NewUserRegistry(),
		messages: repositories.NewMessageStore(opts.HistoryCap),
		typing:   repositories.NewTypingTracker(),
		conns:    make(map[string]*connection),
		events:   make(chan Event, opts.QueueSize),
		stopped:  make(chan struct{}),
		opts:     opts,
		logger:   opts.Logger.With("component", "hub"),
		now:      opts.Clock,
	}
	h.stats.ServerStartedAt = h.now()

	if opts.Archive != nil {
		opts.Archive.OnResult(func(msg models.Message, err error) {
			h.TryPost(ArchiveResult{MessageID: msg.ID, Err: err})
		})
	}
	return h
}

// Run processes events until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	h.logger.Info("hub started", "history_cap", h.opts.HistoryCap, "typing_timeout", h.opts.TypingTimeout, "offline_grace", h.opts.OfflineGrace)

	for {
		select {
		case <-ctx.Done():
			h.shutdownConnections()
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.stopped
}

// Post queues ev, waiting for room in the queue. It reports false once the
// hub has stopped.
func (h *Hub) Post(ev Event) bool {
	select {
	case <-h.stopped:
		return false
	default:
	}
	select {
	case h.events <- ev:
		return true
	case <-h.stopped:
		return false
	}
}

// TryPost queues ev only if the queue has room.
func (h *Hub) TryPost(ev Event) bool {
	select {
	case <-h.stopped:
		return false
	case h.events <- ev:
		return true
	default:
		return false
	}
}

// ServerInfo asks the hub goroutine for a consistent snapshot of its counters.
func (h *Hub) ServerInfo(ctx context.Context) (models.ServerInfo, error) {
	req := infoRequest{reply: make(chan models.ServerInfo, 1)}
	select {
	case h.events <- req:
	case <-h.stopped:
		return models.ServerInfo{}, ErrHubStopped
	case <-ctx.Done():
		return models.ServerInfo{}, ctx.Err()
	}

	select {
	case info := <-req.reply:
		return info, nil
	case <-h.stopped:
		return models.ServerInfo{}, ErrHubStopped
	case <-ctx.Done():
		return models.ServerInfo{}, ctx.Err()
	}
}

func (h *Hub) serverInfo() models.ServerInfo {
	now := h.now()
	return models.ServerInfo{
		RoomStats:         h.stats,
		RegisteredUsers:   h.users.Len(),
		OnlineUsers:       h.users.OnlineCount(),
		ActiveConnections: len(h.conns),
		StoredMessages:    h.messages.Len(),
		TypingUsers:       h.typing.Len(),
		UptimeSeconds:     now.Sub(h.stats.ServerStartedAt).Seconds(),
	}
}

// sendTo delivers one event to a single connection.
func (h *Hub) sendTo(connID, eventType string, data any) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		h.logger.Error("encode event failed", "event", eventType, "error", err)
		return
	}
	h.deliver(c, payload)
}

// broadcast delivers one event to every connection except exceptConnID.
func (h *Hub) broadcast(eventType string, data any, exceptConnID string) {
	payload, err := encodeEvent(eventType, data)
	if err != nil {
		h.logger.Error("encode event failed", "event", eventType, "error", err)
		return
	}
	for id, c := range h.conns {
		if id == exceptConnID {
			continue
		}
		h.deliver(c, payload)
	}
}

func (h *Hub) broadcastUsersList() {
	h.broadcast(models.EventUsersList, h.users.Snapshot(), "")
}

// deliver hands payload to the connection. A connection that cannot keep up
// is closed once and skipped afterwards; its read pump then reports the
// disconnect.
func (h *Hub) deliver(c *connection, payload []byte) {
	if c.closed {
		return
	}
	if c.conn.Send(payload) {
		return
	}
	c.closed = true
	observability.IncDroppedSend()
	h.logger.Warn("send buffer full, closing connection", "conn_id", c.info.ConnID, "user_id", c.userID)
	c.conn.Close()
}

func (h *Hub) refreshGauges() {
	observability.SetStoreSizes(h.users.Len(), h.users.OnlineCount(), h.messages.Len(), h.typing.Len())
}

func (h *Hub) notify(connID, text string, severity models.Severity) {
	h.sendTo(connID, models.EventNotification, notification(text, severity))
}

func (h *Hub) shutdownConnections() {
	h.logger.Info("shutting down hub", "connections", len(h.conns))
	for _, c := range h.conns {
		c.closed = true
		c.conn.Close()
	}
}

func (h *Hub) publish(routingKey, eventType, eventName string, payload map[string]interface{}, info ConnInfo) {
	_ = observability.PublishEvent(context.Background(), routingKey, observability.EventEnvelope{
		EventType: eventType,
		EventName: eventName,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func systemNow() time.Time {
	return time.Now().UTC()
}
