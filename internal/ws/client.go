package ws

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ClientOptions tunes a single websocket client.
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	Logger         *slog.Logger
}

// Client pumps frames between one websocket connection and the hub.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	maxMessageSize int64
	logger         *slog.Logger

	mu        sync.Mutex
	replaying bool
	deferred  [][]byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient wraps conn. Call Start to register it with the hub.
func NewClient(conn *websocket.Conn, hub *Hub, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 64 * 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	id := newConnID()
	return &Client{
		id:             id,
		conn:           conn,
		hub:            hub,
		send:           make(chan []byte, opts.SendBuffer),
		maxMessageSize: opts.MaxMessageSize,
		logger:         opts.Logger.With("conn_id", id),
		closed:         make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Start registers the client and runs its pumps. Registration is queued
// before the read pump starts, so the hub sees Connected before any frame.
func (c *Client) Start(info ConnInfo) bool {
	info.ConnID = c.id
	if !c.hub.Post(Connected{Conn: c, Info: info}) {
		c.Close()
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

// Send queues payload for the write pump. It never blocks.
func (c *Client) Send(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replaying {
		if len(c.deferred) >= cap(c.send) {
			return false
		}
		c.deferred = append(c.deferred, payload)
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Replay writes payloads pace apart, then releases anything Sent meanwhile.
func (c *Client) Replay(payloads [][]byte, pace time.Duration) {
	c.mu.Lock()
	if c.replaying {
		c.deferred = append(c.deferred, payloads...)
		c.mu.Unlock()
		return
	}
	c.replaying = true
	c.mu.Unlock()

	go c.replay(payloads, pace)
}

func (c *Client) replay(payloads [][]byte, pace time.Duration) {
	var tick <-chan time.Time
	if pace > 0 {
		t := time.NewTicker(pace)
		defer t.Stop()
		tick = t.C
	}

	for i, p := range payloads {
		if i > 0 && tick != nil {
			select {
			case <-tick:
			case <-c.closed:
				return
			}
		}
		if !c.enqueue(p) {
			return
		}
	}

	for {
		c.mu.Lock()
		batch := c.deferred
		c.deferred = nil
		if len(batch) == 0 {
			c.replaying = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		for _, p := range batch {
			if !c.enqueue(p) {
				return
			}
		}
	}
}

// enqueue waits for room in the send buffer.
func (c *Client) enqueue(p []byte) bool {
	select {
	case c.send <- p:
		return true
	case <-c.closed:
		return false
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		// The hub calls Close from its own goroutine; keep it from waiting on the peer.
		go func() {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.conn.Close()
		}()
	})
}

func (c *Client) readPump() {
	reason := "closed"
	defer func() {
		c.hub.Post(Disconnected{ConnID: c.id, Reason: reason})
		c.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("set read deadline failed", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			reason = c.readErrorReason(err)
			return
		}

		ev, err := DecodeEvent(c.id, raw)
		if err != nil {
			ev = RejectedEvent{ConnID: c.id, Err: err}
		}
		if !c.hub.Post(ev) {
			reason = "hub stopped"
			return
		}
	}
}

func (c *Client) readErrorReason(err error) string {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("frame exceeded size limit", "limit", c.maxMessageSize)
		return "message too big"
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return "client closed"
	case errors.Is(err, io.EOF), errors.Is(err, websocket.ErrCloseSent):
		return "connection closed"
	}
	select {
	case <-c.closed:
		return "server closed"
	default:
	}
	c.logger.Info("websocket read error", "error", err)
	return err.Error()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
