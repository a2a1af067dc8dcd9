package ws

import (
	"time"

	"chat-hub/internal/observability"
)

// Conn is the hub's view of one transport connection.
type Conn interface {
	ID() string
	// Send queues one frame without blocking and reports false when the
	// connection cannot accept it.
	Send(payload []byte) bool
	// Replay queues frames spaced pace apart. Frames passed to Send while a
	// replay is in progress are delivered after it.
	Replay(payloads [][]byte, pace time.Duration)
	Close()
}

type ConnInfo struct {
	ConnID      string
	Identity    observability.Identity
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
