package ws

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
	"chat-hub/internal/telemetry"
)

const genericFailure = "Something went wrong while handling your request."

// handle is the single entry point for every event. It never panics.
func (h *Hub) handle(ev Event) {
	name := ev.eventName()
	defer h.refreshGauges()
	defer func() {
		if r := recover(); r != nil {
			h.recoverHandler(ev, r)
		}
	}()

	err := h.dispatch(ev)
	switch {
	case err == nil:
		observability.IncWSEvent(name, "ok")
	case isValidationError(err):
		observability.IncWSEvent(name, "rejected")
		h.logger.Debug("event rejected", "event", name, "conn_id", connID(ev), "error", err)
		h.notify(connID(ev), capitalize(err.Error()), models.SeverityError)
	default:
		observability.IncWSEvent(name, "failed")
		h.logger.Error("event failed", "event", name, "conn_id", connID(ev), "error", err)
		h.notify(connID(ev), genericFailure, models.SeverityError)
	}
}

func (h *Hub) dispatch(ev Event) error {
	switch e := ev.(type) {
	case Connected:
		return h.handleConnected(e)
	case Disconnected:
		return h.handleDisconnected(e)
	case JoinEvent:
		return h.handleJoin(e)
	case SendMessageEvent:
		return h.handleSendMessage(e)
	case StartTypingEvent:
		return h.handleStartTyping(e)
	case StopTypingEvent:
		return h.handleStopTyping(e)
	case LeaveEvent:
		return h.handleLeave(e)
	case UsersListQuery:
		h.sendTo(e.ConnID, models.EventUsersList, h.users.Snapshot())
		return nil
	case ServerInfoQuery:
		h.sendTo(e.ConnID, models.EventServerInfo, h.serverInfo())
		return nil
	case RejectedEvent:
		return e.Err
	case TypingSweepTick:
		h.sweepTyping()
		return nil
	case PurgeTick:
		h.purgeStale()
		return nil
	case StatusTick:
		h.reportStatus()
		return nil
	case ArchiveResult:
		if e.Err != nil {
			observability.IncArchiveError()
			h.logger.Warn("message not archived", "message_id", e.MessageID, "error", e.Err)
		}
		return nil
	case infoRequest:
		e.reply <- h.serverInfo()
		return nil
	default:
		return fmt.Errorf("unhandled event %T", ev)
	}
}

func (h *Hub) recoverHandler(ev Event, r any) {
	name := ev.eventName()
	observability.IncHandlerFailure(name)
	h.logger.Error("event handler panicked", "event", name, "conn_id", connID(ev), "panic", r, "stack", string(debug.Stack()))

	var userID *string
	if c, ok := h.conns[connID(ev)]; ok && c.userID != "" {
		id := c.userID
		userID = &id
	}
	h.opts.Audit.Emit(context.Background(), telemetry.AuditRecord{
		Level:  "ERROR",
		Event:  name,
		Text:   fmt.Sprintf("hub handler %s panicked: %v", name, r),
		ConnID: connID(ev),
		UserID: userID,
		Details: map[string]any{
			"connections": len(h.conns),
			"event_type":  fmt.Sprintf("%T", ev),
		},
	})

	// The notification itself must not take the hub down.
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("failure notification panicked", "panic", r)
		}
	}()
	h.notify(connID(ev), genericFailure, models.SeverityError)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrInvalidKind)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
