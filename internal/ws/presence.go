package ws

import (
	"fmt"
	"time"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
)

func (h *Hub) handleConnected(e Connected) error {
	id := e.Conn.ID()
	if e.Info.ConnID == "" {
		e.Info.ConnID = id
	}
	if e.Info.ConnectedAt.IsZero() {
		e.Info.ConnectedAt = h.now()
	}
	h.conns[id] = &connection{conn: e.Conn, info: e.Info}
	h.stats.TotalConnectionsEver++
	observability.IncWSActive()

	h.logger.Info("connection opened", "conn_id", id, "ip", e.Info.Identity.IP, "connections", len(h.conns))
	h.publish(observability.RoutingWSEvents, "ws_events", "ws_connect", map[string]interface{}{
		"conn_id":  id,
		"identity": e.Info.Identity,
	}, e.Info)
	return nil
}

func (h *Hub) handleDisconnected(e Disconnected) error {
	c, ok := h.conns[e.ConnID]
	if !ok {
		return nil
	}
	delete(h.conns, e.ConnID)
	observability.DecWSActive()

	h.logger.Info("connection closed", "conn_id", e.ConnID, "user_id", c.userID, "reason", e.Reason, "connections", len(h.conns))
	h.publish(observability.RoutingWSEvents, "ws_events", "ws_disconnect", map[string]interface{}{
		"conn_id":     e.ConnID,
		"user_id":     c.userID,
		"reason":      e.Reason,
		"duration_ms": h.now().Sub(c.info.ConnectedAt).Milliseconds(),
		"identity":    c.info.Identity,
	}, c.info)

	if c.userID != "" {
		h.signOff(c, c.userID, false)
	}
	return nil
}

func (h *Hub) handleJoin(e JoinEvent) error {
	c, ok := h.conns[e.ConnID]
	if !ok {
		return nil
	}
	now := h.now()

	// A connection speaks for one user at a time.
	if c.userID != "" && c.userID != e.UserID {
		h.signOff(c, c.userID, false)
	}

	user, created := h.users.RegisterOrUpdate(e.UserID, e.DisplayName, e.AvatarRef, e.ConnID, now)
	c.userID = e.UserID

	history := h.messages.Recent(h.opts.HistoryReplay)
	frames := make([][]byte, 0, len(history)+1)
	for _, msg := range history {
		frame, err := encodeEvent(models.EventMessage, msg)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		frames = append(frames, frame)
	}
	welcome := fmt.Sprintf("Welcome to the chat, %s!", user.DisplayName)
	if !created {
		welcome = fmt.Sprintf("Welcome back, %s!", user.DisplayName)
	}
	frame, err := encodeEvent(models.EventNotification, notification(welcome, models.SeveritySuccess))
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	frames = append(frames, frame)
	c.conn.Replay(frames, h.opts.ReplayPace)

	h.broadcast(models.EventUserJoined, user, e.ConnID)
	h.broadcastUsersList()

	h.logger.Info("user joined", "user_id", user.UserID, "conn_id", e.ConnID, "reconnect", !created, "replayed", len(history))
	h.publish(observability.RoutingPresenceJoined, "presence_events", models.EventUserJoined, map[string]interface{}{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"conn_id":      e.ConnID,
		"reconnect":    !created,
	}, c.info)
	return nil
}

func (h *Hub) handleLeave(e LeaveEvent) error {
	c, ok := h.conns[e.ConnID]
	if !ok {
		return nil
	}
	if !h.signOff(c, e.UserID, true) {
		return nil
	}
	if c.userID == e.UserID {
		c.userID = ""
	}
	h.notify(e.ConnID, "You left the chat.", models.SeverityInfo)
	return nil
}

// signOff marks userID offline on behalf of connection c. It does nothing
// when c is no longer the user's current connection, so a late disconnect
// from a replaced transport cannot knock a reconnected user offline.
func (h *Hub) signOff(c *connection, userID string, explicit bool) bool {
	connID := c.info.ConnID
	if !h.users.MarkOffline(userID, connID, h.now()) {
		h.logger.Debug("ignoring sign-off from superseded connection", "user_id", userID, "conn_id", connID, "explicit", explicit)
		return false
	}

	if _, typing := h.typing.Stop(userID); typing {
		h.broadcast(models.EventUserStopTyping, models.UserRef{UserID: userID}, "")
	}
	h.broadcast(models.EventUserLeft, models.UserRef{UserID: userID}, "")
	h.broadcastUsersList()

	h.logger.Info("user left", "user_id", userID, "conn_id", connID, "explicit", explicit)
	h.publish(observability.RoutingPresenceLeft, "presence_events", models.EventUserLeft, map[string]interface{}{
		"user_id":  userID,
		"conn_id":  connID,
		"explicit": explicit,
	}, c.info)
	return true
}

func (h *Hub) purgeStale() {
	removed := h.users.PurgeStale(h.now(), h.opts.OfflineGrace)
	observability.AddSweepRemoved("stale_users", len(removed))
	if len(removed) == 0 {
		return
	}

	ids := make([]string, 0, len(removed))
	for _, u := range removed {
		ids = append(ids, u.UserID)
	}
	h.broadcastUsersList()

	h.logger.Info("purged stale users", "count", len(removed), "user_ids", ids)
	h.publish(observability.RoutingPresencePurged, "presence_events", "users_purged", map[string]interface{}{
		"user_ids": ids,
	}, ConnInfo{})
}

func (h *Hub) reportStatus() {
	info := h.serverInfo()
	h.logger.Info("hub status",
		"uptime", time.Duration(info.UptimeSeconds*float64(time.Second)).Round(time.Second).String(),
		"total_connections", info.TotalConnectionsEver,
		"messages_exchanged", info.MessagesExchanged,
		"files_uploaded", info.FilesUploaded,
		"active_connections", info.ActiveConnections,
		"registered_users", info.RegisteredUsers,
		"online_users", info.OnlineUsers,
		"stored_messages", info.StoredMessages,
		"typing_users", info.TypingUsers,
	)
}
