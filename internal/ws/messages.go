package ws

import (
	"fmt"
	"strings"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
)

func (h *Hub) handleSendMessage(e SendMessageEvent) error {
	user, ok := h.users.Get(e.UserID)
	if !ok || !user.IsOnline {
		return fmt.Errorf("%w: %s", ErrNotRegistered, e.UserID)
	}

	msg, err := buildMessage(e.SendMessagePayload, user)
	if err != nil {
		return err
	}

	now := h.now()
	msg = h.messages.Append(msg, now)
	h.stats.MessagesExchanged++
	if msg.AttachmentRef != "" {
		h.stats.FilesUploaded++
	}
	h.users.Touch(e.UserID, now)
	observability.IncMessages()

	// Sending a message ends the sender's typing state.
	if _, typing := h.typing.Stop(e.UserID); typing {
		h.broadcast(models.EventUserStopTyping, models.UserRef{UserID: e.UserID}, "")
	}
	h.broadcast(models.EventMessage, msg, "")

	if h.opts.Archive != nil && !h.opts.Archive.Enqueue(msg) {
		observability.IncArchiveError()
		h.logger.Warn("archive queue full, message not archived", "message_id", msg.ID)
	}

	var info ConnInfo
	if c, ok := h.conns[e.ConnID]; ok {
		info = c.info
	}
	h.publish(observability.RoutingMessageSent, "chat_events", "message_sent", map[string]interface{}{
		"message_id":     msg.ID,
		"sender_id":      msg.SenderID,
		"kind":           string(msg.Kind),
		"encrypted":      msg.Encrypted,
		"has_attachment": msg.AttachmentRef != "",
		"body_length":    len(msg.Body),
	}, info)
	return nil
}

// buildMessage validates the payload against the sender and fills defaults.
// It does not touch hub state.
func buildMessage(p models.SendMessagePayload, sender models.ConnectedUser) (models.Message, error) {
	msg := models.Message{
		SenderID:      sender.UserID,
		SenderName:    strings.TrimSpace(p.DisplayName),
		Body:          p.Body,
		AttachmentRef: strings.TrimSpace(p.AttachmentRef),
		Kind:          p.Kind,
		Encrypted:     p.Encrypted,
	}
	if msg.SenderName == "" {
		msg.SenderName = sender.DisplayName
	}
	if strings.TrimSpace(msg.Body) == "" {
		msg.Body = ""
	}
	if !msg.HasContent() {
		return models.Message{}, ErrEmptyMessage
	}

	switch {
	case msg.Kind == "" && msg.AttachmentRef != "":
		msg.Kind = models.KindFile
	case msg.Kind == "":
		msg.Kind = models.KindText
	case !msg.Kind.Valid():
		return models.Message{}, fmt.Errorf("%w: %q", ErrInvalidKind, msg.Kind)
	}
	return msg, nil
}
