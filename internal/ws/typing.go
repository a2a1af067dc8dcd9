package ws

import (
	"fmt"

	"chat-hub/internal/models"
	"chat-hub/internal/observability"
)

func (h *Hub) handleStartTyping(e StartTypingEvent) error {
	user, ok := h.users.Get(e.UserID)
	if !ok || !user.IsOnline {
		return fmt.Errorf("%w: %s", ErrNotRegistered, e.UserID)
	}
	name := e.DisplayName
	if name == "" {
		name = user.DisplayName
	}
	h.typing.Start(e.UserID, name, e.ConnID, h.now())
	h.broadcast(models.EventUserTyping, models.TypingNotice{UserID: e.UserID, DisplayName: name}, e.ConnID)
	return nil
}

func (h *Hub) handleStopTyping(e StopTypingEvent) error {
	if _, ok := h.typing.Stop(e.UserID); !ok {
		return nil
	}
	h.broadcast(models.EventUserStopTyping, models.UserRef{UserID: e.UserID}, e.ConnID)
	return nil
}

func (h *Hub) sweepTyping() {
	expired := h.typing.SweepExpired(h.now(), h.opts.TypingTimeout)
	observability.AddSweepRemoved("typing", len(expired))
	for _, id := range expired {
		h.broadcast(models.EventUserStopTyping, models.UserRef{UserID: id}, "")
	}
	if len(expired) > 0 {
		h.logger.Debug("typing states expired", "user_ids", expired)
	}
}
