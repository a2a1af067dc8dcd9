package ws

import (
	"encoding/json"

	"github.com/google/uuid"

	"chat-hub/internal/models"
)

func newConnID() string {
	return uuid.NewString()
}

func encodeEvent(eventType string, data any) ([]byte, error) {
	return json.Marshal(models.OutboundEvent{Type: eventType, Data: data})
}

func notification(text string, severity models.Severity) models.Notification {
	return models.Notification{Text: text, Severity: severity}
}
