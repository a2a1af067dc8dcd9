package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AuditEmitter publishes hub audit records: handler failures and operator
// snapshots taken through the debug routes.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	hostname    string
	now         func() time.Time
}

// AuditRecord is what callers hand to Emit. Event names the hub event or
// route that produced the record; ConnID is set when a websocket connection
// was involved.
type AuditRecord struct {
	Level     string
	Event     string
	Text      string
	RequestID string
	ConnID    string
	UserID    *string
	Details   map[string]any
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	Host          string       `json:"host,omitempty"`
	HubEvent      string       `json:"hub_event"`
	RequestID     string       `json:"request_id,omitempty"`
	ConnID        string       `json:"conn_id,omitempty"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level   string         `json:"level"`
	Text    string         `json:"text"`
	Details map[string]any `json:"details,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	host, _ := os.Hostname()
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		hostname:    host,
		now:         time.Now,
	}
}

// Emit publishes rec. The publisher handed to NewAuditEmitter decides whether
// this blocks; the hub passes an async one.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}
	if rec.Level == "" {
		rec.Level = "INFO"
	}

	slog.Debug("audit emit", "level", rec.Level, "hub_event", rec.Event, "conn_id", rec.ConnID, "request_id", rec.RequestID)
	envelope := AuditEnvelope{
		SchemaVersion: 2,
		EventType:     "chat_hub_audit",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Host:          e.hostname,
		HubEvent:      rec.Event,
		RequestID:     rec.RequestID,
		ConnID:        rec.ConnID,
		UserID:        rec.UserID,
		Payload: AuditPayload{
			Level:   rec.Level,
			Text:    rec.Text,
			Details: rec.Details,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		slog.Warn("audit publish failed", "hub_event", rec.Event, "error", err)
	}
}
