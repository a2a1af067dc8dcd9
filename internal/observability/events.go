package observability

import "context"

// Routing keys for lifecycle events.
const (
	RoutingPresenceJoined = "presence_events.joined"
	RoutingPresenceLeft   = "presence_events.left"
	RoutingPresencePurged = "presence_events.purged"
	RoutingMessageSent    = "chat_events.message_sent"
	RoutingWSEvents       = "ws_events.hub"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// Publisher sends lifecycle envelopes to the event bus. Implementations used
// from the hub goroutine must not block.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// HeaderPublisher is implemented by publishers that can attach message headers.
type HeaderPublisher interface {
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends event through the process publisher. It is a no-op until
// SetPublisher is called.
func PublishEvent(ctx context.Context, routingKey string, event interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	var err error
	if hp, ok := defaultPublisher.(HeaderPublisher); ok && len(headers) > 0 {
		err = hp.PublishWithHeaders(ctx, routingKey, event, headers)
	} else {
		err = defaultPublisher.Publish(ctx, routingKey, event)
	}
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
