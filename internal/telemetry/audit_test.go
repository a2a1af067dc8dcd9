package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/mocks"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.logs", "chat-hub", "test")
	emitter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	emitter.hostname = "hub-1"

	user := "u1"
	var got AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.logs", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	emitter.Emit(context.Background(), AuditRecord{
		Level:     "ERROR",
		Event:     "send_message",
		Text:      "handler failed",
		RequestID: "req-1",
		ConnID:    "c1",
		UserID:    &user,
		Details:   map[string]any{"connections": 3},
	})

	pub.AssertExpectations(t)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "u1", *got.UserID)
	assert.Equal(t, "chat_hub_audit", got.EventType)
	assert.Equal(t, "send_message", got.HubEvent)
	assert.Equal(t, "c1", got.ConnID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "hub-1", got.Host)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "chat-hub", got.Service)
	assert.Equal(t, AuditPayload{Level: "ERROR", Text: "handler failed", Details: map[string]any{"connections": 3}}, got.Payload)
}

func TestAuditEmitterDefaultsLevel(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.logs", "chat-hub", "test")
	pub.On("Publish", mock.Anything, "audit.logs", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.Payload.Level == "INFO" && env.HubEvent == "debug_snapshot" && env.ConnID == ""
	})).Return(nil).Once()

	emitter.Emit(context.Background(), AuditRecord{Event: "debug_snapshot", Text: "snapshot"})
	pub.AssertExpectations(t)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), AuditRecord{Text: "x"})

	NewAuditEmitter(nil, "k", "s", "e").Emit(context.Background(), AuditRecord{Text: "x"})
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "chat-hub", "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
