package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys    []string
	headers []map[string]string
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.keys = append(p.keys, routingKey)
	p.headers = append(p.headers, nil)
	return p.err
}

func (p *recordingPublisher) PublishWithHeaders(_ context.Context, routingKey string, _ any, headers map[string]string) error {
	p.keys = append(p.keys, routingKey)
	p.headers = append(p.headers, headers)
	return p.err
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", IPFromRequest(req))
}

func TestIdentityFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Device-Id", "dev-1")
	req.Header.Set("User-Agent", "test-agent")

	id := IdentityFromRequest(req)
	assert.Equal(t, Identity{DeviceID: "dev-1", IP: "192.0.2.1", UserAgent: "test-agent"}, id)
}

func TestBuildHeaders(t *testing.T) {
	assert.Empty(t, BuildHeaders("", ""))
	assert.Equal(t, map[string]string{"x-request-id": "r", "trace_id": "t"}, BuildHeaders("r", "t"))
}

func TestPublishEvent(t *testing.T) {
	t.Cleanup(func() { SetPublisher(nil) })

	require.NoError(t, PublishEvent(context.Background(), RoutingWSEvents, EventEnvelope{}, nil))

	pub := &recordingPublisher{}
	SetPublisher(pub)
	require.NoError(t, PublishEvent(context.Background(), RoutingPresenceJoined, EventEnvelope{}, nil))
	require.NoError(t, PublishEvent(context.Background(), RoutingWSEvents, EventEnvelope{}, BuildHeaders("req", "")))

	assert.Equal(t, []string{RoutingPresenceJoined, RoutingWSEvents}, pub.keys)
	assert.Nil(t, pub.headers[0])
	assert.Equal(t, map[string]string{"x-request-id": "req"}, pub.headers[1])

	pub.err = assert.AnError
	assert.ErrorIs(t, PublishEvent(context.Background(), RoutingWSEvents, EventEnvelope{}, nil), assert.AnError)
}
