package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/middleware"
	"chat-hub/internal/mocks"
	"chat-hub/internal/models"
	"chat-hub/internal/telemetry"
)

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, new(mocks.StatsSourceMock), nil, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/hub-snapshot", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugSnapshotAuditsHubState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := new(mocks.StatsSourceMock)
	source.On("ServerInfo", mock.Anything).Return(models.ServerInfo{
		ActiveConnections: 3,
		OnlineUsers:       2,
		RegisteredUsers:   4,
		StoredMessages:    10,
	}, nil).Once()

	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit.logs", "chat-hub", "test")
	publisher.On("Publish", mock.Anything, "audit.logs", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.RequestID == "req-7" &&
			env.UserID != nil && *env.UserID == "u1" &&
			env.HubEvent == "debug_snapshot" &&
			env.Payload.Details["active_connections"] == 3 &&
			env.Payload.Details["online_users"] == 2
	})).Return(nil).Once()

	r := gin.New()
	r.Use(middleware.RequestID())
	RegisterDebugRoutes(r, source, emitter, true)

	req := httptest.NewRequest(http.MethodGet, "/debug/hub-snapshot", nil)
	req.Header.Set("X-Request-Id", "req-7")
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RequestID string            `json:"request_id"`
		Audited   bool              `json:"audited"`
		Snapshot  models.ServerInfo `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-7", body.RequestID)
	assert.True(t, body.Audited)
	assert.Equal(t, 3, body.Snapshot.ActiveConnections)
	assert.Equal(t, 10, body.Snapshot.StoredMessages)
	publisher.AssertExpectations(t)
	source.AssertExpectations(t)
}

func TestDebugSnapshotWithoutEmitter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := new(mocks.StatsSourceMock)
	source.On("ServerInfo", mock.Anything).Return(models.ServerInfo{OnlineUsers: 1}, nil).Once()

	r := gin.New()
	RegisterDebugRoutes(r, source, nil, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/hub-snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"audited":false`)
}

func TestDebugSnapshotHubUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	source := new(mocks.StatsSourceMock)
	source.On("ServerInfo", mock.Anything).Return(nil, context.DeadlineExceeded).Once()
	publisher := new(mocks.PublisherMock)

	r := gin.New()
	RegisterDebugRoutes(r, source, telemetry.NewAuditEmitter(publisher, "audit.logs", "chat-hub", "test"), true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/hub-snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
