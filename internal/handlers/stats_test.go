package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/mocks"
	"chat-hub/internal/models"
)

func setupStatsRouter(handler *StatsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stats", handler.Stats)
	r.GET("/health", handler.Health)
	return r
}

func sampleInfo() models.ServerInfo {
	return models.ServerInfo{
		RoomStats: models.RoomStats{
			TotalConnectionsEver: 12,
			MessagesExchanged:    40,
			FilesUploaded:        3,
			ServerStartedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		RegisteredUsers:   5,
		OnlineUsers:       4,
		ActiveConnections: 4,
		StoredMessages:    40,
		TypingUsers:       1,
		UptimeSeconds:     3600,
	}
}

func TestStatsSuccess(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	archive := new(mocks.ArchiveCounterMock)
	router := setupStatsRouter(NewStatsHandler(source, archive))

	source.On("ServerInfo", mock.Anything).Return(sampleInfo(), nil).Once()
	archive.On("CountMessages", mock.Anything).Return(1234, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 12, resp["totalConnectionsEver"])
	assert.EqualValues(t, 40, resp["storedMessages"])
	assert.EqualValues(t, 1, resp["typingUsers"])
	assert.EqualValues(t, 1234, resp["archivedMessages"])

	source.AssertExpectations(t)
	archive.AssertExpectations(t)
}

func TestStatsWithoutArchive(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	router := setupStatsRouter(NewStatsHandler(source, nil))
	source.On("ServerInfo", mock.Anything).Return(sampleInfo(), nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "archivedMessages")
}

func TestStatsArchiveErrorIsOmitted(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	archive := new(mocks.ArchiveCounterMock)
	router := setupStatsRouter(NewStatsHandler(source, archive))
	source.On("ServerInfo", mock.Anything).Return(sampleInfo(), nil).Once()
	archive.On("CountMessages", mock.Anything).Return(0, errors.New("db down")).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "archivedMessages")
}

func TestStatsHubUnavailable(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	router := setupStatsRouter(NewStatsHandler(source, nil))
	source.On("ServerInfo", mock.Anything).Return(nil, errors.New("hub stopped")).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	router := setupStatsRouter(NewStatsHandler(source, nil))
	source.On("ServerInfo", mock.Anything).Return(sampleInfo(), nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","uptime_seconds":3600}`, rec.Body.String())
}

func TestHealthTimeout(t *testing.T) {
	source := new(mocks.StatsSourceMock)
	router := setupStatsRouter(NewStatsHandler(source, nil))
	source.On("ServerInfo", mock.Anything).Return(nil, context.DeadlineExceeded).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}
