package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunServerFailsWhenPortIsTaken(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()

	cfg := config.Default()
	cfg.Port = strconv.Itoa(l.Addr().(*net.TCPAddr).Port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = runServer(ctx, cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
	assert.NoError(t, ctx.Err(), "runServer should return on the listen error, not the deadline")
}

func TestRunServerStopsCleanlyOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	assert.NoError(t, runServer(ctx, cfg, discardLogger()))
}

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestBootstrapAppliesLogSettingsFromDotEnv(t *testing.T) {
	for _, key := range []string{"LOG_FORMAT", "LOG_LEVEL", "PORT"} {
		unsetEnv(t, key)
	}
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_FORMAT=json\nLOG_LEVEL=warn\nPORT=9191\n"), 0o600))

	var buf bytes.Buffer
	cfg, logger := bootstrap(&buf, path)

	assert.Equal(t, "9191", cfg.Port)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "expected a single JSON record, got %q", buf.String())
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "v", record["k"])
}

func TestBootstrapWithoutDotEnv(t *testing.T) {
	for _, key := range []string{"LOG_FORMAT", "LOG_LEVEL", "PORT"} {
		unsetEnv(t, key)
	}
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	cfg, logger := bootstrap(&buf, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, config.Default().Port, cfg.Port)

	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
