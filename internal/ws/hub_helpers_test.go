package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now   time.Time
	panic bool
}

func (c *fakeClock) Now() time.Time {
	if c.panic {
		panic("clock exploded")
	}
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeConn struct {
	id string

	mu       sync.Mutex
	sent     [][]byte
	replayed [][]byte
	pace     time.Duration
	closed   bool
	reject   bool

	sendCalls  int
	closeCalls int
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.reject {
		return false
	}
	f.sent = append(f.sent, payload)
	return true
}

func (f *fakeConn) Replay(payloads [][]byte, pace time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replayed = append(f.replayed, payloads...)
	f.pace = pace
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCalls++
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.replayed = nil
}

func (f *fakeConn) frames() []models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return decodeFrames(f.sent)
}

func (f *fakeConn) replayFrames() []models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return decodeFrames(f.replayed)
}

func (f *fakeConn) types() []string {
	var out []string
	for _, env := range f.frames() {
		out = append(out, env.Type)
	}
	return out
}

func decodeFrames(raw [][]byte) []models.Envelope {
	out := make([]models.Envelope, 0, len(raw))
	for _, r := range raw {
		var env models.Envelope
		if err := json.Unmarshal(r, &env); err != nil {
			panic(err)
		}
		out = append(out, env)
	}
	return out
}

func decodeData[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func lastOfType(t *testing.T, c *fakeConn, eventType string) models.Envelope {
	t.Helper()
	frames := c.frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == eventType {
			return frames[i]
		}
	}
	t.Fatalf("no %s frame on %s", eventType, c.id)
	return models.Envelope{}
}

// storeGauge reads chat_hub_store_size{store=...} from the default registry.
func storeGauge(t *testing.T, store string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "chat_hub_store_size" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "store" && lp.GetValue() == store {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("no chat_hub_store_size sample for %s", store)
	return 0
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) (*Hub, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: t0}
	h := NewHub(Options{
		HistoryCap:    1000,
		HistoryReplay: 50,
		ReplayPace:    20 * time.Millisecond,
		TypingTimeout: 30 * time.Second,
		OfflineGrace:  time.Hour,
		Logger:        discardLogger(),
		Clock:         clock.Now,
	})
	return h, clock
}

func connect(h *Hub, id string) *fakeConn {
	c := newFakeConn(id)
	h.handle(Connected{Conn: c})
	return c
}

func join(h *Hub, c *fakeConn, userID, name string) {
	h.handle(JoinEvent{ConnID: c.id, JoinPayload: models.JoinPayload{UserID: userID, DisplayName: name}})
}

func say(h *Hub, c *fakeConn, userID, body string) {
	h.handle(SendMessageEvent{ConnID: c.id, SendMessagePayload: models.SendMessagePayload{UserID: userID, Body: body}})
}
