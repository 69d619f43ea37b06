package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/eventlog"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/hub"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(hz float64) *Server {
	cfg := DefaultConfig()
	cfg.StatusHz = hz
	return NewServer(cfg, alert.DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func getJSON(t *testing.T, s *Server, path string, v any) int {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(0)
	s.Publish(fusion.Snapshot{
		Level:            alert.Danger,
		Score:            5,
		EyesClosed:       true,
		EyeClosedFor:     17 * time.Second,
		EyeTimeRemaining: 3 * time.Second,
		PhoneDetected:    true,
		PhoneFor:         6 * time.Second,
		Timestamp:        t0,
		Frame:            42,
	}, true)

	var got map[string]any
	require.Equal(t, 200, getJSON(t, s, "/api/status", &got))
	assert.Equal(t, "DANGER", got["level"])
	assert.Equal(t, float64(5), got["score"])
	assert.Equal(t, float64(17), got["eye_closed_seconds"])
	assert.Equal(t, float64(6), got["phone_seconds"])
	assert.Equal(t, true, got["alarm_sounding"])
	assert.Equal(t, true, got["face_detected"])
	assert.Equal(t, float64(42), got["frame"])
}

func TestPolicyEndpoint(t *testing.T) {
	s := newTestServer(0)

	var got []struct {
		Level string   `json:"level"`
		Color [3]uint8 `json:"color_bgr"`
		Sound bool     `json:"sound"`
	}
	require.Equal(t, 200, getJSON(t, s, "/api/policy", &got))
	require.Len(t, got, 3)
	assert.Equal(t, "NORMAL", got[0].Level)
	assert.Equal(t, "DANGER", got[2].Level)
	assert.True(t, got[2].Sound)
	assert.False(t, got[1].Sound)
	assert.Equal(t, [3]uint8{0, 0, 255}, got[2].Color)
}

func TestEventsEndpoint(t *testing.T) {
	s := newTestServer(0)

	levels := []alert.Level{alert.Normal, alert.Warning, alert.Warning, alert.Danger, alert.Normal}
	for i, l := range levels {
		s.Publish(fusion.Snapshot{Level: l, Timestamp: t0.Add(time.Duration(i) * time.Second)}, false)
	}

	var got []struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	require.Equal(t, 200, getJSON(t, s, "/api/events", &got))
	require.Len(t, got, 3)
	assert.Equal(t, "NORMAL", got[0].From)
	assert.Equal(t, "WARNING", got[0].To)
	assert.Equal(t, "DANGER", got[1].To)
	assert.Equal(t, "NORMAL", got[2].To)
}

func TestEvents_Bounded(t *testing.T) {
	s := newTestServer(0)
	for i := 0; i < maxEvents+50; i++ {
		l := alert.Warning
		if i%2 == 1 {
			l = alert.Normal
		}
		s.Publish(fusion.Snapshot{Level: l, Score: i, Timestamp: t0.Add(time.Duration(i) * time.Second)}, false)
	}

	events := s.Events()
	require.Len(t, events, maxEvents)
	assert.Equal(t, maxEvents+49, events[len(events)-1].Score)
	assert.Equal(t, 50, events[0].Score)
}

type fakeHistory struct {
	recs     []eventlog.AlertEvent // newest first
	err      error
	gotID    string
	gotLimit int
}

func (f *fakeHistory) RecentAlerts(sessionID string, limit int) ([]eventlog.AlertEvent, error) {
	f.gotID, f.gotLimit = sessionID, limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recs) > limit {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func TestEventsEndpoint_FromHistory(t *testing.T) {
	s := newTestServer(0)
	h := &fakeHistory{recs: []eventlog.AlertEvent{
		{Level: alert.Normal, Score: 0, At: t0.Add(3 * time.Second)},
		{Level: alert.Danger, Score: 4, At: t0.Add(2 * time.Second)},
		{Level: alert.Warning, Score: 1, At: t0.Add(time.Second)},
	}}
	s.SetHistory(h, "session-1")
	// The in-memory ring is ignored once a history is set
	s.Publish(fusion.Snapshot{Level: alert.Warning, Timestamp: t0}, false)

	var got []Event
	require.Equal(t, 200, getJSON(t, s, "/api/events", &got))
	assert.Equal(t, "session-1", h.gotID)
	assert.Equal(t, maxEvents+1, h.gotLimit)
	require.Len(t, got, 3)
	assert.Equal(t, Event{From: alert.Normal, To: alert.Warning, Score: 1, At: t0.Add(time.Second)}, got[0])
	assert.Equal(t, alert.Warning, got[1].From)
	assert.Equal(t, alert.Danger, got[1].To)
	assert.Equal(t, alert.Danger, got[2].From)
	assert.Equal(t, alert.Normal, got[2].To)
}

func TestEventsEndpoint_HistoryLimit(t *testing.T) {
	s := newTestServer(0)
	h := &fakeHistory{recs: []eventlog.AlertEvent{
		{Level: alert.Normal, At: t0.Add(3 * time.Second)},
		{Level: alert.Danger, At: t0.Add(2 * time.Second)},
		{Level: alert.Warning, At: t0.Add(time.Second)},
	}}
	s.SetHistory(h, "session-1")

	var got []Event
	require.Equal(t, 200, getJSON(t, s, "/api/events?limit=2", &got))
	assert.Equal(t, 3, h.gotLimit)
	require.Len(t, got, 2)
	// The extra row only supplies From
	assert.Equal(t, alert.Warning, got[0].From)
	assert.Equal(t, alert.Danger, got[0].To)
	assert.Equal(t, alert.Normal, got[1].To)
}

func TestEventsEndpoint_HistoryError(t *testing.T) {
	s := newTestServer(0)
	s.SetHistory(&fakeHistory{err: errors.New("database is locked")}, "session-1")
	assert.Equal(t, 500, getJSON(t, s, "/api/events", nil))
}

func TestEventsEndpoint_EventLogStore(t *testing.T) {
	store, err := eventlog.Open(t.TempDir() + "/events.db")
	require.NoError(t, err)
	defer store.Close()
	id, err := store.BeginSession(t0)
	require.NoError(t, err)
	require.NoError(t, store.RecordAlert(id, alert.Warning, 1, t0.Add(time.Second)))
	require.NoError(t, store.RecordAlert(id, alert.Danger, 3, t0.Add(2*time.Second)))

	s := newTestServer(0)
	s.SetHistory(store, id)

	var got []Event
	require.Equal(t, 200, getJSON(t, s, "/api/events", &got))
	require.Len(t, got, 2)
	assert.Equal(t, alert.Normal, got[0].From)
	assert.Equal(t, alert.Warning, got[0].To)
	assert.Equal(t, alert.Warning, got[1].From)
	assert.Equal(t, alert.Danger, got[1].To)
	assert.Equal(t, 3, got[1].Score)
	assert.True(t, got[1].At.Equal(t0.Add(2*time.Second)))
}

func TestRecentEvents_RingLimit(t *testing.T) {
	s := newTestServer(0)
	levels := []alert.Level{alert.Warning, alert.Danger, alert.Normal}
	for i, l := range levels {
		s.Publish(fusion.Snapshot{Level: l, Timestamp: t0.Add(time.Duration(i) * time.Second)}, false)
	}

	events, err := s.RecentEvents(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, alert.Danger, events[0].To)
	assert.Equal(t, alert.Normal, events[1].To)
}

func drain(sub *hub.Subscription) []Status {
	var out []Status
	for {
		select {
		case msg := <-sub.C:
			var st Status
			if json.Unmarshal(msg.Data, &st) == nil {
				out = append(out, st)
			}
		case <-time.After(200 * time.Millisecond):
			return out
		}
	}
}

func TestPublish_Throttle(t *testing.T) {
	s := newTestServer(2) // one push every 500ms
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.statusHub.Run(ctx)
	sub := s.statusHub.Subscribe()
	require.NotNil(t, sub)

	// 10 cycles 100ms apart at a steady level: pushes at 0ms and 500ms
	for i := 0; i < 10; i++ {
		s.Publish(fusion.Snapshot{Timestamp: t0.Add(time.Duration(i) * 100 * time.Millisecond), Frame: uint64(i + 1)}, false)
	}
	// A level change is never throttled
	s.Publish(fusion.Snapshot{Level: alert.Danger, Timestamp: t0.Add(1050 * time.Millisecond), Frame: 11}, false)

	got := drain(sub)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].Frame)
	assert.Equal(t, uint64(6), got[1].Frame)
	assert.Equal(t, alert.Danger, got[2].Level)
}

func TestWebSocketRoutesRequireUpgrade(t *testing.T) {
	s := newTestServer(0)
	for _, path := range []string{"/ws/status", "/ws/camera"} {
		resp, err := s.app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, 426, resp.StatusCode, path)
	}
}
