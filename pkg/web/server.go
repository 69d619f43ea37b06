// Package web serves the read-only driver dashboard: current status, the
// level policy, recent level transitions and live camera frames.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/eventlog"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/hub"
	"github.com/teslashibe/go-safedrive/pkg/signals"
)

// maxEvents is how many level transitions /api/events keeps.
const maxEvents = 200

// Config configures the dashboard.
type Config struct {
	Enabled  bool    `yaml:"enabled" json:"enabled"`
	Port     int     `yaml:"port" json:"port"`
	StatusHz float64 `yaml:"status_hz" json:"status_hz"` // max status pushes per second; 0 = every cycle
}

// DefaultConfig serves on :8080 and pushes status at most 10 times a second.
func DefaultConfig() Config {
	return Config{Enabled: false, Port: 8080, StatusHz: 10}
}

// Status is the dashboard view of one snapshot.
type Status struct {
	Level               alert.Level      `json:"level"`
	Score               int              `json:"score"`
	EyesClosed          bool             `json:"eyes_closed"`
	EyeClosedSeconds    float64          `json:"eye_closed_seconds"`
	EyeRemainingSeconds float64          `json:"eye_remaining_seconds"`
	Yawning             bool             `json:"yawning"`
	ConsecutiveYawns    uint             `json:"consecutive_yawns"`
	TotalYawns          uint             `json:"total_yawns"`
	Head                signals.HeadPose `json:"head"`
	PhoneDetected       bool             `json:"phone_detected"`
	PhoneSeconds        float64          `json:"phone_seconds"`
	FaceDetected        bool             `json:"face_detected"`
	AlarmSounding       bool             `json:"alarm_sounding"`
	Frame               uint64           `json:"frame"`
	Timestamp           time.Time        `json:"timestamp"`
}

// NewStatus converts a snapshot for display.
func NewStatus(snap fusion.Snapshot, alarmSounding bool) Status {
	return Status{
		Level:               snap.Level,
		Score:               snap.Score,
		EyesClosed:          snap.EyesClosed,
		EyeClosedSeconds:    snap.EyeClosedFor.Seconds(),
		EyeRemainingSeconds: snap.EyeTimeRemaining.Seconds(),
		Yawning:             snap.Yawning,
		ConsecutiveYawns:    snap.ConsecutiveYawns,
		TotalYawns:          snap.TotalYawns,
		Head:                snap.Head,
		PhoneDetected:       snap.PhoneDetected,
		PhoneSeconds:        snap.PhoneFor.Seconds(),
		FaceDetected:        !snap.Neutral,
		AlarmSounding:       alarmSounding,
		Frame:               snap.Frame,
		Timestamp:           snap.Timestamp,
	}
}

// Event is one level transition.
type Event struct {
	From  alert.Level `json:"from"`
	To    alert.Level `json:"to"`
	Score int         `json:"score"`
	At    time.Time   `json:"at"`
}

// History is a persisted transition log such as *eventlog.Store.
type History interface {
	RecentAlerts(sessionID string, limit int) ([]eventlog.AlertEvent, error)
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	cfg    Config
	policy alert.Policy
	logger *slog.Logger

	mu       sync.RWMutex
	status   Status
	events   []Event
	lastPush time.Time

	history   History
	sessionID string

	statusHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer builds the fiber app. Nothing listens until Start.
func NewServer(cfg Config, policy alert.Policy, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		policy:    policy,
		logger:    logger.With("component", "web"),
		events:    make([]Event, 0, maxEvents),
		statusHub: hub.New("status", logger),
		cameraHub: hub.New("camera", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "SafeDrive Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/policy", s.handlePolicy)
	api.Get("/events", s.handleEvents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start runs the hubs and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", fmt.Sprintf("http://localhost:%d", s.cfg.Port))
		errc <- s.app.Listen(fmt.Sprintf(":%d", s.cfg.Port))
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// Publish records the latest snapshot. Level transitions are kept for
// /api/events and always pushed; other updates are throttled to StatusHz.
func (s *Server) Publish(snap fusion.Snapshot, alarmSounding bool) {
	st := NewStatus(snap, alarmSounding)

	s.mu.Lock()
	prev := s.status.Level
	changed := st.Level != prev
	if changed {
		if len(s.events) == maxEvents {
			copy(s.events, s.events[1:])
			s.events = s.events[:maxEvents-1]
		}
		s.events = append(s.events, Event{From: prev, To: st.Level, Score: st.Score, At: st.Timestamp})
	}
	s.status = st

	push := changed || s.cfg.StatusHz <= 0 ||
		st.Timestamp.Sub(s.lastPush) >= time.Duration(float64(time.Second)/s.cfg.StatusHz)
	if push {
		s.lastPush = st.Timestamp
	}
	s.mu.Unlock()

	if push {
		if err := s.statusHub.BroadcastJSON(st); err != nil {
			s.logger.Warn("encode status", "error", err)
		}
	}
}

// SetHistory makes /api/events read the session's transitions from h
// instead of the in-memory ring. Call before Start.
func (s *Server) SetHistory(h History, sessionID string) {
	s.mu.Lock()
	s.history, s.sessionID = h, sessionID
	s.mu.Unlock()
}

// RecentEvents returns up to limit transitions, oldest first, from the
// history when one is set.
func (s *Server) RecentEvents(limit int) ([]Event, error) {
	if limit <= 0 || limit > maxEvents {
		limit = maxEvents
	}
	s.mu.RLock()
	h, id := s.history, s.sessionID
	s.mu.RUnlock()

	if h == nil {
		events := s.Events()
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		return events, nil
	}

	// One extra row supplies the From level of the oldest transition
	recs, err := h.RecentAlerts(id, limit+1)
	if err != nil {
		return nil, err
	}
	return fromHistory(recs, limit), nil
}

// fromHistory turns newest-first records into oldest-first transitions.
// Sessions start at NORMAL, so that is the From of the first one.
func fromHistory(recs []eventlog.AlertEvent, limit int) []Event {
	n := min(len(recs), limit)
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		from := alert.Normal
		if i+1 < len(recs) {
			from = recs[i+1].Level
		}
		r := recs[i]
		out[n-1-i] = Event{From: from, To: r.Level, Score: r.Score, At: r.At}
	}
	return out
}

// SendCameraFrame sends a JPEG frame to all camera clients
func (s *Server) SendCameraFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Status returns the latest published status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Events returns the retained level transitions, oldest first.
func (s *Server) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
