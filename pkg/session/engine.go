// Package session wires one driving session together: landmarks in,
// snapshots out, with the alarm, event log and dashboard as side effects.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-safedrive/pkg/alarm"
	"github.com/teslashibe/go-safedrive/pkg/detectors"
	"github.com/teslashibe/go-safedrive/pkg/eventlog"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
)

// Publisher receives every snapshot and camera frame. The dashboard
// implements it; it must not block.
type Publisher interface {
	Publish(snap fusion.Snapshot, alarmSounding bool)
	SendCameraFrame(jpeg []byte)
}

// EngineConfig holds an Engine's collaborators. Only Fusion and Thresholds
// are required.
type EngineConfig struct {
	Thresholds detectors.Thresholds
	Fusion     fusion.Config
	Actuator   *alarm.Actuator    // nil runs silently
	Events     *eventlog.Recorder // nil disables the event log
	Dashboard  Publisher          // nil disables publishing
	Logger     *slog.Logger
}

// Engine runs the per-frame pipeline: classify, fuse, drive the alarm,
// record, publish. It is single-threaded; only Close may be called from
// another goroutine.
type Engine struct {
	th        detectors.Thresholds
	fusion    *fusion.Context
	actuator  *alarm.Actuator
	events    *eventlog.Recorder
	dashboard Publisher
	logger    *slog.Logger

	prev     fusion.Snapshot
	stopOnce sync.Once
}

// NewEngine creates an engine with fresh trackers.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		th:        cfg.Thresholds,
		fusion:    fusion.NewContext(cfg.Fusion),
		actuator:  cfg.Actuator,
		events:    cfg.Events,
		dashboard: cfg.Dashboard,
		logger:    logger.With("component", "session"),
	}
}

// Step processes one frame of landmarks captured at now.
func (e *Engine) Step(frame landmarks.Frame, now time.Time) fusion.Snapshot {
	snap := e.fusion.Cycle(detectors.Classify(frame, e.th, now))

	if snap.Level != e.prev.Level {
		e.logger.Info("alert level changed",
			"from", e.prev.Level,
			"to", snap.Level,
			"score", snap.Score,
			"neutral", snap.Neutral)
	}

	if e.actuator != nil && fusion.ShouldDrive(e.prev, snap) {
		e.actuator.Apply(snap.Level)
	}
	if err := e.events.Observe(snap); err != nil {
		e.logger.Warn("event log write failed", "error", err)
	}
	if e.dashboard != nil {
		e.dashboard.Publish(snap, e.Sounding())
	}

	e.prev = snap
	return snap
}

// Last returns the most recent snapshot.
func (e *Engine) Last() fusion.Snapshot { return e.prev }

// Sounding reports whether the alarm is playing.
func (e *Engine) Sounding() bool {
	return e.actuator != nil && e.actuator.Sounding()
}

// Close stops the alarm. Only the first call has any effect.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		if e.actuator != nil {
			e.actuator.Stop()
		}
	})
}
