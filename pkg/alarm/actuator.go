// Package alarm drives the audible alarm from the alert level.
package alarm

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/audioio"
)

// ErrResourceUnavailable is returned by Start when the alarm cannot be
// played this session. The caller keeps running without sound.
var ErrResourceUnavailable = errors.New("alarm resource unavailable")

// State is the actuator state.
type State int

const (
	Silent State = iota
	Sounding
)

func (s State) String() string {
	if s == Sounding {
		return "sounding"
	}
	return "silent"
}

// Actuator is a two-state alarm controller.
//
// Apply issues at most one PlayLoop per Silent->Sounding transition and at
// most one Stop per Sounding->Silent transition. It must only be called from
// the detection loop goroutine; the actuator does no locking of its own.
type Actuator struct {
	sink        audioio.Sink
	path        string
	shouldSound func(alert.Level) bool
	logger      *slog.Logger

	state     State
	available bool
	stopped   bool
}

// New returns a silent actuator. shouldSound nil means only Danger sounds.
func New(sink audioio.Sink, path string, shouldSound func(alert.Level) bool, logger *slog.Logger) *Actuator {
	if shouldSound == nil {
		shouldSound = alert.DefaultPolicy().ShouldSound
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Actuator{
		sink:        sink,
		path:        path,
		shouldSound: shouldSound,
		logger:      logger.With("component", "alarm"),
	}
}

// Start loads the alarm asset on the sink. On failure the actuator stays
// silent for the rest of the session and the error wraps
// ErrResourceUnavailable.
func (a *Actuator) Start() error {
	if a.sink == nil {
		err := fmt.Errorf("%w: no audio sink", ErrResourceUnavailable)
		a.logger.Warn("alarm disabled", "error", err)
		return err
	}
	if _, err := os.Stat(a.path); err != nil {
		err = fmt.Errorf("%w: alarm file not found: %s", ErrResourceUnavailable, a.path)
		a.logger.Warn("alarm disabled", "error", err)
		return err
	}
	if err := a.sink.Load(a.path); err != nil {
		err = fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		a.logger.Warn("alarm disabled", "error", err)
		return err
	}

	a.available = true
	a.stopped = false
	a.logger.Info("alarm loaded", "path", a.path, "backend", a.sink.Name())
	return nil
}

// Apply moves the actuator toward the state the level's policy asks for.
func (a *Actuator) Apply(level alert.Level) {
	if !a.available {
		return
	}

	want := a.shouldSound(level)
	switch {
	case want && a.state == Silent:
		if err := a.sink.PlayLoop(); err != nil {
			// A device that refused once is not retried every frame
			a.available = false
			a.logger.Warn("alarm start failed, alarm disabled", "level", level, "error", err)
			return
		}
		a.state = Sounding
		a.logger.Info("alarm on", "level", level)

	case !want && a.state == Sounding:
		if err := a.sink.Stop(); err != nil {
			a.logger.Warn("alarm stop failed", "level", level, "error", err)
		}
		a.state = Silent
		a.logger.Info("alarm off", "level", level)
	}
}

// Stop silences the alarm and releases the device. It is safe to call
// repeatedly and without Start.
func (a *Actuator) Stop() {
	if a.stopped {
		return
	}
	a.stopped = true

	if a.sink != nil {
		if a.state == Sounding {
			if err := a.sink.Stop(); err != nil {
				a.logger.Debug("alarm stop on shutdown", "error", err)
			}
		}
		if err := a.sink.Close(); err != nil {
			a.logger.Debug("alarm close on shutdown", "error", err)
		}
	}
	a.state = Silent
	a.available = false
}

// State returns the current state.
func (a *Actuator) State() State { return a.state }

// Sounding reports whether the alarm is playing.
func (a *Actuator) Sounding() bool { return a.state == Sounding }

// Available reports whether Start succeeded and Stop has not been called.
func (a *Actuator) Available() bool { return a.available }
