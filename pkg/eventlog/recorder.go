package eventlog

import (
	"log/slog"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
)

// Recorder turns the per-cycle snapshot stream into events: one alert event
// per level change and one yawn event per counted yawn. A nil Recorder
// discards everything.
type Recorder struct {
	store     *Store
	sessionID string
	logger    *slog.Logger

	level alert.Level
	yawns uint
}

// NewRecorder records into an already begun session.
func NewRecorder(store *Store, sessionID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:     store,
		sessionID: sessionID,
		logger:    logger.With("component", "eventlog", "session", sessionID),
		level:     alert.Normal,
	}
}

// SessionID returns the session being recorded.
func (r *Recorder) SessionID() string {
	if r == nil {
		return ""
	}
	return r.sessionID
}

// Observe records whatever changed in snap since the previous call.
func (r *Recorder) Observe(snap fusion.Snapshot) error {
	if r == nil {
		return nil
	}

	if snap.Level != r.level {
		if err := r.store.RecordAlert(r.sessionID, snap.Level, snap.Score, snap.Timestamp); err != nil {
			return err
		}
		r.logger.Debug("alert level changed", "from", r.level, "to", snap.Level, "score", snap.Score)
		r.level = snap.Level
	}

	if snap.TotalYawns > r.yawns {
		if err := r.store.RecordYawn(r.sessionID, snap.TotalYawns, snap.ConsecutiveYawns, snap.Timestamp); err != nil {
			return err
		}
		r.yawns = snap.TotalYawns
	}
	return nil
}
