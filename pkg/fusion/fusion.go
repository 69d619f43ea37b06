// Package fusion runs one detection cycle: it feeds per-frame signals into
// the temporal trackers and scores the result.
package fusion

import (
	"time"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/signals"
)

// FrameSignals are the per-frame classifications produced from landmarks.
type FrameSignals struct {
	FaceDetected  bool
	EyesClosed    bool
	IsYawning     bool
	Head          signals.HeadPose
	PhoneDetected bool
	Timestamp     time.Time
}

// PhoneBand buckets the phone timer for actuator decisions on neutral frames.
type PhoneBand int

const (
	PhoneNone PhoneBand = iota
	PhoneShort
	PhoneOver
)

// BandFor returns the band for a phone timer value.
func BandFor(phoneFor, threshold time.Duration) PhoneBand {
	switch {
	case phoneFor > threshold:
		return PhoneOver
	case phoneFor > 0:
		return PhoneShort
	default:
		return PhoneNone
	}
}

// Snapshot is the read-only outcome of one cycle.
type Snapshot struct {
	Level            alert.Level      `json:"level"`
	Score            int              `json:"score"`
	EyesClosed       bool             `json:"eyes_closed"`
	EyeClosedFor     time.Duration    `json:"eye_closed_for"`
	EyeTimeRemaining time.Duration    `json:"eye_time_remaining"`
	Yawning          bool             `json:"yawning"`
	ConsecutiveYawns uint             `json:"consecutive_yawns"`
	TotalYawns       uint             `json:"total_yawns"`
	Head             signals.HeadPose `json:"head"`
	PhoneDetected    bool             `json:"phone_detected"`
	PhoneFor         time.Duration    `json:"phone_for"`
	PhoneBand        PhoneBand        `json:"phone_band"`
	Neutral          bool             `json:"neutral"`
	Timestamp        time.Time        `json:"timestamp"`
	Frame            uint64           `json:"frame"`
}

// Config holds the thresholds and yawn timing for a Context.
type Config struct {
	Thresholds      alert.Thresholds
	YawnDebounce    time.Duration
	YawnResetWindow time.Duration
}

// DefaultConfig returns the stock thresholds and yawn timing.
func DefaultConfig() Config {
	return Config{
		Thresholds:      alert.DefaultThresholds(),
		YawnDebounce:    signals.DefaultYawnDebounce,
		YawnResetWindow: signals.DefaultYawnResetWindow,
	}
}

// Context owns the trackers for one driving session. It is not safe for
// concurrent use; the detection loop is its only caller.
type Context struct {
	th     alert.Thresholds
	eyes   signals.EyeClosureTracker
	yawns  *signals.YawnDebouncer
	phone  signals.PhoneUsageTracker
	frames uint64
}

// NewContext creates a Context with fresh trackers.
func NewContext(cfg Config) *Context {
	return &Context{
		th:    cfg.Thresholds,
		yawns: signals.NewYawnDebouncer(cfg.YawnDebounce, cfg.YawnResetWindow),
	}
}

// Thresholds returns the thresholds the context scores against.
func (c *Context) Thresholds() alert.Thresholds { return c.th }

// Cycle advances all trackers by one frame and scores the result.
func (c *Context) Cycle(fs FrameSignals) Snapshot {
	c.frames++
	now := fs.Timestamp

	snap := Snapshot{
		PhoneDetected: fs.PhoneDetected,
		PhoneFor:      c.phone.Update(fs.PhoneDetected, now),
		Timestamp:     now,
		Frame:         c.frames,
	}
	snap.PhoneBand = BandFor(snap.PhoneFor, c.th.Phone)

	if !fs.FaceDetected {
		// Face-derived signals are unknown; start them over.
		c.eyes.Reset()
		c.yawns.ResetConsecutive()

		snap.Neutral = true
		snap.Head = signals.NeutralHead()
		snap.TotalYawns = c.yawns.TotalCount()
		snap.EyeTimeRemaining = c.th.EyesClosed
		snap.Score = alert.Score(alert.Inputs{Phone: snap.PhoneFor}, c.th)
		snap.Level = alert.LevelFor(snap.Score)
		return snap
	}

	snap.EyesClosed = fs.EyesClosed
	snap.EyeClosedFor = c.eyes.Update(fs.EyesClosed, now)
	snap.EyeTimeRemaining = max(0, c.th.EyesClosed-snap.EyeClosedFor)
	snap.Yawning = fs.IsYawning
	snap.TotalYawns, snap.ConsecutiveYawns = c.yawns.Update(fs.IsYawning, now)
	snap.Head = fs.Head

	snap.Score = alert.Score(alert.Inputs{
		EyeClosed:        snap.EyeClosedFor,
		ConsecutiveYawns: snap.ConsecutiveYawns,
		HeadTurned:       fs.Head.Turned,
		HeadTilted:       fs.Head.Tilted,
		Phone:            snap.PhoneFor,
	}, c.th)
	snap.Level = alert.LevelFor(snap.Score)
	return snap
}

// ShouldDrive reports whether cur should be applied to the alarm actuator.
// Face frames always drive it. Neutral frames drive it only when the phone
// band moved, so a lost face does not silence or trigger the alarm by itself.
func ShouldDrive(prev, cur Snapshot) bool {
	if !cur.Neutral {
		return true
	}
	return prev.PhoneBand != cur.PhoneBand
}
