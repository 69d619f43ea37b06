package signals

import "time"

// Yawn debouncing defaults.
const (
	DefaultYawnDebounce    = 3 * time.Second
	DefaultYawnResetWindow = 10 * time.Second
)

// YawnDebouncer counts yawns, ignoring repeats of the same yawn across
// frames, and keeps a consecutive count that expires after inactivity.
//
// A drowsy yawning pattern is ConsecutiveCount >= 2. TotalCount only grows.
type YawnDebouncer struct {
	debounce    time.Duration
	resetWindow time.Duration

	total       uint
	consecutive uint
	lastYawnAt  time.Time
	hasYawned   bool
}

// NewYawnDebouncer returns a debouncer. Non-positive durations fall back to
// the defaults.
func NewYawnDebouncer(debounce, resetWindow time.Duration) *YawnDebouncer {
	if debounce <= 0 {
		debounce = DefaultYawnDebounce
	}
	if resetWindow <= 0 {
		resetWindow = DefaultYawnResetWindow
	}
	return &YawnDebouncer{debounce: debounce, resetWindow: resetWindow}
}

// Update records this frame's yawn state and returns the lifetime total and
// the current consecutive count.
func (y *YawnDebouncer) Update(isYawning bool, now time.Time) (total, consecutive uint) {
	switch {
	case isYawning && (!y.hasYawned || now.Sub(y.lastYawnAt) > y.debounce):
		y.total++
		y.consecutive++
		y.lastYawnAt = now
		y.hasYawned = true
	case !isYawning && y.hasYawned && now.Sub(y.lastYawnAt) > y.resetWindow:
		y.consecutive = 0
	}
	return y.total, y.consecutive
}

// ResetConsecutive clears the consecutive count without touching the total
// or the debounce reference.
func (y *YawnDebouncer) ResetConsecutive() {
	y.consecutive = 0
}

// TotalCount returns the lifetime number of counted yawns.
func (y *YawnDebouncer) TotalCount() uint { return y.total }

// ConsecutiveCount returns the yawns counted since the last inactivity reset.
func (y *YawnDebouncer) ConsecutiveCount() uint { return y.consecutive }

// LastYawnAt returns the instant of the last counted yawn, if any.
func (y *YawnDebouncer) LastYawnAt() (time.Time, bool) {
	return y.lastYawnAt, y.hasYawned
}
