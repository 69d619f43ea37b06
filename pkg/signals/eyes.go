// Package signals converts per-frame booleans into time-aware signals.
//
// Every tracker is driven by the detection loop with the frame's timestamp
// and is not safe for concurrent use. Trackers assume the timestamps they are
// given never go backwards.
package signals

import "time"

// EyeClosureTracker measures how long the eyes have been continuously closed.
type EyeClosureTracker struct {
	closedSince time.Time
	tracking    bool
}

// Update records this frame's eye state and returns the continuous closure
// duration. The first closed frame of a run returns zero; an open frame clears
// the run and returns zero.
func (t *EyeClosureTracker) Update(eyesClosed bool, now time.Time) time.Duration {
	if !eyesClosed {
		t.Reset()
		return 0
	}
	if !t.tracking {
		t.closedSince = now
		t.tracking = true
		return 0
	}
	return nonNegative(now.Sub(t.closedSince))
}

// Reset forgets any closure in progress.
func (t *EyeClosureTracker) Reset() {
	t.closedSince = time.Time{}
	t.tracking = false
}

// ClosedSince returns the start of the current closure run, if any.
func (t *EyeClosureTracker) ClosedSince() (time.Time, bool) {
	return t.closedSince, t.tracking
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
