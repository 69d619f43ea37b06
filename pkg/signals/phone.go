package signals

import "time"

// PhoneUsageTracker measures how long a phone has been continuously detected.
//
// There is no hysteresis: one frame without a phone-holding hand clears the
// timer. Frames with several hands must be reduced to a single boolean
// before calling Update.
type PhoneUsageTracker struct {
	detectedSince time.Time
	tracking      bool
}

// Update records this frame's phone state and returns the continuous
// detection duration.
func (t *PhoneUsageTracker) Update(phoneDetected bool, now time.Time) time.Duration {
	if !phoneDetected {
		t.Reset()
		return 0
	}
	if !t.tracking {
		t.detectedSince = now
		t.tracking = true
		return 0
	}
	return nonNegative(now.Sub(t.detectedSince))
}

// Reset forgets any detection in progress.
func (t *PhoneUsageTracker) Reset() {
	t.detectedSince = time.Time{}
	t.tracking = false
}

// DetectedSince returns the start of the current detection run, if any.
func (t *PhoneUsageTracker) DetectedSince() (time.Time, bool) {
	return t.detectedSince, t.tracking
}
