package alert

import "time"

// Points awarded by each condition.
const (
	eyeLongPoints   = 2 // closed > 80% of the threshold
	eyeShortPoints  = 1 // closed > 50% of the threshold
	yawnPoints      = 1 // drowsy yawning pattern
	headBothPoints  = 2 // turned and tilted
	headOnePoints   = 1 // turned or tilted
	phoneLongPoints = 3 // phone held past the threshold
	phoneAnyPoints  = 1 // phone held at all

	drowsyYawns = 2

	dangerScore  = 3
	warningScore = 1
)

// Thresholds are the configured durations the score bands are relative to.
type Thresholds struct {
	EyesClosed time.Duration // eyes-closed time threshold
	Phone      time.Duration // phone detection threshold
}

// DefaultThresholds returns 20s eye closure and 5s phone use.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EyesClosed: 20 * time.Second,
		Phone:      5 * time.Second,
	}
}

// Inputs are the tracker outputs for one cycle.
type Inputs struct {
	EyeClosed        time.Duration
	ConsecutiveYawns uint
	HeadTurned       bool
	HeadTilted       bool
	Phone            time.Duration
}

// Score returns the additive severity total for in. Negative durations are
// treated as zero.
func Score(in Inputs, th Thresholds) int {
	eye := clamp(in.EyeClosed)
	phone := clamp(in.Phone)

	score := 0
	switch {
	case eye > scale(th.EyesClosed, 0.8):
		score += eyeLongPoints
	case eye > scale(th.EyesClosed, 0.5):
		score += eyeShortPoints
	}

	if in.ConsecutiveYawns >= drowsyYawns {
		score += yawnPoints
	}

	switch {
	case in.HeadTurned && in.HeadTilted:
		score += headBothPoints
	case in.HeadTurned || in.HeadTilted:
		score += headOnePoints
	}

	switch {
	case phone > th.Phone:
		score += phoneLongPoints
	case phone > 0:
		score += phoneAnyPoints
	}

	return score
}

// LevelFor maps a score to its band, most severe first.
func LevelFor(score int) Level {
	switch {
	case score >= dangerScore:
		return Danger
	case score >= warningScore:
		return Warning
	default:
		return Normal
	}
}

// Evaluate scores in and returns the resulting level.
func Evaluate(in Inputs, th Thresholds) Level {
	return LevelFor(Score(in, th))
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
