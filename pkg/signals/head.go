package signals

// Direction is the side a head is turned or tilted toward.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// HeadPose is the per-frame head classification. It carries no temporal
// state and is passed through to fusion as-is.
type HeadPose struct {
	Turned     bool      `json:"turned"`
	Tilted     bool      `json:"tilted"`
	Horizontal Direction `json:"horizontal,omitempty"`
	Vertical   Direction `json:"vertical,omitempty"`
}

// NeutralHead is the pose used when no face is visible.
func NeutralHead() HeadPose { return HeadPose{} }

// Distracted reports whether the head is turned or tilted.
func (h HeadPose) Distracted() bool { return h.Turned || h.Tilted }
