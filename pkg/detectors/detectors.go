// Package detectors classifies one frame of landmarks into the boolean
// signals the trackers consume. Everything here is stateless geometry over
// normalized coordinates.
package detectors

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
	"github.com/teslashibe/go-safedrive/pkg/signals"
)

// Thresholds are the geometric cut-offs, all in normalized units.
type Thresholds struct {
	Eye       float64 `yaml:"eye_threshold" json:"eye_threshold"`
	MAR       float64 `yaml:"mar_threshold" json:"mar_threshold"`
	MouthOpen float64 `yaml:"mouth_open_threshold" json:"mouth_open_threshold"`
	Rotation  float64 `yaml:"head_rotation_threshold" json:"head_rotation_threshold"`
	Tilt      float64 `yaml:"head_tilt_threshold" json:"head_tilt_threshold"`
}

// DefaultThresholds returns thresholds tuned for a dashboard-mounted camera.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Eye:       0.02,
		MAR:       0.6,
		MouthOpen: 0.4,
		Rotation:  0.2,
		Tilt:      0.1,
	}
}

// Phone heuristic: fingertip gaps relative to the frame width.
const (
	phoneMeanGap = 0.15
	phoneMaxGap  = 0.25
)

// EyeOpening returns the vertical eyelid gap between two landmarks.
func EyeOpening(face *landmarks.Face, top, bottom int) float64 {
	return math.Abs(face.At(top).Y - face.At(bottom).Y)
}

// EyesClosed reports whether both eyes are open less than threshold.
func EyesClosed(face *landmarks.Face, threshold float64) bool {
	left := EyeOpening(face, landmarks.LeftEyeTop, landmarks.LeftEyeBottom)
	right := EyeOpening(face, landmarks.RightEyeTop, landmarks.RightEyeBottom)
	return left < threshold && right < threshold
}

// MouthOpening returns the mouth aspect ratio and the inner lip gap.
// Both are zero when the mouth corners coincide horizontally.
func MouthOpening(face *landmarks.Face) (mar, height float64) {
	height = math.Abs(face.At(landmarks.MouthInnerTop).Y - face.At(landmarks.MouthInnerBottom).Y)
	width := math.Abs(face.At(landmarks.MouthLeft).X - face.At(landmarks.MouthRight).X)
	if width == 0 {
		return 0, 0
	}
	return height / width, height
}

// Yawning reports whether the mouth exceeds both the MAR and opening thresholds.
func Yawning(face *landmarks.Face, marThreshold, openThreshold float64) bool {
	mar, height := MouthOpening(face)
	return mar > marThreshold && height > openThreshold
}

// HeadPosition classifies head rotation from the ear and temple spread and
// tilt from the forehead to chin spread.
func HeadPosition(face *landmarks.Face, rotation, tilt float64) signals.HeadPose {
	nose := face.At(landmarks.NoseTip)
	leftEar, rightEar := face.At(landmarks.LeftEar), face.At(landmarks.RightEar)
	leftTemple, rightTemple := face.At(landmarks.LeftTemple), face.At(landmarks.RightTemple)
	forehead, chin := face.At(landmarks.Forehead), face.At(landmarks.Chin)

	spread := (math.Abs(leftEar.X-rightEar.X) + math.Abs(leftTemple.X-rightTemple.X)) / 2
	vertical := math.Abs(forehead.Y - chin.Y)

	var pose signals.HeadPose
	if spread > rotation {
		pose.Turned = true
		pose.Horizontal = signals.DirectionRight
		if leftEar.X > rightEar.X {
			pose.Horizontal = signals.DirectionLeft
		}
	}
	if vertical > tilt {
		pose.Tilted = true
		pose.Vertical = signals.DirectionUp
		if nose.Y > (forehead.Y+chin.Y)/2 {
			pose.Vertical = signals.DirectionDown
		}
	}
	return pose
}

// PhoneUsage reports whether a hand's fingertips are bunched and aligned the
// way they are when holding a phone. Gaps are measured in pixels.
func PhoneUsage(hand landmarks.Hand, width, height int) bool {
	if !hand.Valid() || width <= 0 {
		return false
	}

	tips := []int{
		landmarks.ThumbTip,
		landmarks.IndexTip,
		landmarks.MiddleTip,
		landmarks.RingTip,
		landmarks.PinkyTip,
	}
	gaps := make([]float64, 0, len(tips)-1)
	for i := 1; i < len(tips); i++ {
		ax, ay := hand.At(tips[i-1]).Pixel(width, height)
		bx, by := hand.At(tips[i]).Pixel(width, height)
		gaps = append(gaps, math.Hypot(ax-bx, ay-by))
	}

	w := float64(width)
	return stat.Mean(gaps, nil) < w*phoneMeanGap && floats.Max(gaps) < w*phoneMaxGap
}

// AnyPhone reports whether any hand looks like it is holding a phone.
func AnyPhone(hands []landmarks.Hand, width, height int) bool {
	for _, h := range hands {
		if PhoneUsage(h, width, height) {
			return true
		}
	}
	return false
}

// Classify turns one frame of landmarks into fusion input. A frame without
// a usable face mesh yields FaceDetected=false; hands are still checked.
func Classify(frame landmarks.Frame, th Thresholds, now time.Time) fusion.FrameSignals {
	fs := fusion.FrameSignals{
		PhoneDetected: AnyPhone(frame.Hands, frame.Width, frame.Height),
		Timestamp:     now,
	}
	if !frame.HasFace() {
		return fs
	}

	face := frame.Face
	fs.FaceDetected = true
	fs.EyesClosed = EyesClosed(face, th.Eye)
	fs.IsYawning = Yawning(face, th.MAR, th.MouthOpen)
	fs.Head = HeadPosition(face, th.Rotation, th.Tilt)
	return fs
}
