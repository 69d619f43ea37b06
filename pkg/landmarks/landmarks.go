// Package landmarks defines the face and hand points produced by the
// landmark extraction collaborator (a MediaPipe process) and the ways to
// obtain them.
package landmarks

import (
	"context"
	"encoding/json"
	"fmt"
)

// Face mesh indices used by the classifiers.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip          = 1
	Forehead         = 10
	MouthInnerTop    = 13
	MouthInnerBottom = 14
	MouthLeft        = 61
	LeftTemple       = 127
	LeftEyeBottom    = 145
	Chin             = 152
	LeftEyeTop       = 159
	LeftEar          = 234
	MouthRight       = 291
	RightTemple      = 356
	RightEyeBottom   = 374
	RightEyeTop      = 386
	RightEar         = 454

	// FacePoints is the refined face mesh size (468 mesh + 10 iris).
	FacePoints = 478
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	ThumbTip   = 4
	IndexTip   = 8
	MiddleTip  = 12
	RingTip    = 16
	PinkyTip   = 20
	HandPoints = 21
)

// Point3D is a normalized landmark: x and y in [0,1] of the frame, z relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MarshalJSON encodes the point as a compact [x, y, z] triple.
func (p Point3D) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.X, p.Y, p.Z})
}

// UnmarshalJSON accepts [x, y], [x, y, z] or {"x":..,"y":..,"z":..}.
func (p *Point3D) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) < 2 || len(arr) > 3 {
			return fmt.Errorf("point needs 2 or 3 coordinates, got %d", len(arr))
		}
		p.X, p.Y = arr[0], arr[1]
		p.Z = 0
		if len(arr) == 3 {
			p.Z = arr[2]
		}
		return nil
	}
	var obj struct{ X, Y, Z float64 }
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	p.X, p.Y, p.Z = obj.X, obj.Y, obj.Z
	return nil
}

// Pixel scales the point to a width x height frame.
func (p Point3D) Pixel(width, height int) (x, y float64) {
	return p.X * float64(width), p.Y * float64(height)
}

// Face is one detected face mesh.
type Face struct {
	Points []Point3D
}

// At returns the point at index i, or the zero point if out of range.
func (f *Face) At(i int) Point3D {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point3D{}
	}
	return f.Points[i]
}

// Valid reports whether the face has the full mesh.
func (f *Face) Valid() bool {
	return f != nil && len(f.Points) >= FacePoints
}

// Hand is one detected hand.
type Hand struct {
	Points []Point3D
}

// At returns the point at index i, or the zero point if out of range.
func (h Hand) At(i int) Point3D {
	if i < 0 || i >= len(h.Points) {
		return Point3D{}
	}
	return h.Points[i]
}

// Valid reports whether the hand has all 21 points.
func (h Hand) Valid() bool {
	return len(h.Points) >= HandPoints
}

// Frame is everything extracted from one video frame. Face is nil when no
// face was found.
type Frame struct {
	Face   *Face  `json:"face,omitempty"`
	Hands  []Hand `json:"hands,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// HasFace reports whether a usable face mesh is present.
func (f Frame) HasFace() bool {
	return f.Face.Valid()
}

// Extractor turns an encoded image into landmarks.
type Extractor interface {
	// Extract returns the landmarks for a JPEG-encoded frame of the given size.
	Extract(ctx context.Context, jpeg []byte, width, height int) (Frame, error)

	// Close releases resources
	Close() error
}

// MarshalJSON encodes the face as a bare list of points.
func (f Face) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Points)
}

// UnmarshalJSON decodes a bare list of points.
func (f *Face) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &f.Points)
}

// MarshalJSON encodes the hand as a bare list of points.
func (h Hand) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Points)
}

// UnmarshalJSON decodes a bare list of points.
func (h *Hand) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &h.Points)
}
