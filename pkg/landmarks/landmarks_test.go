package landmarks

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestPoint3D_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Point3D
		wantErr bool
	}{
		{"triple", `[0.1, 0.2, 0.3]`, Point3D{0.1, 0.2, 0.3}, false},
		{"pair", `[0.4, 0.5]`, Point3D{0.4, 0.5, 0}, false},
		{"object", `{"x": 0.6, "y": 0.7, "z": -0.1}`, Point3D{0.6, 0.7, -0.1}, false},
		{"too short", `[0.1]`, Point3D{}, true},
		{"garbage", `"nope"`, Point3D{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Point3D
			err := json.Unmarshal([]byte(tc.in), &p)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && p != tc.want {
				t.Errorf("got %+v, want %+v", p, tc.want)
			}
		})
	}
}

func TestFace_AtAndValid(t *testing.T) {
	var nilFace *Face
	if nilFace.Valid() {
		t.Error("nil face should be invalid")
	}
	if (nilFace.At(NoseTip) != Point3D{}) {
		t.Error("nil face At should return zero point")
	}

	short := &Face{Points: make([]Point3D, 10)}
	if short.Valid() {
		t.Error("truncated mesh should be invalid")
	}
	if (short.At(RightEar) != Point3D{}) {
		t.Error("out of range At should return zero point")
	}

	full := &Face{Points: make([]Point3D, FacePoints)}
	full.Points[Chin] = Point3D{X: 0.5, Y: 0.9}
	if !full.Valid() {
		t.Error("full mesh should be valid")
	}
	if full.At(Chin).Y != 0.9 {
		t.Errorf("At(Chin): got %+v", full.At(Chin))
	}

	if (Frame{Face: full}).HasFace() != true {
		t.Error("frame with full mesh should have a face")
	}
	if (Frame{}).HasFace() {
		t.Error("empty frame should not have a face")
	}
}

func TestRecorderReplay(t *testing.T) {
	start := time.Unix(100, 0)
	var buf bytes.Buffer
	rec := NewRecorder(&buf, start)

	face := &Face{Points: make([]Point3D, FacePoints)}
	face.Points[NoseTip] = Point3D{X: 0.5, Y: 0.5, Z: -0.02}
	hand := Hand{Points: make([]Point3D, HandPoints)}

	if err := rec.Write(start, Frame{Face: face, Width: 640, Height: 480}); err != nil {
		t.Fatal(err)
	}
	if err := rec.Write(start.Add(1500*time.Millisecond), Frame{Hands: []Hand{hand}, Width: 640, Height: 480}); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	rp := NewReplay(&buf)

	r1, err := rp.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if r1.At != 0 || !r1.Frame.HasFace() || r1.Frame.Face.At(NoseTip).Z != -0.02 {
		t.Errorf("first record mismatch: at=%v face=%v", r1.At, r1.Frame.HasFace())
	}

	r2, err := rp.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if r2.At != 1500*time.Millisecond || r2.Frame.HasFace() || len(r2.Frame.Hands) != 1 {
		t.Errorf("second record mismatch: %+v", r2)
	}
	if r2.Frame.Width != 640 || r2.Frame.Height != 480 {
		t.Errorf("frame size: got %dx%d", r2.Frame.Width, r2.Frame.Height)
	}

	if _, err := rp.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("end of replay: got %v, want io.EOF", err)
	}
}

func TestReplay_BadLine(t *testing.T) {
	rp := NewReplay(strings.NewReader("\n{\"t\": 0}\nnot json\n"))

	if _, err := rp.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := rp.Next()
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected line 3 error, got %v", err)
	}
}

func TestReplay_NegativeTimestamp(t *testing.T) {
	rp := NewReplay(strings.NewReader(`{"t": -1}`))
	if _, err := rp.Next(); err == nil {
		t.Error("negative timestamp should be rejected")
	}
}
