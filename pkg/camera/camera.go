package camera

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gocv.io/x/gocv"
)

// ErrNoCamera is returned when neither the configured device nor the
// fallback device can be opened.
var ErrNoCamera = errors.New("no camera available")

// Camera wraps an OpenCV capture device.
type Camera struct {
	cfg    Config
	cap    *gocv.VideoCapture
	source string
	logger *slog.Logger
}

// Open opens the configured device. If it cannot be opened, device 0 is
// tried before giving up with ErrNoCamera.
func Open(cfg Config, logger *slog.Logger) (*Camera, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "camera")

	if cfg.File != "" {
		vc, err := gocv.OpenVideoCapture(cfg.File)
		if err != nil || !vc.IsOpened() {
			closeCapture(vc)
			return nil, fmt.Errorf("open video %s: %w", cfg.File, ErrNoCamera)
		}
		logger.Info("playing video file", "file", cfg.File)
		return &Camera{cfg: cfg, cap: vc, source: cfg.File, logger: logger}, nil
	}

	vc, err := openDevice(cfg)
	if err != nil && cfg.Index != 0 {
		logger.Warn("camera unavailable, falling back to device 0", "index", cfg.Index, "error", err)
		cfg.Index = 0
		vc, err = openDevice(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}

	logger.Info("camera opened",
		"index", cfg.Index,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)))
	return &Camera{cfg: cfg, cap: vc, source: fmt.Sprintf("device %d", cfg.Index), logger: logger}, nil
}

func openDevice(cfg Config) (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		closeCapture(vc)
		return nil, fmt.Errorf("device %d did not open", cfg.Index)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}
	return vc, nil
}

func closeCapture(vc *gocv.VideoCapture) {
	if vc != nil {
		vc.Close()
	}
}

// Read grabs the next frame into img. It returns io.EOF when the stream ends
// or the device stops delivering frames.
func (c *Camera) Read(img *gocv.Mat) error {
	if ok := c.cap.Read(img); !ok || img.Empty() {
		return io.EOF
	}
	return nil
}

// EncodeJPEG compresses img at the configured quality.
func (c *Camera) EncodeJPEG(img gocv.Mat) ([]byte, error) {
	return EncodeJPEG(img, c.cfg.Quality)
}

// EncodeJPEG compresses img at the given quality (1-100).
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory that Close frees
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Source describes where frames come from.
func (c *Camera) Source() string { return c.source }

// Close releases the device.
func (c *Camera) Close() error {
	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.cap = nil
	return err
}
