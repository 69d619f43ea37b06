package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/camera"
	"github.com/teslashibe/go-safedrive/pkg/clock"
	"github.com/teslashibe/go-safedrive/pkg/display"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
)

// Config holds the live session's collaborators.
type Config struct {
	Engine    *Engine
	Camera    *camera.Camera
	Extractor landmarks.Extractor
	Window    *display.Window     // nil runs headless
	Policy    alert.Policy        // HUD colors
	Recording *landmarks.Recorder // optional landmark capture for replay
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Session is the live camera loop.
type Session struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and returns a session ready to Run.
func New(cfg Config) (*Session, error) {
	if cfg.Engine == nil || cfg.Camera == nil || cfg.Extractor == nil {
		return nil, errors.New("session needs an engine, a camera and an extractor")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Policy == nil {
		cfg.Policy = alert.DefaultPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{cfg: cfg, logger: logger.With("component", "session")}, nil
}

// Run processes frames until ctx is cancelled, the camera runs dry or the
// user quits the HUD. The alarm is stopped exactly once on the way out.
func (s *Session) Run(ctx context.Context) error {
	defer s.cfg.Engine.Close()

	img := gocv.NewMat()
	defer img.Close()

	var failures int
	s.logger.Info("session started", "source", s.cfg.Camera.Source())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped")
			return nil
		default:
		}

		if err := s.cfg.Camera.Read(&img); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("camera stream ended")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		now := s.cfg.Clock.Now()
		width, height := img.Cols(), img.Rows()

		jpeg, err := s.cfg.Camera.EncodeJPEG(img)
		if err != nil {
			return err
		}

		frame, err := s.cfg.Extractor.Extract(ctx, jpeg, width, height)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, landmarks.ErrWorkerClosed) {
				return err
			}
			// Skip the cycle rather than treat a slow worker as "no face"
			failures++
			if failures == 1 || failures%30 == 0 {
				s.logger.Warn("landmark extraction failed", "error", err, "failures", failures)
			}
			continue
		}
		failures = 0

		if s.cfg.Recording != nil {
			if err := s.cfg.Recording.Write(now, frame); err != nil {
				s.logger.Warn("landmark recording failed", "error", err)
			}
		}

		snap := s.cfg.Engine.Step(frame, now)
		if s.cfg.Engine.dashboard != nil {
			s.cfg.Engine.dashboard.SendCameraFrame(jpeg)
		}

		if s.cfg.Window != nil {
			display.Draw(&img, display.Overlay(snap, s.cfg.Policy))
			if !s.cfg.Window.Show(img) {
				s.logger.Info("quit requested")
				return nil
			}
		}
	}
}
