package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// errorBackoff is the minimum pause before relaunching a player that failed.
const errorBackoff = time.Second

// player describes an external command that plays one file to completion.
type player struct {
	name string
	bin  string
	args func(path string) []string
}

func alsaPlayer(device string) player {
	return player{
		name: "alsa",
		bin:  "aplay",
		args: func(path string) []string {
			if device == "" {
				return []string{"-q", path}
			}
			return []string{"-q", "-D", device, path}
		},
	}
}

func coreAudioPlayer() player {
	return player{
		name: "coreaudio",
		bin:  "afplay",
		args: func(path string) []string { return []string{path} },
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// ExecSink loops an asset by relaunching a command-line player until stopped.
// Playback runs in its own goroutine; PlayLoop never waits for it.
type ExecSink struct {
	cfg    Config
	logger *slog.Logger
	player player

	mu      sync.Mutex
	path    string
	loaded  bool
	closed  bool
	playing bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Stats
	plays    atomic.Int64
	stops    atomic.Int64
	restarts atomic.Int64
}

func newExecSink(cfg Config, logger *slog.Logger, p player) *ExecSink {
	return &ExecSink{
		cfg:    cfg,
		logger: logger,
		player: p,
	}
}

// Load checks that both the asset and the player binary are present.
func (s *ExecSink) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("alarm asset: %w", err)
	}
	if _, err := lookPath(s.player.bin); err != nil {
		return fmt.Errorf("%s player %q: %w", s.player.name, s.player.bin, ErrDeviceUnavailable)
	}

	s.path = path
	s.loaded = true
	s.logger.Info("alarm asset loaded", "backend", s.player.name, "path", path)
	return nil
}

// PlayLoop starts the playback goroutine. It is a no-op while already playing.
func (s *ExecSink) PlayLoop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if !s.loaded {
		return errors.New("no asset loaded")
	}
	if s.playing {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.playing = true
	s.plays.Add(1)

	go s.loop(ctx, s.path, s.done)
	return nil
}

func (s *ExecSink) loop(ctx context.Context, path string, done chan struct{}) {
	defer close(done)

	for {
		cmd := exec.CommandContext(ctx, s.player.bin, s.player.args(path)...)
		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}

		delay := s.cfg.RestartDelay
		if err != nil {
			s.logger.Warn("alarm player exited", "backend", s.player.name, "error", err)
			if delay < errorBackoff {
				delay = errorBackoff
			}
		}
		s.restarts.Add(1)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Stop kills the running player and waits for the playback goroutine.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.playing = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.stops.Add(1)
	return nil
}

// Name returns the backend name.
func (s *ExecSink) Name() string {
	return s.player.name
}

// Close stops playback and releases the sink.
func (s *ExecSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns sink statistics.
func (s *ExecSink) Stats() SinkStats {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()

	return SinkStats{
		Plays:    s.plays.Load(),
		Stops:    s.stops.Load(),
		Restarts: s.restarts.Load(),
		Playing:  playing,
		Backend:  s.player.name,
	}
}

var _ SinkWithStats = (*ExecSink)(nil)
