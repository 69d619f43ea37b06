package audioio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
)

// CommandKind is one operation issued to a MockSink.
type CommandKind string

const (
	CmdLoad  CommandKind = "load"
	CmdPlay  CommandKind = "play"
	CmdStop  CommandKind = "stop"
	CmdClose CommandKind = "close"
)

// Command is a recorded sink call.
type Command struct {
	Kind CommandKind
	Path string
}

// MockSink records every call for tests. It never touches hardware.
type MockSink struct {
	logger *slog.Logger

	mu       sync.Mutex
	commands []Command
	path     string
	playing  bool
	closed   bool

	// LoadErr and PlayErr, when set, are returned by Load and PlayLoop.
	LoadErr error
	PlayErr error
}

// MockSinkOption configures a MockSink.
type MockSinkOption func(*MockSink)

// WithLoadError makes Load fail with err.
func WithLoadError(err error) MockSinkOption {
	return func(m *MockSink) { m.LoadErr = err }
}

// WithPlayError makes PlayLoop fail with err.
func WithPlayError(err error) MockSinkOption {
	return func(m *MockSink) { m.PlayErr = err }
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(logger *slog.Logger, opts ...MockSinkOption) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSink{logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load records the call.
func (m *MockSink) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	m.commands = append(m.commands, Command{Kind: CmdLoad, Path: path})
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.path = path
	return nil
}

// PlayLoop records the call and marks the sink playing.
func (m *MockSink) PlayLoop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	m.commands = append(m.commands, Command{Kind: CmdPlay, Path: m.path})
	if m.PlayErr != nil {
		return m.PlayErr
	}
	if m.path == "" {
		return errors.New("no asset loaded")
	}
	m.playing = true
	return nil
}

// Stop records the call.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = append(m.commands, Command{Kind: CmdStop})
	m.playing = false
	return nil
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close records the call. Repeated calls are recorded but have no effect.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = append(m.commands, Command{Kind: CmdClose})
	m.closed = true
	m.playing = false
	return nil
}

// Commands returns a copy of every recorded call in order.
func (m *MockSink) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// Count returns how many calls of kind were recorded.
func (m *MockSink) Count(kind CommandKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.commands {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Playing reports whether the mock is currently "playing".
func (m *MockSink) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Stats returns sink statistics derived from the recorded calls.
func (m *MockSink) Stats() SinkStats {
	return SinkStats{
		Plays:   int64(m.Count(CmdPlay)),
		Stops:   int64(m.Count(CmdStop)),
		Playing: m.Playing(),
		Backend: "mock",
	}
}

var _ SinkWithStats = (*MockSink)(nil)
