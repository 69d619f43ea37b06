package audioio

import "io"

// Sink plays a single audio asset in a loop.
//
// Sink implementations are safe for concurrent use, but callers that need
// "exactly one start per transition" semantics must serialize their own
// calls (see pkg/alarm).
type Sink interface {
	// Load acquires the device and prepares the asset at path.
	// Load must succeed before PlayLoop.
	Load(path string) error

	// PlayLoop starts looping playback and returns immediately.
	// Playback continues until Stop or Close.
	PlayLoop() error

	// Stop halts playback.
	// It is safe to call Stop multiple times.
	Stop() error

	// Name returns the backend name (e.g., "alsa", "coreaudio", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the sink cannot be restarted.
	io.Closer
}

// SinkStats contains statistics about the audio sink.
type SinkStats struct {
	// Plays is the number of PlayLoop calls that started playback.
	Plays int64 `json:"plays"`

	// Stops is the number of Stop calls that halted playback.
	Stops int64 `json:"stops"`

	// Restarts is the number of times the looping player was relaunched.
	Restarts int64 `json:"restarts"`

	// Playing indicates if the sink is currently playing.
	Playing bool `json:"playing"`

	// Backend is the name of the audio backend.
	Backend string `json:"backend"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
