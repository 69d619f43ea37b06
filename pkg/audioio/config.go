// Package audioio plays the alarm asset on a local audio device.
//
// This package supports multiple backends:
//   - ALSA (Linux) - plays through aplay
//   - CoreAudio (macOS) - plays through afplay
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically based on the platform, or can be
// explicitly specified via configuration.
package audioio

import (
	"errors"
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendALSA uses Linux ALSA (aplay) for playback.
	BackendALSA Backend = "alsa"
	// BackendCoreAudio uses macOS CoreAudio (afplay) for playback.
	BackendCoreAudio Backend = "coreaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// ErrDeviceUnavailable is returned when the backend cannot play audio on
// this machine (player binary or device missing).
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `yaml:"backend" json:"backend"`

	// Device is the platform-specific device identifier.
	// Examples:
	//   - ALSA: "default", "plughw:1,0"
	//   - CoreAudio: ignored
	//   - Mock: ignored
	Device string `yaml:"device" json:"device"`

	// RestartDelay is the pause between two plays of a looping asset.
	RestartDelay time.Duration `yaml:"restart_delay" json:"restart_delay"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendAuto,
		Device:       "", // Use system default
		RestartDelay: 50 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendALSA, BackendCoreAudio, BackendMock, "":
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	if c.RestartDelay < 0 {
		return fmt.Errorf("restart_delay must not be negative, got %v", c.RestartDelay)
	}
	return nil
}
