// Package camera opens the driver-facing camera and hands out frames.
package camera

import "fmt"

// Config holds capture parameters.
type Config struct {
	// Index is the OpenCV device index. Ignored when File is set.
	Index int `yaml:"index" json:"index"`

	// File plays a video file instead of a live device (bench testing).
	File string `yaml:"file" json:"file,omitempty"`

	Width   int `yaml:"width" json:"width"`     // requested frame width
	Height  int `yaml:"height" json:"height"`   // requested frame height
	FPS     int `yaml:"fps" json:"fps"`         // requested frame rate
	Quality int `yaml:"quality" json:"quality"` // JPEG quality for the landmark worker and dashboard
}

// Capture limits
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 3840
	MaxHeight = 2160
	MaxFPS    = 120
)

// DefaultConfig returns 640x480 at 30 FPS from device 0.
func DefaultConfig() Config {
	return Config{
		Index:   0,
		Width:   640,
		Height:  480,
		FPS:     30,
		Quality: 80,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Index < 0 {
		errs = append(errs, "index must not be negative")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errs = append(errs, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errs = append(errs, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.FPS < 1 || c.FPS > MaxFPS {
		errs = append(errs, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}

	return errs
}
