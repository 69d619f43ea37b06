package camera

import (
	"fmt"
	"sort"
)

// Preset names for common capture modes
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowPowerConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LowPowerConfig trades resolution for landmark latency on small boards.
func LowPowerConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.FPS = 15
	cfg.Quality = 70
	return cfg
}

// HD720Config returns 720p.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p. Landmark extraction gets noticeably slower.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.FPS = 15
	return cfg
}

// WithPreset returns cfg with the preset's capture mode applied. The device
// index and video file are kept.
func WithPreset(cfg Config, name string) (Config, error) {
	p := GetPreset(name)
	if p == nil {
		return cfg, fmt.Errorf("unknown camera preset %q (have %v)", name, PresetNames())
	}
	p.Index = cfg.Index
	p.File = cfg.File
	return *p, nil
}
