// Package config loads the safedrive configuration: built-in defaults, an
// optional YAML file, then SAFEDRIVE_* environment overrides (a .env file
// in the working directory is honored).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-safedrive/internal/log"
	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/audioio"
	"github.com/teslashibe/go-safedrive/pkg/camera"
	"github.com/teslashibe/go-safedrive/pkg/detectors"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
	"github.com/teslashibe/go-safedrive/pkg/signals"
	"github.com/teslashibe/go-safedrive/pkg/web"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultAlarmPath is where the alarm asset lives unless configured.
const DefaultAlarmPath = "data/alarm.wav"

// Detection holds the geometric and temporal thresholds. Times are seconds.
type Detection struct {
	EyeClosedThreshold      float64 `yaml:"eye_closed_threshold"`
	MouthOpenThreshold      float64 `yaml:"mouth_open_threshold"`
	MARThreshold            float64 `yaml:"mouth_aspect_ratio_threshold"`
	HeadRotationThreshold   float64 `yaml:"head_rotation_threshold"`
	HeadTiltThreshold       float64 `yaml:"head_tilt_threshold"`
	EyesClosedTimeThreshold float64 `yaml:"eyes_closed_time_threshold"`
	PhoneDetectionThreshold float64 `yaml:"phone_detection_threshold"`
}

// LevelStyle is one entry of alert.levels, e.g. {color: [0, 0, 255], sound: true}.
type LevelStyle struct {
	Color []int `yaml:"color,flow"`
	Sound bool  `yaml:"sound"`
}

// Alert configures the alarm asset and the per-level presentation.
type Alert struct {
	AlarmPath string                `yaml:"alarm_path"`
	Levels    map[string]LevelStyle `yaml:"levels"`
}

// Yawn configures the yawn debouncer. Seconds.
type Yawn struct {
	Debounce    float64 `yaml:"debounce"`
	ResetWindow float64 `yaml:"reset_window"`
}

// EventLog configures the sqlite event log. An empty path disables it.
type EventLog struct {
	Path string `yaml:"path"`
}

// Display configures the on-screen HUD window.
type Display struct {
	Window bool   `yaml:"window"`
	Title  string `yaml:"title"`
}

// AppConfig is the complete configuration.
type AppConfig struct {
	Detection Detection              `yaml:"detection"`
	Camera    camera.Config          `yaml:"camera"`
	Alert     Alert                  `yaml:"alert"`
	Yawn      Yawn                   `yaml:"yawn"`
	Audio     audioio.Config         `yaml:"audio"`
	Worker    landmarks.WorkerConfig `yaml:"worker"`
	Dashboard web.Config             `yaml:"dashboard"`
	EventLog  EventLog               `yaml:"eventlog"`
	Display   Display                `yaml:"display"`
	Log       log.Options            `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Detection: Detection{
			EyeClosedThreshold:      0.02,
			MouthOpenThreshold:      0.4,
			MARThreshold:            0.6,
			HeadRotationThreshold:   0.2,
			HeadTiltThreshold:       0.1,
			EyesClosedTimeThreshold: 20,
			PhoneDetectionThreshold: 5,
		},
		Camera: camera.DefaultConfig(),
		Alert: Alert{
			AlarmPath: DefaultAlarmPath,
			Levels:    defaultLevels(),
		},
		Yawn: Yawn{
			Debounce:    signals.DefaultYawnDebounce.Seconds(),
			ResetWindow: signals.DefaultYawnResetWindow.Seconds(),
		},
		Audio:     audioio.DefaultConfig(),
		Worker:    landmarks.DefaultWorkerConfig(),
		Dashboard: web.DefaultConfig(),
		Display:   Display{Window: true, Title: "SafeDrive"},
		Log:       log.Options{Level: "info", Format: "text"},
	}
}

func defaultLevels() map[string]LevelStyle {
	return map[string]LevelStyle{
		"NORMAL":  {Color: []int{0, 255, 0}, Sound: false},
		"WARNING": {Color: []int{0, 255, 255}, Sound: false},
		"DANGER":  {Color: []int{0, 0, 255}, Sound: true},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. Relative file paths in the result
// (alarm, event log, log dir, worker dir) are resolved against the config
// file's directory, or the working directory when there is no file.
func Load(path string) (*AppConfig, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := Default()
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Decode levels on their own so file entries overlay the defaults
		// whatever their case.
		cfg.Alert.Levels = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		levels := defaultLevels()
		for k, v := range normalizeLevelKeys(cfg.Alert.Levels) {
			levels[k] = v
		}
		cfg.Alert.Levels = levels
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		baseDir = filepath.Dir(abs)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.Alert.AlarmPath = resolvePath(cfg.Alert.AlarmPath, baseDir)
	cfg.EventLog.Path = resolvePath(cfg.EventLog.Path, baseDir)
	cfg.Log.Dir = resolvePath(cfg.Log.Dir, baseDir)
	// The worker's relative args (its script) resolve against its dir
	if cfg.Worker.Dir == "" {
		cfg.Worker.Dir = baseDir
	} else {
		cfg.Worker.Dir = resolvePath(cfg.Worker.Dir, baseDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Validate reports every problem at once. Each one wraps ErrInvalid.
func (c *AppConfig) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	d := c.Detection
	for name, v := range map[string]float64{
		"eye_closed_threshold":         d.EyeClosedThreshold,
		"mouth_open_threshold":         d.MouthOpenThreshold,
		"mouth_aspect_ratio_threshold": d.MARThreshold,
		"head_rotation_threshold":      d.HeadRotationThreshold,
		"head_tilt_threshold":          d.HeadTiltThreshold,
		"eyes_closed_time_threshold":   d.EyesClosedTimeThreshold,
		"phone_detection_threshold":    d.PhoneDetectionThreshold,
	} {
		if v < 0 {
			invalid("detection.%s must not be negative, got %v", name, v)
		}
	}
	if c.Yawn.Debounce <= 0 {
		invalid("yawn.debounce must be positive, got %v", c.Yawn.Debounce)
	}
	if c.Yawn.ResetWindow <= 0 {
		invalid("yawn.reset_window must be positive, got %v", c.Yawn.ResetWindow)
	}

	for _, msg := range c.Camera.Validate() {
		invalid("camera: %s", msg)
	}
	if err := c.Audio.Validate(); err != nil {
		invalid("audio: %v", err)
	}
	if c.Worker.Command == "" {
		invalid("worker.command is required")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		invalid("dashboard.port out of range: %d", c.Dashboard.Port)
	}
	if c.Dashboard.StatusHz < 0 {
		invalid("dashboard.status_hz must not be negative")
	}

	for name, style := range c.Alert.Levels {
		if _, err := alert.ParseLevel(name); err != nil {
			invalid("alert.levels: %v", err)
		}
		if _, err := toBGR(style.Color); err != nil {
			invalid("alert.levels.%s: %v", name, err)
		}
	}

	return errors.Join(errs...)
}

// Thresholds returns the detector thresholds.
func (c *AppConfig) Thresholds() detectors.Thresholds {
	return detectors.Thresholds{
		Eye:       c.Detection.EyeClosedThreshold,
		MAR:       c.Detection.MARThreshold,
		MouthOpen: c.Detection.MouthOpenThreshold,
		Rotation:  c.Detection.HeadRotationThreshold,
		Tilt:      c.Detection.HeadTiltThreshold,
	}
}

// Fusion returns the tracker and scoring configuration.
func (c *AppConfig) Fusion() fusion.Config {
	return fusion.Config{
		Thresholds: alert.Thresholds{
			EyesClosed: seconds(c.Detection.EyesClosedTimeThreshold),
			Phone:      seconds(c.Detection.PhoneDetectionThreshold),
		},
		YawnDebounce:    seconds(c.Yawn.Debounce),
		YawnResetWindow: seconds(c.Yawn.ResetWindow),
	}
}

// Policy returns the level table. Entries that fail validation are skipped.
func (c *AppConfig) Policy() alert.Policy {
	overrides := make(alert.Policy, len(c.Alert.Levels))
	for name, style := range c.Alert.Levels {
		level, err := alert.ParseLevel(name)
		if err != nil {
			continue
		}
		color, err := toBGR(style.Color)
		if err != nil {
			continue
		}
		overrides[level] = alert.Style{Color: color, Sound: style.Sound}
	}
	return alert.DefaultPolicy().Merge(overrides)
}

// YAML renders the effective configuration.
func (c *AppConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func toBGR(c []int) (alert.BGR, error) {
	if len(c) != 3 {
		return alert.BGR{}, fmt.Errorf("color needs 3 components, got %d", len(c))
	}
	var out alert.BGR
	for i, v := range c {
		if v < 0 || v > 255 {
			return alert.BGR{}, fmt.Errorf("color component %d out of range", v)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// normalizeLevelKeys upper-cases level names so "danger" and "DANGER" merge.
func normalizeLevelKeys(levels map[string]LevelStyle) map[string]LevelStyle {
	out := make(map[string]LevelStyle, len(levels))
	for k, v := range levels {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}
