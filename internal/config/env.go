package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/teslashibe/go-safedrive/pkg/audioio"
)

// Environment variables that override the file configuration.
const (
	EnvCameraIndex   = "SAFEDRIVE_CAMERA_INDEX"
	EnvCameraFile    = "SAFEDRIVE_CAMERA_FILE"
	EnvAlarmPath     = "SAFEDRIVE_ALARM_PATH"
	EnvAudioBackend  = "SAFEDRIVE_AUDIO_BACKEND"
	EnvAudioDevice   = "SAFEDRIVE_AUDIO_DEVICE"
	EnvWorkerCommand = "SAFEDRIVE_WORKER_COMMAND"
	EnvDashboardPort = "SAFEDRIVE_DASHBOARD_PORT" // also enables the dashboard
	EnvEventLogPath  = "SAFEDRIVE_EVENTLOG_PATH"
	EnvLogLevel      = "SAFEDRIVE_LOG_LEVEL"
	EnvLogFormat     = "SAFEDRIVE_LOG_FORMAT"
	EnvLogDir        = "SAFEDRIVE_LOG_DIR"
	EnvHeadless      = "SAFEDRIVE_HEADLESS" // "1" or "true" disables the HUD window
)

// applyEnv overlays SAFEDRIVE_* variables onto cfg.
func applyEnv(cfg *AppConfig) error {
	if v, ok := lookup(EnvCameraIndex); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, EnvCameraIndex, v)
		}
		cfg.Camera.Index = n
	}
	if v, ok := lookup(EnvCameraFile); ok {
		cfg.Camera.File = v
	}
	if v, ok := lookup(EnvAlarmPath); ok {
		cfg.Alert.AlarmPath = v
	}
	if v, ok := lookup(EnvAudioBackend); ok {
		cfg.Audio.Backend = audioio.Backend(v)
	}
	if v, ok := lookup(EnvAudioDevice); ok {
		cfg.Audio.Device = v
	}
	if v, ok := lookup(EnvWorkerCommand); ok {
		cfg.Worker.Command = v
	}
	if v, ok := lookup(EnvDashboardPort); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalid, EnvDashboardPort, v)
		}
		cfg.Dashboard.Port = n
		cfg.Dashboard.Enabled = true
	}
	if v, ok := lookup(EnvEventLogPath); ok {
		cfg.EventLog.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookup(EnvLogDir); ok {
		cfg.Log.Dir = v
	}
	if v, ok := lookup(EnvHeadless); ok {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, EnvHeadless, v)
		}
		cfg.Display.Window = !headless
	}
	return nil
}

// lookup returns a non-empty environment value.
func lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
