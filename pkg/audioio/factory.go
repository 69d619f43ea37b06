package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSink builds the sink for cfg.Backend. BackendAuto picks the platform
// player and fails with ErrDeviceUnavailable when none is installed; the
// mock sink is only used when asked for by name.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto || backend == "" {
		var ok bool
		if backend, ok = detectBackend(); !ok {
			return nil, fmt.Errorf("%w: no audio player installed for %s", ErrDeviceUnavailable, runtime.GOOS)
		}
	}

	if backend == BackendMock {
		logger.Info("audio sink ready", "backend", backend)
		return NewMockSink(logger), nil
	}
	p, ok := playerFor(backend, cfg.Device)
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	logger.Info("audio sink ready", "backend", backend, "player", p.bin, "device", cfg.Device)
	return newExecSink(cfg, logger, p), nil
}

func playerFor(backend Backend, device string) (player, bool) {
	switch backend {
	case BackendALSA:
		return alsaPlayer(device), true
	case BackendCoreAudio:
		return coreAudioPlayer(), true
	default:
		return player{}, false
	}
}

// platformBackend is the player backend native to goos, or mock.
func platformBackend(goos string) Backend {
	switch goos {
	case "linux":
		return BackendALSA
	case "darwin":
		return BackendCoreAudio
	default:
		return BackendMock
	}
}

// detectBackend returns the native backend if its player is installed.
func detectBackend() (Backend, bool) {
	backend := platformBackend(runtime.GOOS)
	p, ok := playerFor(backend, "")
	if !ok {
		return "", false
	}
	if _, err := lookPath(p.bin); err != nil {
		return "", false
	}
	return backend, true
}
