package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-safedrive/internal/config"
	"github.com/teslashibe/go-safedrive/internal/log"
	"github.com/teslashibe/go-safedrive/pkg/alarm"
	"github.com/teslashibe/go-safedrive/pkg/audioio"
	"github.com/teslashibe/go-safedrive/pkg/camera"
	"github.com/teslashibe/go-safedrive/pkg/clock"
	"github.com/teslashibe/go-safedrive/pkg/display"
	"github.com/teslashibe/go-safedrive/pkg/eventlog"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
	"github.com/teslashibe/go-safedrive/pkg/session"
	"github.com/teslashibe/go-safedrive/pkg/web"
)

func runCmd(load loader) *cobra.Command {
	var (
		recordPath string
		preset     string
		headless   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor the driver live",
		Long: `Open the camera (or camera.file), start the landmark worker and run
the monitoring loop until interrupted, the video ends, or 'q' is pressed
in the HUD window.

With --record every extracted frame is written to a JSONL file that the
replay command can run later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if headless {
				cfg.Display.Window = false
			}
			if preset != "" {
				if cfg.Camera, err = camera.WithPreset(cfg.Camera, preset); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			logger := log.With("command", "run")
			clk := clock.System{}
			started := clk.Now()

			actuator := newActuator(cfg, logger)

			store, events, err := openEvents(cfg, started, logger)
			if err != nil {
				actuator.Stop()
				return err
			}
			defer closeEvents(store, events, clk, logger)

			var dashboard *web.Server
			var publisher session.Publisher
			if cfg.Dashboard.Enabled {
				dashboard = web.NewServer(cfg.Dashboard, cfg.Policy(), logger)
				if store != nil {
					dashboard.SetHistory(store, events.SessionID())
				}
				dashboard.StartAsync(ctx)
				publisher = dashboard
			}

			engine := session.NewEngine(session.EngineConfig{
				Thresholds: cfg.Thresholds(),
				Fusion:     cfg.Fusion(),
				Actuator:   actuator,
				Events:     events,
				Dashboard:  publisher,
				Logger:     logger,
			})
			// Any early return below still has to silence the alarm.
			defer engine.Close()

			worker, err := landmarks.StartWorker(cfg.Worker, logger)
			if err != nil {
				return fmt.Errorf("start landmark worker: %w", err)
			}
			defer worker.Close()

			cam, err := camera.Open(cfg.Camera, logger)
			if err != nil {
				return err
			}
			defer cam.Close()

			var window *display.Window
			if cfg.Display.Window {
				window = display.NewWindow(cfg.Display.Title)
				defer window.Close()
			}

			var recording *landmarks.Recorder
			if recordPath != "" {
				recording, err = landmarks.CreateRecorder(recordPath, started)
				if err != nil {
					return err
				}
				defer func() {
					if err := recording.Close(); err != nil {
						logger.Warn("close recording", "error", err)
					}
				}()
				logger.Info("recording landmarks", "path", recordPath)
			}

			sess, err := session.New(session.Config{
				Engine:    engine,
				Camera:    cam,
				Extractor: worker,
				Window:    window,
				Policy:    cfg.Policy(),
				Recording: recording,
				Clock:     clk,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			runErr := sess.Run(ctx)
			stats := worker.Stats()
			logger.Info("session finished",
				"duration", clk.Now().Sub(started).Round(time.Second),
				"frames", stats.Responses,
				"timeouts", stats.Timeouts,
				"last_level", engine.Last().Level,
			)
			return runErr
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Write extracted landmarks to this JSONL file")
	cmd.Flags().StringVar(&preset, "preset", "", "Camera capture preset: "+strings.Join(camera.PresetNames(), ", "))
	cmd.Flags().BoolVar(&headless, "headless", false, "Do not open the HUD window")
	return cmd
}

// newActuator builds the alarm on the configured audio backend. A missing
// device or asset leaves the monitor running without sound.
func newActuator(cfg *config.AppConfig, logger *slog.Logger) *alarm.Actuator {
	sink, err := audioio.NewSink(cfg.Audio, logger)
	if err != nil {
		logger.Warn("audio unavailable, alarm disabled", "error", err)
		sink = nil
	}
	a := alarm.New(sink, cfg.Alert.AlarmPath, cfg.Policy().ShouldSound, logger)
	_ = a.Start() // logged by the actuator
	return a
}

// openEvents opens the event log and begins a session. An empty path
// returns nils and the engine runs without one.
func openEvents(cfg *config.AppConfig, at time.Time, logger *slog.Logger) (*eventlog.Store, *eventlog.Recorder, error) {
	if cfg.EventLog.Path == "" {
		return nil, nil, nil
	}
	store, err := eventlog.Open(cfg.EventLog.Path)
	if err != nil {
		return nil, nil, err
	}
	id, err := store.BeginSession(at)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Info("event log session started", "path", cfg.EventLog.Path, "session", id)
	return store, eventlog.NewRecorder(store, id, logger), nil
}

func closeEvents(store *eventlog.Store, events *eventlog.Recorder, clk clock.Clock, logger *slog.Logger) {
	if store == nil {
		return
	}
	id := events.SessionID()
	if err := store.EndSession(id, clk.Now()); err != nil {
		logger.Warn("end event log session", "error", err)
	}
	if sum, err := store.Summary(id); err == nil {
		logger.Info("event log summary",
			"session", id,
			"duration", sum.Duration().Round(time.Second),
			"transitions", sum.Transitions,
			"total_yawns", sum.TotalYawns,
		)
	}
	if err := store.Close(); err != nil {
		logger.Warn("close event log", "error", err)
	}
}
