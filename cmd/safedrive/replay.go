package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-safedrive/internal/log"
	"github.com/teslashibe/go-safedrive/pkg/alarm"
	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/audioio"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
	"github.com/teslashibe/go-safedrive/pkg/session"
)

func replayCmd(load loader) *cobra.Command {
	var (
		withSound  bool
		withEvents bool
	)

	cmd := &cobra.Command{
		Use:   "replay <file.jsonl>",
		Short: "Run a recorded landmark session",
		Long: `Feed a landmark recording made with 'run --record' through the
same classification and fusion pipeline, on the recording's own clock,
and print a summary.

The alarm runs on the mock backend unless --sound is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := log.With("command", "replay")

			src, err := landmarks.OpenReplay(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			var sink audioio.Sink = audioio.NewMockSink(logger)
			if withSound {
				if sink, err = audioio.NewSink(cfg.Audio, logger); err != nil {
					return fmt.Errorf("audio: %w", err)
				}
			}
			actuator := alarm.New(sink, cfg.Alert.AlarmPath, cfg.Policy().ShouldSound, logger)
			_ = actuator.Start()

			// Recordings carry offsets only; anchor them at the wall clock.
			start := time.Now()
			if !withEvents {
				cfg.EventLog.Path = ""
			}
			store, events, err := openEvents(cfg, start, logger)
			if err != nil {
				actuator.Stop()
				return err
			}

			engine := session.NewEngine(session.EngineConfig{
				Thresholds: cfg.Thresholds(),
				Fusion:     cfg.Fusion(),
				Actuator:   actuator,
				Events:     events,
				Logger:     logger,
			})
			snaps, err := session.Replay(cmd.Context(), engine, src, start)
			closeEvents(store, events, lastClock(snaps, start), logger)
			if err != nil {
				return err
			}

			return printSummary(cmd.OutOrStdout(), filepath.Base(args[0]), summarize(snaps))
		},
	}

	cmd.Flags().BoolVar(&withSound, "sound", false, "Play the alarm on the configured audio backend")
	cmd.Flags().BoolVar(&withEvents, "events", false, "Write alert events to the configured event log")
	return cmd
}

// replaySummary is what the replay command reports.
type replaySummary struct {
	Frames     int
	FaceFrames int
	Duration   time.Duration
	Levels     map[alert.Level]int // frames spent at each level
	MaxScore   int
	MaxLevel   alert.Level
	TotalYawns uint
	FirstAt    map[alert.Level]time.Duration // first entry into each level
}

func summarize(snaps []fusion.Snapshot) replaySummary {
	sum := replaySummary{
		Levels:  make(map[alert.Level]int, len(alert.Levels)),
		FirstAt: make(map[alert.Level]time.Duration, len(alert.Levels)),
	}
	if len(snaps) == 0 {
		return sum
	}
	start := snaps[0].Timestamp
	for _, s := range snaps {
		sum.Frames++
		if !s.Neutral {
			sum.FaceFrames++
		}
		sum.Levels[s.Level]++
		if _, seen := sum.FirstAt[s.Level]; !seen {
			sum.FirstAt[s.Level] = s.Timestamp.Sub(start)
		}
		if s.Score > sum.MaxScore {
			sum.MaxScore = s.Score
		}
		if s.Level > sum.MaxLevel {
			sum.MaxLevel = s.Level
		}
		sum.TotalYawns = s.TotalYawns
	}
	sum.Duration = snaps[len(snaps)-1].Timestamp.Sub(start)
	return sum
}

func printSummary(w io.Writer, name string, sum replaySummary) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	p("Replay:      %s\n", name)
	p("Frames:      %d (%d with a face)\n", sum.Frames, sum.FaceFrames)
	p("Duration:    %.1fs\n", sum.Duration.Seconds())
	p("Max level:   %s (score %d)\n", sum.MaxLevel, sum.MaxScore)
	p("Total yawns: %d\n", sum.TotalYawns)
	for _, l := range alert.Levels {
		first := "-"
		if at, ok := sum.FirstAt[l]; ok {
			first = fmt.Sprintf("%.1fs", at.Seconds())
		}
		p("  %-8s %6d frames, first at %s\n", l, sum.Levels[l], first)
	}
	return err
}

// fixedClock reports one instant; replay sessions end at their last frame.
type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func lastClock(snaps []fusion.Snapshot, start time.Time) fixedClock {
	if len(snaps) == 0 {
		return fixedClock(start)
	}
	return fixedClock(snaps[len(snaps)-1].Timestamp)
}
