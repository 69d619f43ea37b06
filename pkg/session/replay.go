package session

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/go-safedrive/pkg/clock"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
)

// RecordSource yields recorded frames until io.EOF. *landmarks.Replay
// implements it.
type RecordSource interface {
	Next() (landmarks.Record, error)
}

// Replay feeds recorded frames through e on a manual clock starting at
// start, then stops the alarm. Records that go back in time are processed
// at the latest instant seen. The snapshots produced so far are returned
// even when an error stops the replay.
func Replay(ctx context.Context, e *Engine, src RecordSource, start time.Time) ([]fusion.Snapshot, error) {
	defer e.Close()

	clk := clock.NewManual(start)
	var snaps []fusion.Snapshot
	for {
		if err := ctx.Err(); err != nil {
			return snaps, err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return snaps, nil
		}
		if err != nil {
			return snaps, err
		}

		clk.Set(start.Add(rec.At))
		snaps = append(snaps, e.Step(rec.Frame, clk.Now()))
	}
}
