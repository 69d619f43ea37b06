package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
)

func TestSummarize(t *testing.T) {
	start := time.Unix(1000, 0)
	at := func(s float64) time.Time { return start.Add(time.Duration(s * float64(time.Second))) }

	snaps := []fusion.Snapshot{
		{Level: alert.Normal, Score: 0, Timestamp: at(0)},
		{Level: alert.Warning, Score: 1, Timestamp: at(1), TotalYawns: 1},
		{Level: alert.Danger, Score: 4, Timestamp: at(2.5), TotalYawns: 2},
		{Level: alert.Warning, Score: 1, Timestamp: at(3), Neutral: true, TotalYawns: 2},
	}

	sum := summarize(snaps)
	assert.Equal(t, 4, sum.Frames)
	assert.Equal(t, 3, sum.FaceFrames)
	assert.Equal(t, 3*time.Second, sum.Duration)
	assert.Equal(t, 4, sum.MaxScore)
	assert.Equal(t, alert.Danger, sum.MaxLevel)
	assert.Equal(t, uint(2), sum.TotalYawns)
	assert.Equal(t, map[alert.Level]int{alert.Normal: 1, alert.Warning: 2, alert.Danger: 1}, sum.Levels)
	assert.Equal(t, 2500*time.Millisecond, sum.FirstAt[alert.Danger])
	assert.Equal(t, time.Second, sum.FirstAt[alert.Warning])
}

func TestSummarize_Empty(t *testing.T) {
	sum := summarize(nil)
	assert.Zero(t, sum.Frames)
	assert.Equal(t, alert.Normal, sum.MaxLevel)
	assert.Empty(t, sum.FirstAt)
}

func TestPrintSummary(t *testing.T) {
	sum := summarize([]fusion.Snapshot{
		{Level: alert.Normal, Timestamp: time.Unix(0, 0)},
		{Level: alert.Danger, Score: 3, Timestamp: time.Unix(2, 0)},
	})

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, "drive.jsonl", sum))

	out := buf.String()
	assert.Contains(t, out, "Replay:      drive.jsonl")
	assert.Contains(t, out, "Frames:      2 (2 with a face)")
	assert.Contains(t, out, "Max level:   DANGER (score 3)")
	assert.Contains(t, out, "first at 2.0s")
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "first at -")
}

func TestLastClock(t *testing.T) {
	start := time.Unix(50, 0)
	assert.Equal(t, start, lastClock(nil, start).Now())

	end := time.Unix(80, 0)
	snaps := []fusion.Snapshot{{Timestamp: time.Unix(60, 0)}, {Timestamp: end}}
	assert.Equal(t, end, lastClock(snaps, start).Now())
}
