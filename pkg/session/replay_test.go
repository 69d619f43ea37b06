package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-safedrive/pkg/alarm"
	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/audioio"
	"github.com/teslashibe/go-safedrive/pkg/detectors"
	"github.com/teslashibe/go-safedrive/pkg/eventlog"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
	"github.com/teslashibe/go-safedrive/pkg/landmarks"
	"github.com/teslashibe/go-safedrive/pkg/signals"
)

var start = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sliceSource replays an in-memory list of records.
type sliceSource struct {
	recs []landmarks.Record
}

func (s *sliceSource) Next() (landmarks.Record, error) {
	if len(s.recs) == 0 {
		return landmarks.Record{}, io.EOF
	}
	r := s.recs[0]
	s.recs = s.recs[1:]
	return r, nil
}

type frameOpt func(*landmarks.Frame)

func eyesOpen(f *landmarks.Frame) {
	f.Face.Points[landmarks.LeftEyeTop].Y = 0.40
	f.Face.Points[landmarks.LeftEyeBottom].Y = 0.45
	f.Face.Points[landmarks.RightEyeTop].Y = 0.40
	f.Face.Points[landmarks.RightEyeBottom].Y = 0.45
}

func headTurnedAndTilted(f *landmarks.Frame) {
	f.Face.Points[landmarks.LeftEar].X = 0.9
	f.Face.Points[landmarks.RightEar].X = 0.1
	f.Face.Points[landmarks.LeftTemple].X = 0.85
	f.Face.Points[landmarks.RightTemple].X = 0.15
	f.Face.Points[landmarks.Forehead].Y = 0.1
	f.Face.Points[landmarks.Chin].Y = 0.9
	f.Face.Points[landmarks.NoseTip].Y = 0.6
}

func holdingPhone(f *landmarks.Frame) {
	h := landmarks.Hand{Points: make([]landmarks.Point3D, landmarks.HandPoints)}
	for i := range h.Points {
		h.Points[i] = landmarks.Point3D{X: 0.7, Y: 0.7}
	}
	f.Hands = append(f.Hands, h)
}

func noFace(f *landmarks.Frame) { f.Face = nil }

// frame builds a face with closed eyes, a closed mouth and a neutral head,
// then applies opts.
func frame(opts ...frameOpt) landmarks.Frame {
	face := &landmarks.Face{Points: make([]landmarks.Point3D, landmarks.FacePoints)}
	for i := range face.Points {
		face.Points[i] = landmarks.Point3D{X: 0.5, Y: 0.5}
	}
	f := landmarks.Frame{Face: face, Width: 640, Height: 480}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

func rec(sec float64, f landmarks.Frame) landmarks.Record {
	return landmarks.Record{At: time.Duration(sec * float64(time.Second)), Frame: f}
}

type testRig struct {
	engine *Engine
	sink   *audioio.MockSink
	store  *eventlog.Store
	events *eventlog.Recorder
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	dir := t.TempDir()

	asset := filepath.Join(dir, "alarm.wav")
	require.NoError(t, os.WriteFile(asset, []byte("RIFF"), 0o644))

	sink := audioio.NewMockSink(quietLogger())
	act := alarm.New(sink, asset, alert.DefaultPolicy().ShouldSound, quietLogger())
	require.NoError(t, act.Start())

	store, err := eventlog.Open(filepath.Join(dir, "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	id, err := store.BeginSession(start)
	require.NoError(t, err)
	events := eventlog.NewRecorder(store, id, quietLogger())

	engine := NewEngine(EngineConfig{
		Thresholds: detectors.DefaultThresholds(),
		Fusion:     fusion.DefaultConfig(),
		Actuator:   act,
		Events:     events,
		Logger:     quietLogger(),
	})
	return &testRig{engine: engine, sink: sink, store: store, events: events}
}

func levels(snaps []fusion.Snapshot) []alert.Level {
	out := make([]alert.Level, len(snaps))
	for i, s := range snaps {
		out[i] = s.Level
	}
	return out
}

func TestReplay_DrowsyDriverWithPhone(t *testing.T) {
	rig := newRig(t)

	var recs []landmarks.Record
	for s := 0; s <= 10; s++ {
		recs = append(recs, rec(float64(s), frame()))
	}
	for s := 11; s <= 17; s++ {
		recs = append(recs, rec(float64(s), frame(holdingPhone)))
	}
	for s := 18; s <= 20; s++ {
		recs = append(recs, rec(float64(s), frame(eyesOpen)))
	}

	snaps, err := Replay(context.Background(), rig.engine, &sliceSource{recs: recs}, start)
	require.NoError(t, err)
	require.Len(t, snaps, 21)

	// 0-10s eyes closed under half the threshold, 11-16s warning, 17s eyes
	// past 80% and phone past its threshold, then eyes open.
	assert.Equal(t, alert.Normal, snaps[10].Level)
	assert.Equal(t, alert.Warning, snaps[11].Level)
	assert.Equal(t, 2, snaps[16].Score)
	assert.Equal(t, 5, snaps[17].Score)
	assert.Equal(t, alert.Danger, snaps[17].Level)
	assert.Equal(t, 6*time.Second, snaps[17].PhoneFor)
	assert.Equal(t, alert.Normal, snaps[18].Level)
	assert.Equal(t, start.Add(20*time.Second), snaps[20].Timestamp)

	assert.Equal(t, 1, rig.sink.Count(audioio.CmdPlay))
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdStop))
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdClose))

	sum, err := rig.store.Summary(rig.events.SessionID())
	require.NoError(t, err)
	assert.Equal(t, map[alert.Level]int{alert.Warning: 1, alert.Danger: 1, alert.Normal: 1}, sum.Transitions)
}

func TestReplay_FaceLostKeepsAlarm(t *testing.T) {
	rig := newRig(t)

	recs := []landmarks.Record{
		rec(0, frame(headTurnedAndTilted)),
		rec(17, frame(headTurnedAndTilted)), // eyes 17s (+2) and head (+2)
		rec(18, frame(noFace)),
		rec(19, frame(noFace)),
		rec(20, frame(eyesOpen)),
	}

	snaps, err := Replay(context.Background(), rig.engine, &sliceSource{recs: recs}, start)
	require.NoError(t, err)

	assert.Equal(t,
		[]alert.Level{alert.Warning, alert.Danger, alert.Normal, alert.Normal, alert.Normal},
		levels(snaps))
	assert.True(t, snaps[2].Neutral)
	assert.Equal(t, signals.NeutralHead(), snaps[2].Head)

	// The lost face did not silence the alarm; the returning face did.
	cmds := rig.sink.Commands()
	kinds := make([]audioio.CommandKind, len(cmds))
	for i, c := range cmds {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []audioio.CommandKind{audioio.CmdLoad, audioio.CmdPlay, audioio.CmdStop, audioio.CmdClose}, kinds)
}

func TestReplay_PhoneWithoutFaceDrivesAlarm(t *testing.T) {
	rig := newRig(t)

	recs := []landmarks.Record{
		rec(0, frame(noFace, holdingPhone)),
		rec(3, frame(noFace, holdingPhone)),
		rec(6, frame(noFace, holdingPhone)),
		rec(7, frame(noFace)),
	}

	snaps, err := Replay(context.Background(), rig.engine, &sliceSource{recs: recs}, start)
	require.NoError(t, err)

	assert.Equal(t, []alert.Level{alert.Normal, alert.Warning, alert.Danger, alert.Normal}, levels(snaps))
	assert.Equal(t, fusion.PhoneOver, snaps[2].PhoneBand)
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdPlay))
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdStop))
}

func TestReplay_StopsAlarmOnce(t *testing.T) {
	rig := newRig(t)

	recs := []landmarks.Record{
		rec(0, frame(holdingPhone)),
		rec(6, frame(holdingPhone)),
	}
	_, err := Replay(context.Background(), rig.engine, &sliceSource{recs: recs}, start)
	require.NoError(t, err)
	rig.engine.Close()
	rig.engine.Close()

	assert.Equal(t, 1, rig.sink.Count(audioio.CmdPlay))
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdStop))
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdClose))
	assert.False(t, rig.engine.Sounding())
}

func TestReplay_OutOfOrderRecordsHoldTime(t *testing.T) {
	rig := newRig(t)

	recs := []landmarks.Record{rec(5, frame()), rec(2, frame())}
	snaps, err := Replay(context.Background(), rig.engine, &sliceSource{recs: recs}, start)
	require.NoError(t, err)
	assert.Equal(t, start.Add(5*time.Second), snaps[1].Timestamp)
}

func TestReplay_Cancelled(t *testing.T) {
	rig := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snaps, err := Replay(ctx, rig.engine, &sliceSource{recs: []landmarks.Record{rec(0, frame())}}, start)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, snaps)
	assert.Equal(t, 1, rig.sink.Count(audioio.CmdClose))
}

func TestReplay_FromRecording(t *testing.T) {
	rig := newRig(t)
	path := filepath.Join(t.TempDir(), "drive.jsonl")

	w, err := landmarks.CreateRecorder(path, start)
	require.NoError(t, err)
	require.NoError(t, w.Write(start, frame(holdingPhone)))
	require.NoError(t, w.Write(start.Add(6*time.Second), frame(holdingPhone)))
	require.NoError(t, w.Close())

	src, err := landmarks.OpenReplay(path)
	require.NoError(t, err)
	defer src.Close()

	snaps, err := Replay(context.Background(), rig.engine, src, start)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, alert.Danger, snaps[1].Level)
}

type recordingPublisher struct {
	snaps    []fusion.Snapshot
	sounding []bool
}

func (p *recordingPublisher) Publish(s fusion.Snapshot, sounding bool) {
	p.snaps = append(p.snaps, s)
	p.sounding = append(p.sounding, sounding)
}

func (p *recordingPublisher) SendCameraFrame([]byte) {}

func TestEngine_PublishesEverySnapshot(t *testing.T) {
	rig := newRig(t)
	pub := &recordingPublisher{}
	rig.engine.dashboard = pub

	rig.engine.Step(frame(holdingPhone), start)
	rig.engine.Step(frame(holdingPhone), start.Add(6*time.Second))

	require.Len(t, pub.snaps, 2)
	assert.Equal(t, []bool{false, true}, pub.sounding)
	assert.Equal(t, pub.snaps[1], rig.engine.Last())
}

func TestEngine_WithoutCollaborators(t *testing.T) {
	e := NewEngine(EngineConfig{Thresholds: detectors.DefaultThresholds(), Fusion: fusion.DefaultConfig()})
	snap := e.Step(frame(), start)
	assert.Equal(t, uint64(1), snap.Frame)
	assert.False(t, e.Sounding())
	e.Close()
}
