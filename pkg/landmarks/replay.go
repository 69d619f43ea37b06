package landmarks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Record is one recorded frame: its offset from the start of the recording
// and the landmarks extracted from it.
type Record struct {
	At    time.Duration
	Frame Frame
}

type recordLine struct {
	T      float64 `json:"t"` // seconds since start
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Face   *Face   `json:"face"`
	Hands  []Hand  `json:"hands,omitempty"`
}

// Replay reads recorded frames from a JSONL stream.
type Replay struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReplay reads records from r.
func NewReplay(r io.Reader) *Replay {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	rp := &Replay{scanner: s}
	if c, ok := r.(io.Closer); ok {
		rp.closer = c
	}
	return rp
}

// OpenReplay opens a JSONL recording on disk.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplay(f), nil
}

// Next returns the next record, or io.EOF when the recording is exhausted.
// Blank lines are skipped.
func (r *Replay) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		b := r.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var rl recordLine
		if err := json.Unmarshal(b, &rl); err != nil {
			return Record{}, fmt.Errorf("replay line %d: %w", r.line, err)
		}
		if rl.T < 0 {
			return Record{}, fmt.Errorf("replay line %d: negative timestamp %v", r.line, rl.T)
		}
		return Record{
			At: time.Duration(rl.T * float64(time.Second)),
			Frame: Frame{
				Face:   rl.Face,
				Hands:  rl.Hands,
				Width:  rl.Width,
				Height: rl.Height,
			},
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("replay line %d: %w", r.line+1, err)
	}
	return Record{}, io.EOF
}

// Close closes the underlying file, if any.
func (r *Replay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Recorder writes frames in the format Replay reads.
type Recorder struct {
	mu    sync.Mutex
	w     *bufio.Writer
	c     io.Closer
	start time.Time
}

// NewRecorder writes records to w. Offsets are measured from start.
func NewRecorder(w io.Writer, start time.Time) *Recorder {
	r := &Recorder{w: bufio.NewWriter(w), start: start}
	if c, ok := w.(io.Closer); ok {
		r.c = c
	}
	return r
}

// CreateRecorder creates (or truncates) a JSONL recording on disk.
func CreateRecorder(path string, start time.Time) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return NewRecorder(f, start), nil
}

// Write appends one frame captured at instant at.
func (r *Recorder) Write(at time.Time, f Frame) error {
	rl := recordLine{
		T:      at.Sub(r.start).Seconds(),
		Width:  f.Width,
		Height: f.Height,
		Face:   f.Face,
		Hands:  f.Hands,
	}
	b, err := json.Marshal(rl)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the destination.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("flush recording: %w", err)
	}
	if r.c != nil {
		return r.c.Close()
	}
	return nil
}
