package landmarks

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrWorkerClosed is returned by Extract once the worker process is gone.
var ErrWorkerClosed = errors.New("landmark worker closed")

const (
	// maxLineBytes bounds one response line (a full mesh is ~40KB of JSON).
	maxLineBytes = 4 << 20

	stopGrace = 2 * time.Second
)

// WorkerConfig configures the external landmark process.
type WorkerConfig struct {
	Command string        `yaml:"command" json:"command"`
	Args    []string      `yaml:"args" json:"args"`
	Env     []string      `yaml:"env" json:"env"`         // appended to the parent environment
	Dir     string        `yaml:"dir" json:"dir"`         // working directory; relative args resolve against it
	Timeout time.Duration `yaml:"timeout" json:"timeout"` // per frame
}

// DefaultWorkerConfig runs the bundled MediaPipe script with python3.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Command: "python3",
		Args:    []string{"scripts/landmark_worker.py"},
		Timeout: 2 * time.Second,
	}
}

type workerRequest struct {
	Seq    uint64 `json:"seq"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Image  string `json:"image"` // base64 JPEG
}

type workerResponse struct {
	Seq   uint64 `json:"seq"`
	Face  *Face  `json:"face"`
	Hands []Hand `json:"hands"`
	Error string `json:"error,omitempty"`
}

// WorkerStats reports worker health.
type WorkerStats struct {
	Requests  int64     `json:"requests"`
	Responses int64     `json:"responses"`
	Timeouts  int64     `json:"timeouts"`
	Malformed int64     `json:"malformed"`
	LastSeen  time.Time `json:"last_seen"`
}

// Worker supervises a landmark process speaking line-delimited JSON:
// one request per frame on stdin, one response per frame on stdout.
// Extract calls are serialized; responses are matched by sequence number
// and late responses to timed-out requests are dropped.
type Worker struct {
	cfg    WorkerConfig
	logger *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu      sync.Mutex // one request in flight
	seq     uint64
	results chan workerResponse
	done    chan struct{}
	closing atomic.Bool
	once    sync.Once

	requests  atomic.Int64
	responses atomic.Int64
	timeouts  atomic.Int64
	malformed atomic.Int64
	lastSeen  atomic.Int64
}

// StartWorker launches the process and its reader goroutines.
func StartWorker(cfg WorkerConfig, logger *slog.Logger) (*Worker, error) {
	if cfg.Command == "" {
		return nil, errors.New("worker command is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWorkerConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Dir = cfg.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %q: %w", cfg.Command, err)
	}

	w := &Worker{
		cfg:     cfg,
		logger:  logger.With("component", "landmarks"),
		cmd:     cmd,
		stdin:   stdin,
		results: make(chan workerResponse, 4),
		done:    make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		w.readResults(stdout)
	}()
	go func() {
		defer readers.Done()
		w.logStderr(stderr)
	}()
	go w.waitProcess(&readers)

	w.logger.Info("landmark worker started", "command", cfg.Command, "pid", cmd.Process.Pid)
	return w, nil
}

func (w *Worker) readResults(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		var resp workerResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			w.malformed.Add(1)
			line := scanner.Text()
			if len(line) > 120 {
				line = line[:120] + "..."
			}
			w.logger.Warn("malformed worker output", "error", err, "line", line)
			continue
		}
		w.responses.Add(1)
		w.lastSeen.Store(time.Now().UnixNano())

		select {
		case w.results <- resp:
		default:
			// Only stale answers can pile up; one request is in flight at a time
			w.logger.Debug("dropping stale worker response", "seq", resp.Seq)
		}
	}
}

func (w *Worker) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "ERROR"), strings.Contains(line, "CRITICAL"):
			w.logger.Error("worker stderr", "line", line)
		case strings.Contains(line, "WARN"):
			w.logger.Warn("worker stderr", "line", line)
		default:
			w.logger.Debug("worker stderr", "line", line)
		}
	}
}

func (w *Worker) waitProcess(readers *sync.WaitGroup) {
	readers.Wait()
	err := w.cmd.Wait()
	if w.closing.Load() {
		w.logger.Debug("landmark worker exited", "error", err)
	} else {
		w.logger.Error("landmark worker exited unexpectedly", "error", err)
	}
	close(w.done)
}

// Extract sends one frame and waits for its landmarks.
func (w *Worker) Extract(ctx context.Context, jpeg []byte, width, height int) (Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return Frame{}, ErrWorkerClosed
	default:
	}

	w.seq++
	req := workerRequest{
		Seq:    w.seq,
		Width:  width,
		Height: height,
		Image:  base64.StdEncoding.EncodeToString(jpeg),
	}
	line, err := json.Marshal(req)
	if err != nil {
		return Frame{}, fmt.Errorf("encode request: %w", err)
	}
	if _, err := w.stdin.Write(append(line, '\n')); err != nil {
		return Frame{}, fmt.Errorf("write request: %w", err)
	}
	w.requests.Add(1)

	timer := time.NewTimer(w.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case resp := <-w.results:
			if resp.Seq != req.Seq {
				// Late answer to a request that already timed out
				continue
			}
			if resp.Error != "" {
				return Frame{}, fmt.Errorf("worker: %s", resp.Error)
			}
			return Frame{Face: resp.Face, Hands: resp.Hands, Width: width, Height: height}, nil
		case <-timer.C:
			w.timeouts.Add(1)
			return Frame{}, fmt.Errorf("frame %d: %w", req.Seq, context.DeadlineExceeded)
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-w.done:
			return Frame{}, ErrWorkerClosed
		}
	}
}

// Stats returns worker counters.
func (w *Worker) Stats() WorkerStats {
	st := WorkerStats{
		Requests:  w.requests.Load(),
		Responses: w.responses.Load(),
		Timeouts:  w.timeouts.Load(),
		Malformed: w.malformed.Load(),
	}
	if ns := w.lastSeen.Load(); ns != 0 {
		st.LastSeen = time.Unix(0, ns)
	}
	return st
}

// Close closes stdin so the worker can exit, then kills it after a grace period.
func (w *Worker) Close() error {
	w.once.Do(func() {
		w.closing.Store(true)
		w.stdin.Close()

		select {
		case <-w.done:
		case <-time.After(stopGrace):
			w.logger.Warn("landmark worker did not exit, killing")
			if w.cmd.Process != nil {
				w.cmd.Process.Kill()
			}
			<-w.done
		}
	})
	return nil
}

var _ Extractor = (*Worker)(nil)
