package capture

import (
	"io"
	"os/exec"
	"sync"
	"time"
)

const maxScrollback = 64 << 10 // 64KB

// Status of a capture job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// Info is a point-in-time view of a Job.
type Info struct {
	ID         string     `json:"id"`
	PresetID   string     `json:"preset_id"`
	Width      string     `json:"width"`
	Height     string     `json:"height"`
	OutputPath string     `json:"output_path"`
	Command    []string   `json:"command"`
	Status     Status     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Output     string     `json:"output,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Job is one run of the capture command.
type Job struct {
	id         string
	presetID   string
	width      string
	height     string
	outputPath string
	argv       []string
	createdAt  time.Time

	cmd        *exec.Cmd
	closer     io.Closer
	scrollback *scrollbackBuf
	done       chan struct{}
	onExit     func(*Job)

	mu         sync.Mutex
	status     Status
	exitCode   int
	killed     bool
	finishedAt time.Time
}

// Argv returns the expanded command line.
func (j *Job) Argv() []string {
	return j.argv
}

// Done returns a channel that is closed when the command exits.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Info() Info {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := Info{
		ID:         j.id,
		PresetID:   j.presetID,
		Width:      j.width,
		Height:     j.height,
		OutputPath: j.outputPath,
		Command:    j.argv,
		Status:     j.status,
		ExitCode:   j.exitCode,
		Output:     string(j.scrollback.Snapshot()),
		CreatedAt:  j.createdAt,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		info.FinishedAt = &t
	}
	return info
}

// readLoop copies command output into the scrollback until r fails, then
// records the exit code returned by wait.
func (j *Job) readLoop(r io.Reader, wait func() int) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			j.scrollback.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	code := wait()
	j.mu.Lock()
	j.exitCode = code
	j.finishedAt = time.Now()
	switch {
	case j.killed:
		j.status = StatusKilled
	case code == 0:
		j.status = StatusSucceeded
	default:
		j.status = StatusFailed
	}
	j.mu.Unlock()
	close(j.done)
	if j.onExit != nil {
		j.onExit(j)
	}
}

func (j *Job) kill() {
	j.mu.Lock()
	if j.status != StatusRunning {
		j.mu.Unlock()
		return
	}
	j.killed = true
	j.mu.Unlock()
	if j.cmd != nil && j.cmd.Process != nil {
		j.cmd.Process.Kill()
	}
	if j.closer != nil {
		j.closer.Close()
	}
}

type scrollbackBuf struct {
	mu   sync.Mutex
	data []byte
	max  int
}

func newScrollbackBuf() *scrollbackBuf {
	return &scrollbackBuf{max: maxScrollback}
}

func (s *scrollbackBuf) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	if len(s.data) > s.max {
		excess := len(s.data) - s.max
		s.data = s.data[excess:]
	}
}

func (s *scrollbackBuf) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp
}
