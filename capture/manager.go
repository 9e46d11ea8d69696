// Package capture runs an external screenshot command for a viewport preset.
package capture

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"viewport-preview/preset"
)

var (
	ErrNotConfigured = errors.New("capture command not configured")
	ErrNotFound      = errors.New("capture job not found")
)

// Placeholders substituted in the command template.
const (
	PlaceholderWidth  = "{width}"
	PlaceholderHeight = "{height}"
	PlaceholderOut    = "{out}"
	PlaceholderID     = "{id}"
)

// Manager starts capture jobs and keeps them until they are killed or the
// process ends.
type Manager struct {
	template []string
	outDir   string
	spawnFn  SpawnFunc // nil → use spawnPTY

	mu       sync.RWMutex
	jobs     map[string]*Job
	onFinish func(Info)
}

// NewManager parses command, e.g. "grim -s 1 {out}", into a template. An
// empty command yields a manager whose Start returns ErrNotConfigured.
func NewManager(command, outDir string) *Manager {
	return &Manager{
		template: strings.Fields(command),
		outDir:   outDir,
		jobs:     make(map[string]*Job),
	}
}

// NewManagerWithSpawnFn creates a Manager with a custom spawn function.
// Pass MockSpawnFn for a pipe-based in-process mock (no real PTY).
func NewManagerWithSpawnFn(command, outDir string, fn SpawnFunc) *Manager {
	m := NewManager(command, outDir)
	m.spawnFn = fn
	return m
}

// Configured reports whether a capture command is set.
func (m *Manager) Configured() bool {
	return len(m.template) > 0
}

// OnFinish registers fn to be called after each job ends.
func (m *Manager) OnFinish(fn func(Info)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = fn
}

// Start runs the capture command for p.
func (m *Manager) Start(p preset.Preset) (Info, error) {
	if !m.Configured() {
		return Info{}, ErrNotConfigured
	}
	if m.outDir != "" {
		if err := os.MkdirAll(m.outDir, 0755); err != nil {
			return Info{}, err
		}
	}
	id := uuid.New().String()
	out := filepath.Join(m.outDir, "capture-"+id+".png")
	r := strings.NewReplacer(
		PlaceholderWidth, p.Width.String(),
		PlaceholderHeight, p.Height.String(),
		PlaceholderOut, out,
		PlaceholderID, id,
	)
	argv := make([]string, len(m.template))
	for i, arg := range m.template {
		argv[i] = r.Replace(arg)
	}

	j := &Job{
		id:         id,
		presetID:   p.ID,
		width:      p.Width.String(),
		height:     p.Height.String(),
		outputPath: out,
		argv:       argv,
		createdAt:  time.Now(),
		scrollback: newScrollbackBuf(),
		done:       make(chan struct{}),
		onExit:     m.finished,
		status:     StatusRunning,
	}

	spawn := m.spawnFn
	if spawn == nil {
		spawn = spawnPTY
	}
	if err := spawn(j); err != nil {
		return Info{}, err
	}
	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()
	slog.Info("Capture started", "id", id, "preset", p.ID, "command", argv)
	return j.Info(), nil
}

// List returns all jobs, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	list := make([]Info, 0, len(m.jobs))
	for _, j := range m.jobs {
		list = append(list, j.Info())
	}
	m.mu.RUnlock()
	slices.SortFunc(list, func(a, b Info) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return list
}

func (m *Manager) Get(id string) (Info, bool) {
	j, ok := m.job(id)
	if !ok {
		return Info{}, false
	}
	return j.Info(), true
}

// Wait blocks until job id finished and returns its final state.
func (m *Manager) Wait(id string) (Info, error) {
	j, ok := m.job(id)
	if !ok {
		return Info{}, ErrNotFound
	}
	<-j.Done()
	return j.Info(), nil
}

// Kill stops a running job. Finished jobs are left as they are.
func (m *Manager) Kill(id string) error {
	j, ok := m.job(id)
	if !ok {
		return ErrNotFound
	}
	j.kill()
	return nil
}

func (m *Manager) job(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	return j, ok
}

func (m *Manager) finished(j *Job) {
	info := j.Info()
	slog.Info("Capture finished", "id", info.ID, "status", info.Status, "exitCode", info.ExitCode)
	m.mu.RLock()
	fn := m.onFinish
	m.mu.RUnlock()
	if fn != nil {
		fn(info)
	}
}
