package capture

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
)

// SpawnFunc starts the command of j. It must eventually call j.readLoop so
// that the job finishes.
type SpawnFunc func(j *Job) error

// spawnPTY runs the command under a PTY so tools that insist on a terminal
// behave as they would when run by hand.
func spawnPTY(j *Job) error {
	cmd := exec.Command(j.argv[0], j.argv[1:]...)
	cmd.Env = append(cmd.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	j.cmd = cmd
	j.closer = ptmx

	go j.readLoop(ptmx, func() int {
		defer ptmx.Close()
		return exitCode(cmd.Wait())
	})
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// MockSpawnFn is an os.Pipe-based spawn function for testing. It echoes the
// command line as output. A command named "false" exits with 1 and one named
// "sleep" runs until killed.
func MockSpawnFn(j *Job) error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	j.closer = w
	name := j.argv[0]
	go func() {
		fmt.Fprintf(w, "%s\n", strings.Join(j.argv, " "))
		if name != "sleep" {
			w.Close()
		}
	}()
	go j.readLoop(r, func() int {
		r.Close()
		if name == "false" {
			return 1
		}
		return 0
	})
	return nil
}
