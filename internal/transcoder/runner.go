package transcoder

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner runs an external program to completion.
// A non-nil error means the program could not be started or exited non-zero;
// stderr holds whatever the program wrote to standard error either way.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stderr string, err error)
}

// ExecRunner runs commands with os/exec, capturing stderr in memory.
type ExecRunner struct {
	// Tee, if set, also receives stderr as it is written (e.g. os.Stderr for verbose runs).
	Tee io.Writer
}

// Compile-time verification that ExecRunner implements CommandRunner.
var _ CommandRunner = (*ExecRunner)(nil)

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil

	var stderrBuf bytes.Buffer
	if r.Tee != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, r.Tee)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return stderrBuf.String(), err
}

// tailLines returns at most the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
