package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Exit codes reported for failures that never produced a process exit status
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result holds the execution result.
type Result struct {
	Stdout   []byte
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Run executes a command with context/timeout, capturing output and duration.
// Timeouts are reported as ExitTimeout and missing binaries as ExitNotFound.
func Run(ctx context.Context, name string, args []string, dir string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = ExitTimeout
	case errors.Is(err, exec.ErrNotFound):
		res.ExitCode = ExitNotFound
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = 1
	}
	return res, err
}

// LookPath reports whether the named binary is on PATH
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
