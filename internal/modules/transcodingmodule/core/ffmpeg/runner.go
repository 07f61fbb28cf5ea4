package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ExecResult holds the outcome of one external process invocation
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   string
	Elapsed  time.Duration
}

// StderrTail returns the last n lines of captured stderr, which is where
// ffmpeg reports why it gave up.
func (r *ExecResult) StderrTail(n int) string {
	if r == nil || r.Stderr == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes an external command and reports its exit status and
// output. A non-nil error means the process could not be started, was
// killed, or exited non-zero; the result is still returned when available.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*ExecResult, error)
}

// ExecRunner runs commands with os/exec. Cancelling ctx kills the process.
type ExecRunner struct {
	logger hclog.Logger
}

// NewExecRunner creates a runner backed by real processes
func NewExecRunner(logger hclog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("executing command", "command", name, "args", strings.Join(args, " "))

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		r.logger.Debug("command failed",
			"command", name,
			"exit_code", result.ExitCode,
			"elapsed", result.Elapsed,
			"error", err,
		)
		return result, err
	}

	r.logger.Trace("command completed", "command", name, "elapsed", result.Elapsed)
	return result, nil
}
