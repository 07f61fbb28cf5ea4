package ffmpeg

import (
	"context"
	"errors"
	"sync"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations and answers from a canned response
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	result *ExecResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: args})
	if f.result == nil {
		return &ExecResult{}, f.err
	}
	return f.result, f.err
}

var errExit = errors.New("exit status 1")
