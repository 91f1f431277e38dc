// Package custodian is the binding to the supervising job orchestrator: job
// descriptors for Q-Chem invocations, error handlers that inspect output and
// rewrite input, and a bounded run loop that re-invokes jobs after each
// correction.
package custodian

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Call records one command invocation for inspection.
type Call struct {
	Dir     string
	Args    []string
	Env     []string
	LogPath string
}

// CommandRunner executes one synchronous command in dir. Extra env entries
// are appended to the process environment; stdout and stderr are redirected
// to logPath when it is non-empty. The returned int is the exit code.
type CommandRunner interface {
	Run(ctx context.Context, call Call) (int, error)
}

// ExecRunner is the exec-backed CommandRunner used outside of tests.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, call Call) (int, error) {
	if len(call.Args) == 0 {
		return 0, fmt.Errorf("custodian: empty command")
	}
	cmd := exec.CommandContext(ctx, call.Args[0], call.Args[1:]...)
	cmd.Dir = call.Dir
	cmd.Env = append(os.Environ(), call.Env...)
	if call.LogPath != "" {
		logFile, err := os.OpenFile(call.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, fmt.Errorf("custodian: open log %s: %w", call.LogPath, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("custodian: run %s: %w", call.Args[0], err)
}

// RecordingRunner records calls and returns preconfigured responses. Use this
// in tests to avoid real process execution. Set Script for dynamic per-call
// responses, otherwise Code/Err are returned.
type RecordingRunner struct {
	Calls  []Call
	Code   int
	Err    error
	Script func(call Call) (int, error)
}

// Run implements CommandRunner.
func (r *RecordingRunner) Run(_ context.Context, call Call) (int, error) {
	r.Calls = append(r.Calls, call)
	if r.Script != nil {
		return r.Script(call)
	}
	return r.Code, r.Err
}
