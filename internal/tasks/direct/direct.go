// Package direct executes a fully-formed Q-Chem command line through the
// shell, with no supervision and no error interpretation.
package direct

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/qcforge/qcflow/internal/task"
)

const (
	taskID      = "run-qchem-direct"
	taskVersion = "1.0.0"
)

// ShellRunner invokes a shell command in the context's working directory and
// returns its exit code.
type ShellRunner func(ctx *task.Context, command string) (int, error)

// Option customizes the direct runner.
type Option func(*Task)

// WithShell overrides the shell invocation (tests).
func WithShell(shell ShellRunner) Option {
	return func(t *Task) {
		if shell != nil {
			t.shell = shell
		}
	}
}

// Task runs one command string synchronously. The command must already carry
// every flag it needs; the qchem_cmd option is used literally, with no
// override indirection.
type Task struct {
	*task.Base
	cfg   task.Config
	shell ShellRunner
}

// Register installs the task factory into the registry.
func Register(reg *task.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(taskID, func(cfg task.Config) (task.Task, error) {
		return New(cfg), nil
	})
}

// New wires the task metadata.
func New(cfg task.Config, opts ...Option) *Task {
	info := task.Info{
		ID:          taskID,
		Name:        "Run Q-Chem Directly",
		Description: "Executes a complete Q-Chem command line through the shell without supervision.",
		Version:     taskVersion,
	}
	base := task.NewBase(info)
	t := &Task{
		Base:  &base,
		cfg:   cfg,
		shell: defaultShell,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Run executes the command. A non-zero exit code is logged, never raised.
func (t *Task) Run(ctx *task.Context) (task.Result, error) {
	if err := task.ValidateContext(taskID, ctx); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	raw, ok := t.cfg["qchem_cmd"]
	if !ok {
		return task.Result{Status: task.StatusFailed},
			task.NewConfigError("qchem_cmd", "required option is missing")
	}
	command := fmt.Sprintf("%v", raw)

	ctx.Logger.Printf("running command: %s", command)
	code, err := t.shell(ctx, command)
	if err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	ctx.Logger.Printf("command %s finished running with return code: %d", command, code)
	return task.Result{
		Status:  task.StatusCompleted,
		Message: fmt.Sprintf("command finished with return code %d", code),
	}, nil
}

// defaultShell runs the command via sh -c with QCSCRATCH pointed at the
// working directory, inheriting the parent's stdio.
func defaultShell(ctx *task.Context, command string) (int, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = ctx.WorkDir
	cmd.Env = append(os.Environ(), "QCSCRATCH="+ctx.WorkDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("task %s: %w", taskID, err)
}
