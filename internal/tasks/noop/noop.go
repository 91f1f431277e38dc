// Package noop is the do-nothing stand-in for a Q-Chem run, used when a
// workflow step must be satisfied without invoking the executable.
package noop

import "github.com/qcforge/qcflow/internal/task"

const (
	taskID      = "run-no-qchem"
	taskVersion = "1.0.0"
)

// Task does nothing and succeeds.
type Task struct {
	*task.Base
}

// Register installs the task factory into the registry.
func Register(reg *task.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(taskID, func(task.Config) (task.Task, error) {
		return New(), nil
	})
}

// New wires the task metadata.
func New() *Task {
	info := task.Info{
		ID:          taskID,
		Name:        "Skip Q-Chem",
		Description: "Does not run Q-Chem. Does nothing.",
		Version:     taskVersion,
	}
	base := task.NewBase(info)
	return &Task{Base: &base}
}

// Run implements Task.
func (t *Task) Run(*task.Context) (task.Result, error) {
	return task.Result{Status: task.StatusNoOp, Message: "skipped Q-Chem execution"}, nil
}
