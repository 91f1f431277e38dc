package task

import "fmt"

// Info describes a task's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("task: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("task: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("task: version is required for %s", i.ID)
	}
	return nil
}

// Result captures the outcome of a task execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates task run outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoOp      Status = "no-op"
	StatusFailed    Status = "failed"
)

// Task is implemented by every runnable unit.
type Task interface {
	Info() Info
	Run(ctx *Context) (Result, error)
}

// Base provides common identity plumbing for tasks.
type Base struct {
	info Info
}

// NewBase seeds the helper with task info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// Info implements Task.Info.
func (b *Base) Info() Info {
	return b.info
}
