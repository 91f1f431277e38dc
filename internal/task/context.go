package task

import (
	"fmt"
	"os"

	"github.com/qcforge/qcflow/internal/config"
	"github.com/qcforge/qcflow/internal/logbook"
	"github.com/qcforge/qcflow/internal/logging"
)

// Context carries shared runtime dependencies into every task.
type Context struct {
	Config  *config.Config
	Logger  *logging.Logger
	Logbook *logbook.Logbook
	// WorkDir is the directory the task operates on. Defaults to the
	// process working directory when built through NewContext.
	WorkDir string
}

// NewContext builds a Context rooted at the process working directory.
func NewContext(cfg *config.Config, logger *logging.Logger, lb *logbook.Logbook) (*Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("task: determine working directory: %w", err)
	}
	return &Context{Config: cfg, Logger: logger, Logbook: lb, WorkDir: wd}, nil
}

// WithWorkDir returns a copy of the context rooted at dir.
func (ctx *Context) WithWorkDir(dir string) *Context {
	clone := *ctx
	clone.WorkDir = dir
	return &clone
}

// Env resolves a named value from the project override store. Returns false
// when no store is loaded or the key is absent.
func (ctx *Context) Env(key string) (string, bool) {
	if ctx == nil || ctx.Config == nil {
		return "", false
	}
	return ctx.Config.Env(key)
}

// ValidateContext guards task entry points against partially wired contexts.
func ValidateContext(taskID string, ctx *Context) error {
	if ctx == nil {
		return fmt.Errorf("task %s: context is required", taskID)
	}
	if ctx.WorkDir == "" {
		return fmt.Errorf("task %s: working directory is required", taskID)
	}
	return nil
}
