package tasks

import (
	"github.com/qcforge/qcflow/internal/custodian"
	"github.com/qcforge/qcflow/internal/task"
	"github.com/qcforge/qcflow/internal/tasks/direct"
	"github.com/qcforge/qcflow/internal/tasks/fake"
	"github.com/qcforge/qcflow/internal/tasks/noop"
	"github.com/qcforge/qcflow/internal/tasks/supervised"
)

// RegisterBuiltins installs all of the built-in task factories into the
// provided registry. The handler registry is shared by every supervised run
// so plugin-registered groups are visible everywhere.
func RegisterBuiltins(reg *task.Registry, handlers *custodian.HandlerRegistry) {
	if reg == nil {
		return
	}
	direct.Register(reg)
	fake.Register(reg)
	noop.Register(reg)
	if handlers != nil {
		supervised.Register(reg, supervised.WithHandlerRegistry(handlers))
	} else {
		supervised.Register(reg)
	}
}
