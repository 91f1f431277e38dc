package noop

import (
	"testing"

	"github.com/qcforge/qcflow/internal/task"
)

func TestNoOpRun(t *testing.T) {
	result, err := New().Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != task.StatusNoOp {
		t.Fatalf("expected no-op status, got %q", result.Status)
	}
}
