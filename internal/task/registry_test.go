package task

import "testing"

type stubTask struct {
	Base
}

func newStubTask(id string) *stubTask {
	base := NewBase(Info{ID: id, Name: "Stub", Version: "1.0.0"})
	return &stubTask{Base: base}
}

func (t *stubTask) Run(*Context) (Result, error) {
	return Result{Status: StatusCompleted}, nil
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("stub", func(Config) (Task, error) {
		return newStubTask("stub"), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := reg.Resolve("stub", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Info().ID != "stub" {
		t.Fatalf("expected stub, got %s", resolved.Info().ID)
	}
}

func TestRegistryUnknownID(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("missing", nil); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	factory := func(Config) (Task, error) { return newStubTask("dup"), nil }
	if err := reg.Register("dup", factory); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register("dup", factory); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistryRejectsInvalidInfo(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("bad", func(Config) (Task, error) {
		return newStubTask(""), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Resolve("bad", nil); err == nil {
		t.Fatal("expected validation error for empty task id")
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		id := id
		if err := reg.Register(id, func(Config) (Task, error) {
			return newStubTask(id), nil
		}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	ids := reg.IDs()
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids)
		}
	}
}
