package task

import (
	"errors"
	"testing"

	"github.com/qcforge/qcflow/internal/config"
)

func contextWithEnv(env map[string]string) *Context {
	cfg := &config.Config{}
	cfg.Project.Env = env
	return &Context{Config: cfg, WorkDir: "/tmp"}
}

func TestParamsDefaults(t *testing.T) {
	params := NewParams(Config{}, contextWithEnv(nil))

	if got, err := params.String("input_file", "mol.qin"); err != nil || got != "mol.qin" {
		t.Fatalf("String default: got %q, %v", got, err)
	}
	if got, err := params.Bool("backup", true); err != nil || got != true {
		t.Fatalf("Bool default: got %v, %v", got, err)
	}
	if got, err := params.Int("max_errors", 5); err != nil || got != 5 {
		t.Fatalf("Int default: got %d, %v", got, err)
	}
	if got, err := params.Float("max_molecule_perturb_scale", 0.3); err != nil || got != 0.3 {
		t.Fatalf("Float default: got %g, %v", got, err)
	}
}

func TestParamsRequireMissing(t *testing.T) {
	params := NewParams(Config{}, contextWithEnv(nil))
	_, err := params.Require("qchem_cmd")
	if err == nil {
		t.Fatal("expected error for missing required key")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Key != "qchem_cmd" {
		t.Fatalf("expected key qchem_cmd, got %s", cfgErr.Key)
	}
}

func TestParamsOverrideResolution(t *testing.T) {
	ctx := contextWithEnv(map[string]string{"qchem_cmd": "/opt/qchem/bin/qchem"})
	params := NewParams(Config{"qchem_cmd": ">>qchem_cmd<<"}, ctx)
	got, err := params.Require("qchem_cmd")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if got != "/opt/qchem/bin/qchem" {
		t.Fatalf("expected resolved override, got %q", got)
	}
}

func TestParamsOverrideMissingIsStrict(t *testing.T) {
	params := NewParams(Config{"qchem_cmd": ">>qchem_cmd<<"}, contextWithEnv(nil))
	if _, err := params.Require("qchem_cmd"); err == nil {
		t.Fatal("expected strict override resolution to fail")
	}
}

func TestParamsStringOrEnv(t *testing.T) {
	ctx := contextWithEnv(map[string]string{"calc_loc": "/scratch"})

	params := NewParams(Config{}, ctx)
	got, err := params.StringOrEnv("calc_loc", "calc_loc")
	if err != nil || got != "/scratch" {
		t.Fatalf("expected env fallback /scratch, got %q, %v", got, err)
	}

	params = NewParams(Config{"calc_loc": "/explicit"}, ctx)
	got, err = params.StringOrEnv("calc_loc", "calc_loc")
	if err != nil || got != "/explicit" {
		t.Fatalf("expected explicit value, got %q, %v", got, err)
	}

	params = NewParams(Config{}, contextWithEnv(nil))
	got, err = params.StringOrEnv("nboexe", "nboexe")
	if err != nil || got != "" {
		t.Fatalf("expected empty non-strict fallback, got %q, %v", got, err)
	}
}

func TestParamsCoercions(t *testing.T) {
	ctx := contextWithEnv(map[string]string{"max_cores": "32"})
	params := NewParams(Config{
		"save_scratch": "true",
		"max_errors":   "7",
		"scale":        "0.25",
		"max_cores":    ">>max_cores<<",
	}, ctx)

	if got, err := params.Bool("save_scratch", false); err != nil || !got {
		t.Fatalf("Bool from string: got %v, %v", got, err)
	}
	if got, err := params.Int("max_errors", 5); err != nil || got != 7 {
		t.Fatalf("Int from string: got %d, %v", got, err)
	}
	if got, err := params.Float("scale", 0.3); err != nil || got != 0.25 {
		t.Fatalf("Float from string: got %g, %v", got, err)
	}
	if got, err := params.Int("max_cores", 0); err != nil || got != 32 {
		t.Fatalf("Int through override: got %d, %v", got, err)
	}
}

func TestParamsBadCoercion(t *testing.T) {
	params := NewParams(Config{"max_errors": "lots"}, contextWithEnv(nil))
	if _, err := params.Int("max_errors", 5); err == nil {
		t.Fatal("expected coercion error")
	}
}
