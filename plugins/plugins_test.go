package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qcforge/qcflow/internal/config"
	"github.com/qcforge/qcflow/internal/custodian"
)

const yamlDefinition = `group: aggressive
handlers:
  - type: qchem_error_handler
  - type: qchem_error_handler
    input_file: alt.qin
    output_file: alt.qout
`

const goDefinition = `package main

func HandlerDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"group": "scripted",
			"handlers": []map[string]any{
				{"type": "qchem_error_handler"},
			},
		},
	}, nil
}
`

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(yamlDefinition))
	if err != nil {
		t.Fatalf("ParseDefinitionYAML: %v", err)
	}
	if def.Group != "aggressive" || len(def.Handlers) != 2 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if def.Handlers[1].InputFile != "alt.qin" {
		t.Fatalf("unexpected file override: %+v", def.Handlers[1])
	}
}

func TestParseDefinitionYAMLRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty payload": "   \n",
		"missing group": "handlers:\n  - type: qchem_error_handler\n",
		"unknown type":  "group: g\nhandlers:\n  - type: vasp_error_handler\n",
	}
	for name, payload := range cases {
		if _, err := ParseDefinitionYAML([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefinitionFactoryInheritsRunFiles(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(yamlDefinition))
	if err != nil {
		t.Fatal(err)
	}
	handlers := def.Factory()("run.qin", "run.qout")
	if len(handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(handlers))
	}
}

func TestLoadDefinitionDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "group.yaml"), []byte(yamlDefinition), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	defs, err := LoadDefinitionDir(dir)
	if err != nil {
		t.Fatalf("LoadDefinitionDir: %v", err)
	}
	if len(defs) != 1 || defs[0].Definition.Group != "aggressive" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}

func TestLoadDefinitionDirMissingIsEmpty(t *testing.T) {
	defs, err := LoadDefinitionDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || defs != nil {
		t.Fatalf("missing dir must load nothing, got %v, %v", defs, err)
	}
}

func TestLoadGoDefinitionDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "groups.go"), []byte(goDefinition), 0644); err != nil {
		t.Fatal(err)
	}
	defs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		t.Fatalf("LoadGoDefinitionDir: %v", err)
	}
	if len(defs) != 1 || defs[0].Definition.Group != "scripted" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if len(defs[0].Definition.Handlers) != 1 {
		t.Fatalf("unexpected handlers: %+v", defs[0].Definition)
	}
}

func TestLoadGoDefinitionDirMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatal("expected error for plugin without HandlerDefinitions")
	}
}

func TestRegisterHandlerPlugins(t *testing.T) {
	projectDir := t.TempDir()
	if err := config.InitDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.New(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.HandlersDir(), "aggressive.yaml"), []byte(yamlDefinition), 0644); err != nil {
		t.Fatal(err)
	}

	reg := custodian.NewHandlerRegistry()
	if err := RegisterHandlerPlugins(reg, cfg); err != nil {
		t.Fatalf("RegisterHandlerPlugins: %v", err)
	}
	handlers, err := reg.Resolve("aggressive", "mol.qin", "mol.qout")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(handlers))
	}
}

func TestRegisterHandlerPluginsRejectsDuplicates(t *testing.T) {
	projectDir := t.TempDir()
	if err := config.InitDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.New(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(cfg.HandlersDir(), name), []byte(yamlDefinition), 0644); err != nil {
			t.Fatal(err)
		}
	}
	err = RegisterHandlerPlugins(custodian.NewHandlerRegistry(), cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate handler group") {
		t.Fatalf("expected duplicate group error, got %v", err)
	}
}
