package plugins

import (
	"fmt"

	"github.com/qcforge/qcflow/internal/config"
	"github.com/qcforge/qcflow/internal/custodian"
)

// RegisterHandlerPlugins discovers YAML and Go handler group definitions
// under .qcflow/handlers and registers them with the handler registry.
func RegisterHandlerPlugins(reg *custodian.HandlerRegistry, cfg *config.Config) error {
	if reg == nil || cfg == nil {
		return nil
	}
	defs, err := loadAllDefinitionFiles(cfg.HandlersDir())
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}
	seen := make(map[string]string)
	for _, file := range defs {
		def := file.Definition
		if existing, ok := seen[def.Group]; ok {
			return fmt.Errorf("plugin: duplicate handler group %s (%s and %s)", def.Group, existing, file.Path)
		}
		seen[def.Group] = file.Path
		if err := reg.Register(def.Group, def.Factory()); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.Group, file.Path, err)
		}
	}
	return nil
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	return append(yamlDefs, goDefs...), nil
}
