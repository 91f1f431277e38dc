// internal/config/config.go
//
// This package handles configuration and the .qcflow directory structure.
// Every project that runs qcflow tasks gets a .qcflow/ folder created in its
// root, holding the project config, logs and handler plugin definitions.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// QCFlowDir is the name of the directory we create in each project
	QCFlowDir = ".qcflow"

	// HandlersDirName holds user-supplied handler group definitions
	HandlersDirName = "handlers"
)

const defaultProjectConfigYAML = `# qcflow project configuration
version: 1

# Named values resolvable from task options via the >>name<< indirection.
# Typical entries:
#   qchem_cmd: qchem
#   max_cores: "32"
#   calc_loc: /scratch/qchem
#   nboexe: /opt/nbo7/bin/nbo7.i4.exe
#   multimode: openmp
env: {}
`

// ProjectConfig models .qcflow/config.yaml.
type ProjectConfig struct {
	Version int               `yaml:"version"`
	Env     map[string]string `yaml:"env"`
}

// Config holds the runtime configuration for qcflow.
type Config struct {
	// ProjectDir is the directory where the user ran `qcflow` from
	ProjectDir string

	// QCFlowProjectDir is ProjectDir/.qcflow
	QCFlowProjectDir string

	Project ProjectConfig
}

// InitDir creates the .qcflow directory structure in the given project
// directory and seeds a commented default config when none exists.
//
// Structure created:
// .qcflow/
// ├── logs/       <- task runner logging
// ├── handlers/   <- handler group plugin definitions (yaml or go)
// └── config.yaml
func InitDir(projectDir string) error {
	qcflowDir := filepath.Join(projectDir, QCFlowDir)
	dirs := []string{
		filepath.Join(qcflowDir, "logs"),
		filepath.Join(qcflowDir, HandlersDirName),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(qcflowDir, "config.yaml"))
}

// New creates a Config instance populated with project settings.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		QCFlowProjectDir: filepath.Join(projectDir, QCFlowDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.QCFlowProjectDir, "logs")
}

// HandlersDir returns the directory holding handler plugin definitions.
func (c *Config) HandlersDir() string {
	return filepath.Join(c.QCFlowProjectDir, HandlersDirName)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.QCFlowProjectDir, "config.yaml")
}

// Env resolves a named value from the project override store.
func (c *Config) Env(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	value, ok := c.Project.Env[key]
	return value, ok
}

// SetEnv updates one override entry and persists the config.
func (c *Config) SetEnv(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("config: env key is required")
	}
	if c.Project.Env == nil {
		c.Project.Env = map[string]string{}
	}
	c.Project.Env[key] = value
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) saveProjectConfig() error {
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(c.QCFlowProjectDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(c.ProjectConfigPath(), data, 0644)
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Env:     map[string]string{},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Env == nil {
		pc.Env = map[string]string{}
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	for key := range pc.Env {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("env keys must be non-empty")
		}
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
