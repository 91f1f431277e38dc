package plugins

import (
	"fmt"
	"strings"

	"github.com/qcforge/qcflow/internal/custodian"
)

// HandlerTypeQChem is the only built-in handler type a plugin can reference.
const HandlerTypeQChem = "qchem_error_handler"

// GroupDefinition describes one handler group loaded from a plugin file.
//
// The struct mirrors the on-disk schema under .qcflow/handlers/*.yaml and is
// intentionally narrow so definitions can be validated before they are wired
// into the supervised runner.
type GroupDefinition struct {
	Group    string        `json:"group" yaml:"group"`
	Handlers []HandlerSpec `json:"handlers" yaml:"handlers"`
}

// HandlerSpec selects a handler type and optional file name overrides. Empty
// file names inherit the input/output names of the run being supervised.
type HandlerSpec struct {
	Type       string `json:"type" yaml:"type"`
	InputFile  string `json:"input_file,omitempty" yaml:"input_file,omitempty"`
	OutputFile string `json:"output_file,omitempty" yaml:"output_file,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def GroupDefinition) Normalized() GroupDefinition {
	clone := GroupDefinition{Group: strings.TrimSpace(def.Group)}
	if len(def.Handlers) > 0 {
		clone.Handlers = make([]HandlerSpec, len(def.Handlers))
		for i, spec := range def.Handlers {
			clone.Handlers[i] = HandlerSpec{
				Type:       strings.TrimSpace(spec.Type),
				InputFile:  strings.TrimSpace(spec.InputFile),
				OutputFile: strings.TrimSpace(spec.OutputFile),
			}
		}
	}
	return clone
}

// Validate ensures the definition is well-formed and references known
// handler types. A group with zero handlers is allowed; it behaves like the
// built-in no_handler group under its own name.
func (def GroupDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.Group == "" {
		return fmt.Errorf("plugin: group name is required")
	}
	for i, spec := range normalized.Handlers {
		if spec.Type != HandlerTypeQChem {
			return fmt.Errorf("plugin group %s: handlers[%d]: unknown handler type %q",
				normalized.Group, i, spec.Type)
		}
	}
	return nil
}

// Factory converts the definition into a handler factory for registration.
func (def GroupDefinition) Factory() custodian.HandlerFactory {
	specs := def.Normalized().Handlers
	return func(inputFile, outputFile string) []custodian.ErrorHandler {
		handlers := make([]custodian.ErrorHandler, 0, len(specs))
		for _, spec := range specs {
			in := spec.InputFile
			if in == "" {
				in = inputFile
			}
			out := spec.OutputFile
			if out == "" {
				out = outputFile
			}
			handlers = append(handlers, custodian.NewQChemErrorHandler(in, out))
		}
		return handlers
	}
}
