package custodian

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/qcforge/qcflow/internal/qcinput"
)

// ErrorHandler inspects a finished run and, when it recognizes a failure,
// rewrites the input so the next invocation can succeed.
type ErrorHandler interface {
	Name() string
	// Check reports whether the handler recognizes an error in dir.
	Check(dir string) bool
	// Correct rewrites the input deck in dir. Only called after Check
	// returned true.
	Correct(dir string) error
}

// Error classes the default handler recognizes in Q-Chem output.
const (
	errSCFConvergence = "scf_convergence"
	errOptCycles      = "out_of_opt_cycles"
	errCoordTransform = "coordinate_transform"
	errFatal          = "fatal"
)

var outputMarkers = []struct {
	marker string
	class  string
}{
	{"SCF failed to converge", errSCFConvergence},
	{"Maximum optimization cycles reached", errOptCycles},
	{"Error within run_minimization", errOptCycles},
	{"Unable to transform coordinates", errCoordTransform},
	{"Q-Chem fatal error", errFatal},
}

// QChemErrorHandler is the default handler: it scans the output file for
// known fatal markers and applies the conventional rem corrections.
type QChemErrorHandler struct {
	InputFile  string
	OutputFile string

	lastClass string
}

// NewQChemErrorHandler builds the default handler for the given file names.
func NewQChemErrorHandler(inputFile, outputFile string) *QChemErrorHandler {
	if inputFile == "" {
		inputFile = DefaultInputFile
	}
	if outputFile == "" {
		outputFile = DefaultOutputFile
	}
	return &QChemErrorHandler{InputFile: inputFile, OutputFile: outputFile}
}

// Name implements ErrorHandler.
func (h *QChemErrorHandler) Name() string { return "qchem_error_handler" }

// Check implements ErrorHandler.
func (h *QChemErrorHandler) Check(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, h.OutputFile))
	if err != nil {
		return false
	}
	text := string(data)
	for _, candidate := range outputMarkers {
		if strings.Contains(text, candidate.marker) {
			h.lastClass = candidate.class
			return true
		}
	}
	h.lastClass = ""
	return false
}

// Correct implements ErrorHandler.
func (h *QChemErrorHandler) Correct(dir string) error {
	inputPath := filepath.Join(dir, h.InputFile)
	deck, err := qcinput.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("custodian: correct: %w", err)
	}
	switch h.lastClass {
	case errSCFConvergence:
		deck.Rem.Set("scf_algorithm", "diis_gdm")
		deck.Rem.Set("max_scf_cycles", "200")
	case errOptCycles:
		deck.Rem.Set("geom_opt_max_cycles", "200")
	case errCoordTransform:
		deck.Rem.Set("sym_ignore", "true")
	default:
		return fmt.Errorf("custodian: %s: no correction for error class %q", h.Name(), h.lastClass)
	}
	return deck.WriteFile(inputPath)
}

// HandlerFactory builds the handlers of one group for the given file names.
type HandlerFactory func(inputFile, outputFile string) []ErrorHandler

// HandlerRegistry maps group names to handler factories. It is seeded with
// the two built-in groups: "default" and "no_handler".
type HandlerRegistry struct {
	mu     sync.RWMutex
	groups map[string]HandlerFactory
}

// Built-in handler group names.
const (
	GroupDefault   = "default"
	GroupNoHandler = "no_handler"
)

// NewHandlerRegistry returns a registry seeded with the built-in groups.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{groups: map[string]HandlerFactory{
		GroupDefault: func(inputFile, outputFile string) []ErrorHandler {
			return []ErrorHandler{NewQChemErrorHandler(inputFile, outputFile)}
		},
		GroupNoHandler: func(string, string) []ErrorHandler {
			return nil
		},
	}}
}

// Register installs a handler group. Duplicate names error.
func (r *HandlerRegistry) Register(group string, factory HandlerFactory) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return fmt.Errorf("custodian: handler group name is required")
	}
	if factory == nil {
		return fmt.Errorf("custodian: handler factory is required for %s", group)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.groups[group]; exists {
		return fmt.Errorf("custodian: handler group %s already registered", group)
	}
	r.groups[group] = factory
	return nil
}

// Resolve builds the handlers of the named group.
func (r *HandlerRegistry) Resolve(group, inputFile, outputFile string) ([]ErrorHandler, error) {
	r.mu.RLock()
	factory, ok := r.groups[group]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("custodian: unknown handler group %q", group)
	}
	return factory(inputFile, outputFile), nil
}

// Groups returns the sorted registered group names.
func (r *HandlerRegistry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
