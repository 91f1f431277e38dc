// Package fake simulates a Q-Chem run: it verifies the working input against
// a reference, deletes it, and copies the reference outputs into place.
package fake

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/qcforge/qcflow/internal/qcinput"
	"github.com/qcforge/qcflow/internal/task"
)

const (
	taskID      = "run-qchem-fake"
	taskVersion = "1.0.0"

	// coordTolerance is the absolute per-coordinate tolerance for geometry
	// comparison.
	coordTolerance = 1e-4
)

// Task emulates the executable using a reference directory that holds one
// canonical input file and the outputs of a prior real run.
type Task struct {
	*task.Base
	cfg task.Config
}

// Register installs the task factory into the registry.
func Register(reg *task.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(taskID, func(cfg task.Config) (task.Task, error) {
		return New(cfg), nil
	})
}

// New wires the task metadata.
func New(cfg task.Config) *Task {
	info := task.Info{
		ID:          taskID,
		Name:        "Run Fake Q-Chem",
		Description: "Verifies the working input against a reference run and copies its recorded outputs.",
		Version:     taskVersion,
	}
	base := task.NewBase(info)
	return &Task{Base: &base, cfg: cfg}
}

// Run walks the three sequential steps: verify, clear, generate. Any
// verification failure aborts the whole task.
func (t *Task) Run(ctx *task.Context) (task.Result, error) {
	if err := task.ValidateContext(taskID, ctx); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	refDir, inputFile, err := t.options()
	if err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	if err := verifyInputs(ctx.WorkDir, refDir, inputFile); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	ctx.Logger.Printf("%s: verified input successfully", taskID)
	if err := clearInput(filepath.Join(ctx.WorkDir, inputFile)); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	if err := generateOutputs(refDir, ctx.WorkDir); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	ctx.Logger.Printf("%s: ran fake Q-Chem, generated outputs", taskID)
	return task.Result{Status: task.StatusCompleted, Message: "simulated run from reference outputs"}, nil
}

func (t *Task) options() (refDir, inputFile string, err error) {
	raw, ok := t.cfg["ref_dir"]
	if !ok {
		return "", "", task.NewConfigError("ref_dir", "required option is missing")
	}
	refDir = fmt.Sprintf("%v", raw)
	inputFile = qcinput.DefaultInputFile
	if rawInput, ok := t.cfg["input_file"]; ok {
		inputFile = fmt.Sprintf("%v", rawInput)
	}
	return refDir, inputFile, nil
}

// verifyInputs parses both decks and compares species, geometry and the
// keyed option sections of the reference.
func verifyInputs(workDir, refDir, inputFile string) error {
	working, err := qcinput.ReadFile(filepath.Join(workDir, inputFile))
	if err != nil {
		return err
	}
	ref, err := qcinput.ReadFile(filepath.Join(refDir, inputFile))
	if err != nil {
		return err
	}

	refSpecies := ref.Molecule.Species()
	workSpecies := working.Molecule.Species()
	if len(refSpecies) != len(workSpecies) {
		return &task.ValidationError{Section: "molecule", Key: "species"}
	}
	for i := range refSpecies {
		if refSpecies[i] != workSpecies[i] {
			return &task.ValidationError{Section: "molecule", Key: "species"}
		}
	}

	refCoords := ref.Molecule.Coords()
	workCoords := working.Molecule.Coords()
	for i := range refCoords {
		for axis := 0; axis < 3; axis++ {
			if math.Abs(refCoords[i][axis]-workCoords[i][axis]) > coordTolerance {
				return &task.ToleranceError{
					Atom:      i,
					Axis:      axis,
					Want:      refCoords[i][axis],
					Got:       workCoords[i][axis],
					Tolerance: coordTolerance,
				}
			}
		}
	}

	sections := []struct {
		name string
		ref  *qcinput.Section
		work *qcinput.Section
	}{
		{"rem", ref.Rem, working.Rem},
		{"opt", ref.Opt, working.Opt},
		{"pcm", ref.PCM, working.PCM},
		{"solvent", ref.Solvent, working.Solvent},
	}
	for _, section := range sections {
		if section.ref == nil {
			continue
		}
		for _, key := range section.ref.Keys() {
			refValue, _ := section.ref.Get(key)
			workValue, ok := section.work.Get(key)
			if !ok || workValue != refValue {
				return &task.ValidationError{Section: section.name, Key: key}
			}
		}
	}
	return nil
}

// clearInput deletes the working input file. Missing files are fine.
func clearInput(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("task %s: clear input: %w", taskID, err)
	}
	return nil
}

// generateOutputs copies every regular file from the reference directory
// into the working directory, non-recursively.
func generateOutputs(refDir, workDir string) error {
	entries, err := os.ReadDir(refDir)
	if err != nil {
		return fmt.Errorf("task %s: read reference dir: %w", taskID, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(refDir, entry.Name())
		dst := filepath.Join(workDir, entry.Name())
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("task %s: copy %s: %w", taskID, entry.Name(), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
