package custodian

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Parallelization modes accepted by QCJob.
const (
	MultimodeOpenMP = "openmp"
	MultimodeMPI    = "mpi"
)

// Default file names for Q-Chem runs.
const (
	DefaultInputFile  = "mol.qin"
	DefaultOutputFile = "mol.qout"
	DefaultLogFile    = "mol.qclog"
)

// QCJob describes one Q-Chem invocation: the executable, parallelization,
// file names and housekeeping flags. It carries no execution state; the run
// loop owns that.
type QCJob struct {
	// Command is the bare executable name or path, without flags.
	Command   string
	MaxCores  int
	Multimode string

	InputFile  string
	OutputFile string
	LogFile    string

	// Suffix is appended to copies of the input/output/log files during
	// postprocess, preserving per-step results in multi-job sequences.
	Suffix string

	// CalcLoc overrides QCSCRATCH; empty means scratch under the run dir.
	CalcLoc string
	// NBOExe sets NBOEXE for runs requesting NBO analysis.
	NBOExe string

	SaveScratch bool
	Backup      bool
}

// applyDefaults fills the conventional file names.
func (j *QCJob) applyDefaults() {
	if j.InputFile == "" {
		j.InputFile = DefaultInputFile
	}
	if j.OutputFile == "" {
		j.OutputFile = DefaultOutputFile
	}
	if j.LogFile == "" {
		j.LogFile = DefaultLogFile
	}
	if j.Multimode == "" {
		j.Multimode = MultimodeOpenMP
	}
}

// Args synthesizes the command line for the configured parallelization mode.
func (j QCJob) Args() ([]string, error) {
	if j.Command == "" {
		return nil, fmt.Errorf("custodian: job command is required")
	}
	cores := strconv.Itoa(j.MaxCores)
	switch j.Multimode {
	case MultimodeOpenMP:
		return []string{j.Command, "-nt", cores, j.InputFile, j.OutputFile}, nil
	case MultimodeMPI:
		return []string{j.Command, "-np", cores, j.InputFile, j.OutputFile}, nil
	default:
		return nil, fmt.Errorf("custodian: unsupported multimode %q", j.Multimode)
	}
}

// Env returns the extra process environment for a run rooted at dir.
func (j QCJob) Env(dir string) []string {
	scratch := j.CalcLoc
	if scratch == "" {
		scratch = filepath.Join(dir, "scratch")
	}
	env := []string{"QCSCRATCH=" + scratch}
	if j.NBOExe != "" {
		env = append(env, "NBOEXE="+j.NBOExe)
	}
	return env
}

// Setup prepares the run directory: scratch space and, when Backup is set, a
// .orig copy of the input file.
func (j QCJob) Setup(dir string) error {
	if j.CalcLoc == "" {
		if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
			return fmt.Errorf("custodian: create scratch: %w", err)
		}
	}
	if !j.Backup {
		return nil
	}
	src := filepath.Join(dir, j.InputFile)
	if err := copyFile(src, src+".orig"); err != nil {
		return fmt.Errorf("custodian: backup input: %w", err)
	}
	return nil
}

// Run executes the job through the runner, redirecting output to the log file.
func (j QCJob) Run(ctx context.Context, runner CommandRunner, dir string) (int, error) {
	args, err := j.Args()
	if err != nil {
		return 0, err
	}
	return runner.Run(ctx, Call{
		Dir:     dir,
		Args:    args,
		Env:     j.Env(dir),
		LogPath: filepath.Join(dir, j.LogFile),
	})
}

// Postprocess applies the suffix to per-step copies of the run files and
// discards scratch unless the job asked to keep it.
func (j QCJob) Postprocess(dir string) error {
	if j.Suffix != "" {
		for _, name := range []string{j.InputFile, j.OutputFile, j.LogFile} {
			src := filepath.Join(dir, name)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := copyFile(src, src+j.Suffix); err != nil {
				return fmt.Errorf("custodian: suffix copy %s: %w", name, err)
			}
		}
	}
	if !j.SaveScratch && j.CalcLoc == "" {
		if err := os.RemoveAll(filepath.Join(dir, "scratch")); err != nil {
			return fmt.Errorf("custodian: clear scratch: %w", err)
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
