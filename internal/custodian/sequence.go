package custodian

import (
	"fmt"
	"path/filepath"

	"github.com/qcforge/qcflow/internal/qcinput"
)

// Sequence yields job descriptors one at a time. Next returns (nil, nil)
// when the sequence is exhausted. Sequences may inspect the run directory to
// decide whether another job is needed.
type Sequence interface {
	Next(dir string) (*QCJob, error)
}

type singleSequence struct {
	job  QCJob
	done bool
}

// Single wraps one plain invocation in a Sequence.
func Single(job QCJob) Sequence {
	job.applyDefaults()
	return &singleSequence{job: job}
}

func (s *singleSequence) Next(string) (*QCJob, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	job := s.job
	return &job, nil
}

// FlattenerOptions configures the optimize / frequency-check / perturb loop.
type FlattenerOptions struct {
	Base QCJob

	// MaxIterations bounds the number of opt+freq rounds.
	MaxIterations int
	// MaxPerturbScale bounds the accumulated geometry perturbation applied
	// between rounds in unlinked mode.
	MaxPerturbScale float64
	// PerturbStep is how much the perturbation scale grows per retry.
	PerturbStep float64

	// Linked relies on Q-Chem carrying state through scratch between rounds
	// instead of perturbing the input geometry.
	Linked bool
	// FreqBeforeOpt starts the sequence with a frequency job.
	FreqBeforeOpt bool
	// TransitionState accepts exactly one imaginary mode instead of none.
	TransitionState bool
}

func (o *FlattenerOptions) applyDefaults() {
	o.Base.applyDefaults()
	if o.MaxIterations <= 0 {
		o.MaxIterations = 10
	}
	if o.MaxPerturbScale <= 0 {
		o.MaxPerturbScale = 0.3
	}
	if o.PerturbStep <= 0 {
		o.PerturbStep = 0.1
	}
}

type flattenerPhase int

const (
	phaseOpt flattenerPhase = iota
	phaseFreq
	phaseDone
)

type flattenerSequence struct {
	opts      FlattenerOptions
	phase     flattenerPhase
	iteration int
	scale     float64
	lastFreq  *QCJob
}

// Flattener builds the iterative optimize, check-frequency, perturb-and-retry
// sequence. In linked mode intermediate jobs keep their scratch so Q-Chem can
// restart from it; otherwise the input geometry is perturbed along the lowest
// imaginary mode before each retry.
func Flattener(opts FlattenerOptions) Sequence {
	opts.applyDefaults()
	seq := &flattenerSequence{opts: opts}
	if opts.FreqBeforeOpt {
		seq.phase = phaseFreq
	}
	return seq
}

func (s *flattenerSequence) Next(dir string) (*QCJob, error) {
	switch s.phase {
	case phaseOpt:
		job := s.stepJob("opt")
		s.phase = phaseFreq
		return job, nil
	case phaseFreq:
		job := s.stepJob("freq")
		s.lastFreq = job
		s.phase = phaseDone
		return job, nil
	}

	// A frequency job just finished: decide whether another round is needed.
	flat, err := s.flattened(dir)
	if err != nil {
		return nil, err
	}
	if flat {
		return nil, nil
	}
	s.iteration++
	if s.iteration >= s.opts.MaxIterations {
		return nil, fmt.Errorf("custodian: flattener exceeded %d iterations", s.opts.MaxIterations)
	}
	if !s.opts.Linked {
		if err := s.perturb(dir); err != nil {
			return nil, err
		}
	}
	s.phase = phaseFreq
	job := s.stepJob("opt")
	return job, nil
}

// stepJob clones the base job with a per-step suffix and the job-type rem.
func (s *flattenerSequence) stepJob(kind string) *QCJob {
	job := s.opts.Base
	job.Suffix = fmt.Sprintf(".%s_%d", kind, s.iteration)
	// Intermediate scratch must survive the round in linked mode.
	if s.opts.Linked {
		job.SaveScratch = true
	}
	return &job
}

// flattened reports whether the last frequency run shows an acceptable mode
// spectrum: no imaginary frequencies, or exactly one for transition states.
func (s *flattenerSequence) flattened(dir string) (bool, error) {
	outputPath := filepath.Join(dir, s.lastFreq.OutputFile)
	result, err := parseFrequencies(outputPath)
	if err != nil {
		return false, err
	}
	imaginary := 0
	for _, freq := range result.Frequencies {
		if freq < 0 {
			imaginary++
		}
	}
	if s.opts.TransitionState {
		return imaginary == 1, nil
	}
	return imaginary == 0, nil
}

// perturb displaces the input geometry along the lowest imaginary mode, with
// the accumulated scale capped at MaxPerturbScale.
func (s *flattenerSequence) perturb(dir string) error {
	s.scale += s.opts.PerturbStep
	if s.scale > s.opts.MaxPerturbScale {
		return fmt.Errorf("custodian: flattener perturbation %.2f exceeds maximum %.2f",
			s.scale, s.opts.MaxPerturbScale)
	}
	outputPath := filepath.Join(dir, s.lastFreq.OutputFile)
	result, err := parseFrequencies(outputPath)
	if err != nil {
		return err
	}
	if len(result.Mode) == 0 {
		return fmt.Errorf("custodian: flattener: output %s carries no displacement modes", s.lastFreq.OutputFile)
	}
	inputPath := filepath.Join(dir, s.opts.Base.InputFile)
	deck, err := qcinput.ReadFile(inputPath)
	if err != nil {
		return err
	}
	if len(deck.Molecule.Atoms) != len(result.Mode) {
		return fmt.Errorf("custodian: flattener: mode has %d atoms, input has %d",
			len(result.Mode), len(deck.Molecule.Atoms))
	}
	for i := range deck.Molecule.Atoms {
		for axis := 0; axis < 3; axis++ {
			deck.Molecule.Atoms[i].Coord[axis] += s.scale * result.Mode[i][axis]
		}
	}
	return deck.WriteFile(inputPath)
}
