// Package supervised translates a named-option record into job and handler
// descriptors and hands them to the supervising orchestrator. Execution,
// output inspection and corrective re-runs all belong to the orchestrator;
// this task owns parameter translation only.
package supervised

import (
	"context"
	"fmt"

	"github.com/qcforge/qcflow/internal/custodian"
	"github.com/qcforge/qcflow/internal/task"
)

const (
	taskID      = "run-qchem-custodian"
	taskVersion = "1.0.0"
)

// Job variant names accepted by the job_type option.
const (
	JobTypeNormal    = "normal"
	JobTypeFlattener = "opt_with_frequency_flattener"
)

// Plan is the fully-translated work order handed to the orchestrator.
type Plan struct {
	Dir        string
	Jobs       custodian.Sequence
	Handlers   []custodian.ErrorHandler
	MaxErrors  int
	GzipOutput bool
}

// Orchestrator executes a plan, blocking until it finishes or fails.
type Orchestrator interface {
	Run(ctx context.Context, plan Plan) error
}

type custodianOrchestrator struct{}

func (custodianOrchestrator) Run(ctx context.Context, plan Plan) error {
	c := custodian.New(plan.Handlers, plan.MaxErrors, plan.GzipOutput)
	return c.Run(ctx, plan.Dir, plan.Jobs)
}

// Option customizes the supervised runner.
type Option func(*Task)

// WithOrchestrator overrides the orchestrator (tests).
func WithOrchestrator(orch Orchestrator) Option {
	return func(t *Task) {
		if orch != nil {
			t.orch = orch
		}
	}
}

// WithHandlerRegistry overrides the handler group registry.
func WithHandlerRegistry(reg *custodian.HandlerRegistry) Option {
	return func(t *Task) {
		if reg != nil {
			t.handlers = reg
		}
	}
}

// Task is the supervised Q-Chem runner.
type Task struct {
	*task.Base
	cfg      task.Config
	orch     Orchestrator
	handlers *custodian.HandlerRegistry
}

// Register installs the task factory into the registry. Options apply to
// every resolved instance, which is how the CLI shares one plugin-extended
// handler registry across runs.
func Register(reg *task.Registry, opts ...Option) {
	if reg == nil {
		return
	}
	reg.MustRegister(taskID, func(cfg task.Config) (task.Task, error) {
		return New(cfg, opts...), nil
	})
}

// New wires the task metadata.
func New(cfg task.Config, opts ...Option) *Task {
	info := task.Info{
		ID:          taskID,
		Name:        "Run Q-Chem Under Supervision",
		Description: "Builds Q-Chem job and handler descriptors and delegates execution to the orchestrator.",
		Version:     taskVersion,
	}
	base := task.NewBase(info)
	t := &Task{
		Base:     &base,
		cfg:      cfg,
		orch:     custodianOrchestrator{},
		handlers: custodian.NewHandlerRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Run translates the option record and delegates to the orchestrator. Every
// configuration error is raised before the orchestrator is touched.
func (t *Task) Run(ctx *task.Context) (task.Result, error) {
	if err := task.ValidateContext(taskID, ctx); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	plan, err := t.translate(ctx)
	if err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	ctx.Logger.Printf("delegating %s run in %s to the orchestrator", taskID, ctx.WorkDir)
	if err := t.orch.Run(context.Background(), *plan); err != nil {
		return task.Result{Status: task.StatusFailed}, err
	}
	return task.Result{Status: task.StatusCompleted, Message: "orchestrated run finished"}, nil
}

// translate maps the option record onto a Plan. Defaults follow the
// documented option table; string values of the form >>name<< resolve
// through the project override store.
func (t *Task) translate(ctx *task.Context) (*Plan, error) {
	params := task.NewParams(t.cfg, ctx)

	command, err := params.Require("qchem_cmd")
	if err != nil {
		return nil, err
	}
	multimode, err := params.String("multimode", custodian.MultimodeOpenMP)
	if err != nil {
		return nil, err
	}
	if multimode != custodian.MultimodeOpenMP && multimode != custodian.MultimodeMPI {
		return nil, task.NewConfigError("multimode", "expected openmp or mpi, got %q", multimode)
	}
	if !params.Has("max_cores") {
		return nil, task.NewConfigError("max_cores", "required option is missing")
	}
	maxCores, err := params.Int("max_cores", 0)
	if err != nil {
		return nil, err
	}
	inputFile, err := params.String("input_file", custodian.DefaultInputFile)
	if err != nil {
		return nil, err
	}
	outputFile, err := params.String("output_file", custodian.DefaultOutputFile)
	if err != nil {
		return nil, err
	}
	logFile, err := params.String("qclog_file", custodian.DefaultLogFile)
	if err != nil {
		return nil, err
	}
	suffix, err := params.String("suffix", "")
	if err != nil {
		return nil, err
	}
	calcLoc, err := params.StringOrEnv("calc_loc", "calc_loc")
	if err != nil {
		return nil, err
	}
	nboExe, err := params.StringOrEnv("nboexe", "nboexe")
	if err != nil {
		return nil, err
	}
	saveScratch, err := params.Bool("save_scratch", false)
	if err != nil {
		return nil, err
	}
	backup, err := params.Bool("backup", true)
	if err != nil {
		return nil, err
	}
	maxErrors, err := params.Int("max_errors", 5)
	if err != nil {
		return nil, err
	}
	gzipOutput, err := params.Bool("gzipped_output", true)
	if err != nil {
		return nil, err
	}
	jobType, err := params.String("job_type", JobTypeNormal)
	if err != nil {
		return nil, err
	}
	handlerGroup, err := params.String("handler_group", custodian.GroupDefault)
	if err != nil {
		return nil, err
	}

	base := custodian.QCJob{
		Command:     command,
		MaxCores:    maxCores,
		Multimode:   multimode,
		InputFile:   inputFile,
		OutputFile:  outputFile,
		LogFile:     logFile,
		Suffix:      suffix,
		CalcLoc:     calcLoc,
		NBOExe:      nboExe,
		SaveScratch: saveScratch,
		Backup:      backup,
	}

	var jobs custodian.Sequence
	switch jobType {
	case JobTypeNormal:
		jobs = custodian.Single(base)
	case JobTypeFlattener:
		jobs, err = t.flattener(params, base)
		if err != nil {
			return nil, err
		}
	default:
		return nil, task.NewConfigError("job_type", "unsupported job type %q", jobType)
	}

	handlers, err := t.handlers.Resolve(handlerGroup, inputFile, outputFile)
	if err != nil {
		return nil, task.NewConfigError("handler_group", "%s", err)
	}

	return &Plan{
		Dir:        ctx.WorkDir,
		Jobs:       jobs,
		Handlers:   handlers,
		MaxErrors:  maxErrors,
		GzipOutput: gzipOutput,
	}, nil
}

func (t *Task) flattener(params task.Params, base custodian.QCJob) (custodian.Sequence, error) {
	maxIterations, err := params.Int("max_iterations", 10)
	if err != nil {
		return nil, err
	}
	maxPerturb, err := params.Float("max_molecule_perturb_scale", 0.3)
	if err != nil {
		return nil, err
	}
	linked, err := params.Bool("linked", true)
	if err != nil {
		return nil, err
	}
	freqBeforeOpt, err := params.Bool("freq_before_opt", false)
	if err != nil {
		return nil, err
	}
	transitionState, err := params.Bool("transition_state", false)
	if err != nil {
		return nil, err
	}
	if maxIterations <= 0 {
		return nil, task.NewConfigError("max_iterations", "must be positive, got %d", maxIterations)
	}
	if maxPerturb <= 0 {
		return nil, task.NewConfigError("max_molecule_perturb_scale",
			"must be positive, got %s", fmt.Sprintf("%g", maxPerturb))
	}
	return custodian.Flattener(custodian.FlattenerOptions{
		Base:            base,
		MaxIterations:   maxIterations,
		MaxPerturbScale: maxPerturb,
		Linked:          linked,
		FreqBeforeOpt:   freqBeforeOpt,
		TransitionState: transitionState,
	}), nil
}
