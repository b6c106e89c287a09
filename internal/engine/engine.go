package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"idsbench/internal/actions"
	"idsbench/internal/confignode"
	"idsbench/internal/logging"
	"idsbench/internal/progress"
	"idsbench/internal/tracking"
	"idsbench/internal/workflow"
)

// Engine runs a validated workflow description against a handler registry,
// recording the run in the provenance trail. Execution is single-threaded:
// steps run in declaration order and a failure skips everything after it.
type Engine struct {
	registry     *actions.Registry
	tracker      *tracking.Tracker
	runtime      *RuntimeContext
	progressOpts []progress.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressOptions forwards options to the progress trackers the engine
// creates, for redirecting or muting terminal output.
func WithProgressOptions(opts ...progress.Option) Option {
	return func(e *Engine) { e.progressOpts = opts }
}

// New builds an engine.
func New(registry *actions.Registry, tracker *tracking.Tracker, runtime *RuntimeContext, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		tracker:  tracker,
		runtime:  runtime,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes a workflow end to end. An experiment row is opened before the
// first action and closed as completed or failed; the returned error (if
// any) maps to an exit code via actions.ExitCode.
func (e *Engine) Run(ctx context.Context, desc *workflow.Description) error {
	if desc.CommonConfig.RandomSeed != nil {
		e.runtime.Reseed(*desc.CommonConfig.RandomSeed)
	}

	experimentType := desc.Action
	if desc.IsPipeline() {
		experimentType = "pipeline"
	}
	experimentID := e.tracker.StartExperiment(experimentType, experimentLabel(desc), desc.Path, "")
	logging.Engine("experiment %s: running %s workflow %s", experimentID, experimentType, desc.Path)

	if err := e.execute(ctx, desc); err != nil {
		e.tracker.FailExperiment(experimentID, err.Error())
		logging.Engine("experiment %s failed: %v", experimentID, err)
		return err
	}

	e.tracker.CompleteExperiment(experimentID)
	logging.Engine("experiment %s completed", experimentID)
	return nil
}

func experimentLabel(desc *workflow.Description) string {
	switch {
	case desc.Loop != nil:
		return desc.Loop.VariationType + " loop"
	case len(desc.Pipeline) > 0:
		return "linear pipeline"
	default:
		return desc.Action
	}
}

func (e *Engine) execute(ctx context.Context, desc *workflow.Description) error {
	if !desc.IsPipeline() {
		cfgPath := desc.ResolvePath(desc.ActionConfigFile)
		if err := e.registry.Dispatch(ctx, desc.Action, cfgPath); err != nil {
			return wrapStepError(err, desc.Action, "", 0)
		}
		return nil
	}

	prog := progress.New(filepath.Base(desc.Path), countPipelineUnits(desc), e.progressOpts...)
	prog.Start()

	for i := range desc.Pipeline {
		step := &desc.Pipeline[i]
		if step.Loop != nil {
			if err := e.runLoopUnit(ctx, desc, step.Loop, prog, stepLabel(step)); err != nil {
				return err
			}
			continue
		}
		if err := e.runPipelineStep(ctx, desc, step, prog); err != nil {
			return err
		}
	}
	if desc.Loop != nil {
		if err := e.runLoopUnit(ctx, desc, desc.Loop, prog, desc.Loop.VariationType+" loop"); err != nil {
			return err
		}
	}

	prog.Complete()
	return nil
}

// runLoopUnit runs a loop as one unit of the workflow-level tracker, with a
// sub-tracker sized to the loop's full expansion.
func (e *Engine) runLoopUnit(ctx context.Context, desc *workflow.Description, loop *workflow.LoopSpec,
	prog *progress.Tracker, label string) error {
	prog.IncrementStep(label)
	sub := prog.CreateSubTracker(label, loopCardinality(loop))
	sub.Start()
	if err := e.runLoop(ctx, desc, loop, sub); err != nil {
		return err
	}
	sub.Complete()
	prog.CompleteCurrentStep("")
	return nil
}

// runPipelineStep executes one linear-pipeline step. A step without inline
// config or overrides hands its config file to the dispatcher unmodified;
// otherwise the config is materialised first.
func (e *Engine) runPipelineStep(ctx context.Context, desc *workflow.Description, step *workflow.Step, prog *progress.Tracker) error {
	prog.IncrementStep(stepLabel(step))

	var err error
	if step.Inline == nil && step.ParameterOverrides == nil {
		err = e.registry.Dispatch(ctx, step.Action, desc.ResolvePath(step.ActionConfigFile))
	} else {
		err = e.runMaterialisedStep(ctx, desc, step, 1, nil, confignode.Bindings{"iteration": "1"}, nil)
	}
	if err != nil {
		return wrapStepError(err, step.Action, stepLabel(step), 0)
	}

	prog.CompleteCurrentStep("")
	return nil
}

// runMaterialisedStep loads a step's base config, applies the loop variation
// (via apply, which may be nil), the step overrides, and variable
// substitution, then dispatches the materialised result. The temp config is
// released on every path unless retention is toggled.
func (e *Engine) runMaterialisedStep(ctx context.Context, desc *workflow.Description, step *workflow.Step,
	iteration int, loop *workflow.LoopSpec, bindings confignode.Bindings,
	apply func(cfg *confignode.Node) error) error {

	cfg, err := e.loadStepConfig(desc, step)
	if err != nil {
		return err
	}
	if apply != nil {
		if err := apply(cfg); err != nil {
			return err
		}
	}
	if err := applyStepOverrides(cfg, step, iteration, loop); err != nil {
		return err
	}
	confignode.Substitute(cfg, bindings)

	tmp, release, err := e.materialise(cfg, step.Action, iteration)
	if err != nil {
		return err
	}
	defer release()

	logging.Dispatch("step %s iteration %d using %s", step.Action, iteration, tmp)
	return e.registry.Dispatch(ctx, step.Action, tmp)
}

func (e *Engine) loadStepConfig(desc *workflow.Description, step *workflow.Step) (*confignode.Node, error) {
	if step.Inline != nil {
		return step.Inline.Clone(), nil
	}
	path := desc.ResolvePath(step.ActionConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &actions.ConfigError{Path: path, Err: err}
	}
	cfg, err := confignode.ParseFile(path, data)
	if err != nil {
		return nil, &actions.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func stepLabel(step *workflow.Step) string {
	if step.Description != "" {
		return step.Description
	}
	return step.Action
}

// wrapStepError attaches step identity to a handler failure unless the error
// already carries workflow or config typing.
func wrapStepError(err error, action, step string, iteration int) error {
	var wfErr *actions.WorkflowError
	var cfgErr *actions.ConfigError
	var actErr *actions.ActionError
	if errors.As(err, &wfErr) || errors.As(err, &cfgErr) || errors.As(err, &actErr) {
		return err
	}
	return &actions.ActionError{Action: action, Step: step, Iteration: iteration, Err: err}
}

// countPipelineUnits sizes the workflow-level tracker: one unit per plain
// pipeline step, one per loop (each loop reports its expansion on its own
// sub-tracker).
func countPipelineUnits(desc *workflow.Description) int {
	total := len(desc.Pipeline)
	if desc.Loop != nil {
		total++
	}
	return total
}

// loopCardinality returns the number of step executions a loop performs:
// values times steps, with dual loops multiplying in the pattern count.
func loopCardinality(loop *workflow.LoopSpec) int {
	iterations := len(loop.Values)
	if loop.VariationType == workflow.VariationDualAttackCombinations {
		patterns := len(loop.DatasetPatterns)
		if patterns == 0 {
			patterns = len(workflow.DefaultPatterns)
		}
		iterations *= patterns
	}
	return iterations * len(loop.Steps)
}
