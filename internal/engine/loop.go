package engine

import (
	"context"
	"fmt"
	"strconv"

	"idsbench/internal/confignode"
	"idsbench/internal/logging"
	"idsbench/internal/progress"
	"idsbench/internal/workflow"
)

// runLoop executes a parametric loop: one pass over loop.Steps per resolved
// value (or per attack-pair/pattern cell for dual expansion). Iteration
// indices are 1-based. The first failing step aborts the loop.
func (e *Engine) runLoop(ctx context.Context, desc *workflow.Description, loop *workflow.LoopSpec, prog *progress.Tracker) error {
	if loop.VariationType == workflow.VariationDualAttackCombinations {
		return e.runDualLoop(ctx, desc, loop, prog)
	}

	logging.Loop("%s loop: %d values, %d steps per iteration", loop.VariationType, len(loop.Values), len(loop.Steps))
	for idx, value := range loop.Values {
		iteration := idx + 1
		bindings := confignode.Bindings{"iteration": strconv.Itoa(iteration)}

		for i := range loop.Steps {
			step := &loop.Steps[i]
			prog.IncrementStep(fmt.Sprintf("%s (iteration %d)", stepLabel(step), iteration))

			err := e.runMaterialisedStep(ctx, desc, step, iteration, loop, bindings,
				func(cfg *confignode.Node) error {
					return e.applyVariationOverride(cfg, loop.VariationType, value, bindings)
				})
			if err != nil {
				return wrapStepError(err, step.Action, stepLabel(step), iteration)
			}
			prog.CompleteCurrentStep("")
		}
	}
	return nil
}

// runDualLoop executes the attack-pair by dataset-pattern product. Each cell
// replaces the attackSegmentsConfig placeholder in the step config with the
// cell's segment descriptors and binds attack1, attack2, patternName, and
// the global iteration counter.
func (e *Engine) runDualLoop(ctx context.Context, desc *workflow.Description, loop *workflow.LoopSpec, prog *progress.Tracker) error {
	cells, err := expandDualFactor(loop)
	if err != nil {
		return err
	}
	logging.Loop("dual-factor loop: %d pairs expanded to %d iterations", len(loop.Values), len(cells))

	for _, cell := range cells {
		bindings := confignode.Bindings{
			"iteration":   strconv.Itoa(cell.Index),
			"attack1":     cell.Attack1,
			"attack2":     cell.Attack2,
			"patternName": cell.Pattern,
		}

		for i := range loop.Steps {
			step := &loop.Steps[i]
			label := fmt.Sprintf("%s (%s+%s/%s #%d)", stepLabel(step), cell.Attack1, cell.Attack2, cell.Pattern, cell.Index)
			prog.IncrementStep(label)

			segments := cell.Segments
			err := e.runMaterialisedStep(ctx, desc, step, cell.Index, loop, bindings,
				func(cfg *confignode.Node) error {
					confignode.ReplaceToken(cfg, attackSegmentsToken, segments)
					return nil
				})
			if err != nil {
				return wrapStepError(err, step.Action, stepLabel(step), cell.Index)
			}
			prog.CompleteCurrentStep("")
		}
	}
	return nil
}
