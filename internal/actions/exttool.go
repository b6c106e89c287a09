package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"idsbench/internal/logging"
)

// ExternalToolset implements every collaborator interface by running the
// corresponding tool binary from a toolchain directory with the config path
// as its argument. This keeps the orchestrator usable against any dataset
// generator or trainer that honours the config-path contract.
type ExternalToolset struct {
	// Dir is the directory holding the tool binaries. Empty means the
	// binaries are resolved through PATH.
	Dir string

	// Env is appended to the inherited environment of every tool process.
	Env []string
}

// Tool binary names, resolved relative to Dir.
const (
	toolSimulate = "idsbench-simulate"
	toolAttack   = "idsbench-attack"
	toolTrain    = "idsbench-train"
	toolEvaluate = "idsbench-evaluate"
	toolCompare  = "idsbench-compare"
)

func (t *ExternalToolset) run(ctx context.Context, tool string, args ...string) error {
	bin := tool
	if t.Dir != "" {
		bin = filepath.Join(t.Dir, tool)
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), t.Env...)

	logging.Dispatch("running %s %v", bin, args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tool %s: %w", tool, err)
	}
	return nil
}

// GenerateBenign implements TrafficSimulator.
func (t *ExternalToolset) GenerateBenign(ctx context.Context, configPath string) error {
	return t.run(ctx, toolSimulate, configPath)
}

// GenerateAttack implements AttackInjector.
func (t *ExternalToolset) GenerateAttack(ctx context.Context, configPath string) error {
	return t.run(ctx, toolAttack, configPath)
}

// Train implements ModelTrainer.
func (t *ExternalToolset) Train(ctx context.Context, configPath string) error {
	return t.run(ctx, toolTrain, configPath)
}

// Evaluate implements ModelEvaluator.
func (t *ExternalToolset) Evaluate(ctx context.Context, configPath string) error {
	return t.run(ctx, toolEvaluate, configPath)
}

// ComprehensiveEvaluate implements ModelEvaluator.
func (t *ExternalToolset) ComprehensiveEvaluate(ctx context.Context, configPath string) error {
	return t.run(ctx, toolEvaluate, "--comprehensive", configPath)
}

// Compare implements ResultComparator.
func (t *ExternalToolset) Compare(ctx context.Context, configPath string) error {
	return t.run(ctx, toolCompare, configPath)
}

// Toolset returns the collaborator bundle backed by the external toolchain.
func (t *ExternalToolset) Toolset() Collaborators {
	return Collaborators{
		Simulator:  t,
		Injector:   t,
		Trainer:    t,
		Evaluator:  t,
		Comparator: t,
	}
}
