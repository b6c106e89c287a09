package actions

import "context"

// The orchestrator core never generates traffic, trains, or evaluates by
// itself; it calls these collaborators. Each method receives a filesystem
// path to a self-contained config document and is expected to produce
// artifact files and, optionally, call the provenance tracker.

// TrafficSimulator produces synthetic benign protocol traffic datasets.
type TrafficSimulator interface {
	GenerateBenign(ctx context.Context, configPath string) error
}

// AttackInjector produces attack (and mixed training) datasets.
type AttackInjector interface {
	GenerateAttack(ctx context.Context, configPath string) error
}

// ModelTrainer trains classifiers on a prepared dataset.
type ModelTrainer interface {
	Train(ctx context.Context, configPath string) error
}

// ModelEvaluator evaluates trained classifiers against test datasets.
type ModelEvaluator interface {
	Evaluate(ctx context.Context, configPath string) error
	ComprehensiveEvaluate(ctx context.Context, configPath string) error
}

// ResultComparator produces comparison and statistics reports across runs.
type ResultComparator interface {
	Compare(ctx context.Context, configPath string) error
}

// Collaborators bundles the external subsystems the orchestrator drives.
type Collaborators struct {
	Simulator  TrafficSimulator
	Injector   AttackInjector
	Trainer    ModelTrainer
	Evaluator  ModelEvaluator
	Comparator ResultComparator
}

// RegisterDefaults binds the six user-visible actions to the collaborator
// set. The pipeline action is not registered here: the engine owns it.
func RegisterDefaults(r *Registry, c Collaborators) {
	r.Register(ActionCreateBenign, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Simulator.GenerateBenign(ctx, path)
	}))
	r.Register(ActionCreateAttackDataset, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Injector.GenerateAttack(ctx, path)
	}))
	r.Register(ActionTrainModel, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Trainer.Train(ctx, path)
	}))
	r.Register(ActionEvaluate, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Evaluator.Evaluate(ctx, path)
	}))
	r.Register(ActionComprehensiveEvaluate, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Evaluator.ComprehensiveEvaluate(ctx, path)
	}))
	r.Register(ActionCompare, HandlerFunc(func(ctx context.Context, path string) error {
		return c.Comparator.Compare(ctx, path)
	}))
}
