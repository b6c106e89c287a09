// Package actions maps normalised action names onto handler capabilities.
// A handler receives the path to a self-contained, already materialised
// config document and performs one unit of work. Adding an action is a
// Register call, never a switch-statement edit.
package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Canonical action names, in normalised form.
const (
	ActionCreateBenign          = "createbenign"
	ActionCreateAttackDataset   = "createattackdataset"
	ActionTrainModel            = "trainmodel"
	ActionEvaluate              = "evaluate"
	ActionComprehensiveEvaluate = "comprehensiveevaluate"
	ActionCompare               = "compare"
	ActionPipeline              = "pipeline"
)

// aliases maps alternate spellings onto canonical names.
var aliases = map[string]string{
	"createtraining": ActionCreateAttackDataset,
}

// Normalize folds an action token to its canonical form: case-insensitive,
// underscores stripped, aliases resolved. "train_model", "trainModel" and
// "TrainModel" all normalise to "trainmodel".
func Normalize(name string) string {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	if canonical, ok := aliases[n]; ok {
		return canonical
	}
	return n
}

// Handler executes one action against a materialised config document.
type Handler interface {
	Execute(ctx context.Context, configPath string) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, configPath string) error

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, configPath string) error {
	return f(ctx, configPath)
}

// Registry holds the action-name to handler mapping.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an action name (normalised on insert).
// Re-registering a name replaces the previous handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[Normalize(name)] = h
}

// Resolve returns the handler for an action token.
func (r *Registry) Resolve(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return h, nil
}

// Dispatch resolves the action and invokes its handler with the config path.
// Handler failures are returned unwrapped; callers add step identity.
func (r *Registry) Dispatch(ctx context.Context, name, configPath string) error {
	h, err := r.Resolve(name)
	if err != nil {
		return err
	}
	return h.Execute(ctx, configPath)
}

// Names returns the registered action names, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}
