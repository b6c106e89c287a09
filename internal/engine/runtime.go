// Package engine executes workflow descriptions: single actions, linear
// pipelines, and parametric loops. Steps run strictly in declaration order;
// the only concurrency is whatever external action handlers do internally.
package engine

import (
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"idsbench/internal/logging"
)

// HeadlessEnv is exported to action-handler subprocesses so external tools
// suppress any GUI they would otherwise open.
const HeadlessEnv = "IDSBENCH_HEADLESS"

// RuntimeContext carries the per-run mutable state that would otherwise live
// in globals: the seeded random source, headless mode, and temp-config
// retention. One context is built per orchestrator invocation and handed to
// the engine explicitly.
type RuntimeContext struct {
	// RunID names this invocation; temp configs are grouped under it.
	RunID string

	// Headless suppresses GUI behaviour in external handlers.
	Headless bool

	// KeepTempConfigs retains materialised step configs for debugging.
	KeepTempConfigs bool

	mu   sync.Mutex
	rand *rand.Rand
	seed int64
}

// NewRuntimeContext builds a context with a wall-clock seeded random source.
// Headless defaults to the IDSBENCH_HEADLESS environment variable.
func NewRuntimeContext() *RuntimeContext {
	seed := time.Now().UnixNano()
	return &RuntimeContext{
		RunID:    uuid.NewString(),
		Headless: os.Getenv(HeadlessEnv) != "",
		rand:     rand.New(rand.NewSource(seed)),
		seed:     seed,
	}
}

// Reseed reinstalls the process-wide random seed. Called by the config
// loader for commonConfig.randomSeed and by randomSeed variation overrides;
// these are the only write points.
func (rt *RuntimeContext) Reseed(seed int64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.seed = seed
	rt.rand = rand.New(rand.NewSource(seed))
	logging.Engine("random source reseeded to %d", seed)
}

// Seed returns the currently installed seed.
func (rt *RuntimeContext) Seed() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.seed
}

// Int63 draws from the run's random source.
func (rt *RuntimeContext) Int63() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.rand.Int63()
}
