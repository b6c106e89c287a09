// Package workflow loads and validates the declarative campaign documents
// that drive one orchestrator invocation. A description is either a single
// action, a linear pipeline of steps, or a parametric loop; the engine
// consumes the validated form produced here.
package workflow

import (
	"idsbench/internal/confignode"
)

// Variation types a loop specification may carry.
const (
	VariationRandomSeed             = "randomSeed"
	VariationAttackSegments         = "attackSegments"
	VariationParameters             = "parameters"
	VariationSingleAttacks          = "singleAttacks"
	VariationDualAttackCombinations = "dualAttackCombinations"
)

// Segment codes recognised in dataset patterns.
const (
	SegmentA1       = "A1"
	SegmentA2       = "A2"
	SegmentA1PlusA2 = "A1+A2"
	SegmentA2PlusA1 = "A2+A1"
)

// Description is the top-level workflow document.
type Description struct {
	Action           string       `json:"action"`
	ActionConfigFile string       `json:"actionConfigFile"`
	CommonConfig     CommonConfig `json:"commonConfig"`
	Pipeline         []Step       `json:"pipeline"`
	Loop             *LoopSpec    `json:"loop"`

	// Path is the filesystem location the description was loaded from.
	// Relative config paths resolve against its directory.
	Path string `json:"-"`

	// BaseConfig is the parsed action-config document for non-pipeline
	// workflows.
	BaseConfig *confignode.Node `json:"-"`

	root *confignode.Node
}

// CommonConfig carries settings shared by every step of the workflow.
type CommonConfig struct {
	RandomSeed   *int64 `json:"randomSeed"`
	OutputFormat string `json:"outputFormat"`
}

// Step is one entry of a pipeline or of a loop body.
type Step struct {
	Action             string           `json:"action"`
	ActionConfigFile   string           `json:"actionConfigFile"`
	Inline             *confignode.Node `json:"inline"`
	Description        string           `json:"description"`
	Loop               *LoopSpec        `json:"loop"`
	ParameterOverrides *confignode.Node `json:"parameterOverrides"`
}

// LoopSpec describes a parametric expansion over an ordered value sequence.
type LoopSpec struct {
	VariationType   string             `json:"variationType"`
	Values          []*confignode.Node `json:"values"`
	Steps           []Step             `json:"steps"`
	BaselineDataset string             `json:"baselineDataset"`
	DatasetPatterns []Pattern          `json:"datasetPatterns"`
}

// Pattern names one dataset-composition pattern for dual-attack expansion.
type Pattern struct {
	PatternName string   `json:"patternName"`
	Segments    []string `json:"segments"`
}

// DefaultPatterns is the pattern set used when dualAttackCombinations loops
// omit datasetPatterns.
var DefaultPatterns = []Pattern{
	{PatternName: "simple", Segments: []string{SegmentA1, SegmentA2}},
	{PatternName: "combined", Segments: []string{SegmentA1PlusA2}},
}

// Root returns the raw parsed workflow document, used to resolve
// "${fieldName}" loop-value references.
func (d *Description) Root() *confignode.Node { return d.root }

// IsPipeline reports whether the workflow is a pipeline (or loop) rather
// than a single action.
func (d *Description) IsPipeline() bool {
	return d.Action == "pipeline"
}
