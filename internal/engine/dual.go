package engine

import (
	"fmt"
	"path"

	"idsbench/internal/actions"
	"idsbench/internal/confignode"
	"idsbench/internal/workflow"
)

// attackSegmentsToken is the placeholder that dual-factor expansion replaces
// in step base configs with the synthesised segment descriptors.
const attackSegmentsToken = "${attackSegmentsConfig}"

// dualIteration is one cell of the attack-pair by dataset-pattern product.
// Index is the 1-based counter across the whole product.
type dualIteration struct {
	Index    int
	Attack1  string
	Attack2  string
	Pattern  string
	Segments *confignode.Node
}

// expandDualFactor synthesises the iteration sequence for a
// dualAttackCombinations loop: for each attack pair, one iteration per
// dataset pattern, patterns defaulting to simple and combined.
func expandDualFactor(loop *workflow.LoopSpec) ([]dualIteration, error) {
	patterns := loop.DatasetPatterns
	if len(patterns) == 0 {
		patterns = workflow.DefaultPatterns
	}

	var out []dualIteration
	for _, pair := range loop.Values {
		a1 := pair.Index(0).StringValue()
		a2 := pair.Index(1).StringValue()
		for _, p := range patterns {
			segments, err := segmentDescriptors(a1, a2, p)
			if err != nil {
				return nil, err
			}
			out = append(out, dualIteration{
				Index:    len(out) + 1,
				Attack1:  a1,
				Attack2:  a2,
				Pattern:  p.PatternName,
				Segments: segments,
			})
		}
	}
	return out, nil
}

// segmentDescriptors translates a pattern's segment codes into the
// descriptor array that replaces the attackSegmentsConfig placeholder.
func segmentDescriptors(a1, a2 string, p workflow.Pattern) (*confignode.Node, error) {
	arr := confignode.Array()
	for _, code := range p.Segments {
		switch code {
		case workflow.SegmentA1:
			arr.Append(singleSegment(a1))
		case workflow.SegmentA2:
			arr.Append(singleSegment(a2))
		case workflow.SegmentA1PlusA2:
			arr.Append(combinationSegment(a1, a2))
		case workflow.SegmentA2PlusA1:
			arr.Append(combinationSegment(a2, a1))
		default:
			return nil, &actions.WorkflowError{
				Msg: fmt.Sprintf("pattern %q carries unknown segment code %q", p.PatternName, code),
			}
		}
	}
	return arr, nil
}

func attackConfigPath(attack string) string {
	return path.Join("config", "attacks", attack+".json")
}

func singleSegment(attack string) *confignode.Node {
	seg := confignode.Object()
	seg.Set("name", confignode.String(attack))
	seg.Set("type", confignode.String("single"))
	seg.Set("configFile", confignode.String(attackConfigPath(attack)))
	seg.Set("enabled", confignode.Bool(true))
	return seg
}

func combinationSegment(first, second string) *confignode.Node {
	seg := confignode.Object()
	seg.Set("name", confignode.String(first+"+"+second))
	seg.Set("type", confignode.String("combination"))
	files := confignode.Array(
		confignode.String(attackConfigPath(first)),
		confignode.String(attackConfigPath(second)),
	)
	seg.Set("configFiles", files)
	seg.Set("enabled", confignode.Bool(true))
	return seg
}
