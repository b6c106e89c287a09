package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsbench/internal/confignode"
	"idsbench/internal/workflow"
)

func pair(a, b string) *confignode.Node {
	return confignode.Array(confignode.String(a), confignode.String(b))
}

func TestExpandDualFactorProductOrder(t *testing.T) {
	loop := &workflow.LoopSpec{
		VariationType: workflow.VariationDualAttackCombinations,
		Values:        []*confignode.Node{pair("uc01", "uc02"), pair("uc03", "uc05")},
		DatasetPatterns: []workflow.Pattern{
			{PatternName: "simple", Segments: []string{workflow.SegmentA1, workflow.SegmentA2}},
			{PatternName: "combined", Segments: []string{workflow.SegmentA1PlusA2}},
		},
	}

	cells, err := expandDualFactor(loop)
	require.NoError(t, err)
	require.Len(t, cells, 4)

	assert.Equal(t, []int{1, 2, 3, 4}, []int{cells[0].Index, cells[1].Index, cells[2].Index, cells[3].Index})
	assert.Equal(t, "simple", cells[0].Pattern)
	assert.Equal(t, "combined", cells[1].Pattern)
	assert.Equal(t, "uc03", cells[2].Attack1)
	assert.Equal(t, "uc05", cells[2].Attack2)
}

func TestSegmentDescriptorShapes(t *testing.T) {
	loop := &workflow.LoopSpec{
		Values: []*confignode.Node{pair("uc01", "uc02")},
		DatasetPatterns: []workflow.Pattern{
			{PatternName: "reversed", Segments: []string{workflow.SegmentA2PlusA1}},
		},
	}

	cells, err := expandDualFactor(loop)
	require.NoError(t, err)
	require.Len(t, cells, 1)

	segs := cells[0].Segments
	require.Equal(t, 1, segs.Len())
	combo := segs.Index(0)
	name, _ := combo.Get("name")
	assert.Equal(t, "uc02+uc01", name.StringValue())
	files, _ := combo.Get("configFiles")
	require.Equal(t, 2, files.Len())
	assert.Equal(t, "config/attacks/uc02.json", files.Index(0).StringValue())
	assert.Equal(t, "config/attacks/uc01.json", files.Index(1).StringValue())
}

func TestExpandDualFactorRejectsUnknownSegmentCode(t *testing.T) {
	loop := &workflow.LoopSpec{
		Values: []*confignode.Node{pair("uc01", "uc02")},
		DatasetPatterns: []workflow.Pattern{
			{PatternName: "bad", Segments: []string{"A3"}},
		},
	}

	_, err := expandDualFactor(loop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A3")
}
