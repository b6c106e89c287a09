package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsbench/internal/actions"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSingleAction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benign.json", `{"simulation":{"duration":600}}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "createBenign",
		"actionConfigFile": "benign.json",
		"commonConfig": {"randomSeed": 42, "outputFormat": "arff"}
	}`)

	desc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "createBenign", desc.Action)
	assert.False(t, desc.IsPipeline())
	require.NotNil(t, desc.CommonConfig.RandomSeed)
	assert.Equal(t, int64(42), *desc.CommonConfig.RandomSeed)
	require.NotNil(t, desc.BaseConfig)
	dur, ok := desc.BaseConfig.GetPath("simulation.duration")
	require.True(t, ok)
	v, err := dur.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(600), v)
}

func TestLoadYAMLDescription(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cfg.json", `{}`)
	path := writeFile(t, dir, "workflow.yaml",
		"action: createBenign\nactionConfigFile: cfg.json\ncommonConfig:\n  randomSeed: 7\n")

	desc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "createBenign", desc.Action)
	require.NotNil(t, desc.CommonConfig.RandomSeed)
	assert.Equal(t, int64(7), *desc.CommonConfig.RandomSeed)
}

func TestLoadMissingAction(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "workflow.json", `{"actionConfigFile": "cfg.json"}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, actions.ErrMissingAction)
	assert.Equal(t, actions.ExitUnknownAction, actions.ExitCode(err))
}

func TestLoadMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "workflow.json", `{"action": "createBenign",`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, actions.ExitConfigError, actions.ExitCode(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	var cfgErr *actions.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadMissingActionConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "workflow.json", `{"action":"trainModel","actionConfigFile":"absent.json"}`)

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *actions.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Path, "absent.json")
}

func TestLoadPipelineWithLoop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benign.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"loop": {
			"variationType": "randomSeed",
			"values": [42, 100, 200],
			"steps": [
				{"action": "createBenign", "actionConfigFile": "benign.json"}
			]
		}
	}`)

	desc, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, desc.Loop)
	assert.Len(t, desc.Loop.Values, 3)
	seed, err := desc.Loop.Values[0].Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), seed)
}

func TestLoadResolvesFieldReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "attack.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"attackTypes": ["uc01_random_replay", "uc03_masquerade_fault"],
		"loop": {
			"variationType": "singleAttacks",
			"values": ["${attackTypes}"],
			"steps": [
				{"action": "createAttackDataset", "actionConfigFile": "attack.json"}
			]
		}
	}`)

	desc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, desc.Loop.Values, 2)
	assert.Equal(t, "uc01_random_replay", desc.Loop.Values[0].StringValue())
	assert.Equal(t, "uc03_masquerade_fault", desc.Loop.Values[1].StringValue())
}

func TestLoadRejectsMixedFieldReferences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "attack.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"attackTypes": ["uc01"],
		"loop": {
			"variationType": "singleAttacks",
			"values": ["${attackTypes}", "uc02"],
			"steps": [{"action": "createAttackDataset", "actionConfigFile": "attack.json"}]
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mix field references")
}

func TestLoadRejectsUnresolvedFieldReference(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "attack.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"loop": {
			"variationType": "singleAttacks",
			"values": ["${missingField}"],
			"steps": [{"action": "createAttackDataset", "actionConfigFile": "attack.json"}]
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missingField")
}

func TestLoadRejectsUnknownVariationType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cfg.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"loop": {
			"variationType": "quantumSeeds",
			"values": [1],
			"steps": [{"action": "createBenign", "actionConfigFile": "cfg.json"}]
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, actions.ExitConfigError, actions.ExitCode(err))
}

func TestLoadRejectsEmptyLoopSections(t *testing.T) {
	dir := t.TempDir()
	for name, doc := range map[string]string{
		"empty values": `{"action":"pipeline","loop":{"variationType":"randomSeed","values":[],"steps":[{"action":"createBenign","actionConfigFile":"cfg.json"}]}}`,
		"empty steps":  `{"action":"pipeline","loop":{"variationType":"randomSeed","values":[1],"steps":[]}}`,
	} {
		path := writeFile(t, dir, "wf.json", doc)
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestLoadRejectsLoopOnSingleActionWorkflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benign.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "createBenign",
		"actionConfigFile": "benign.json",
		"loop": {
			"variationType": "randomSeed",
			"values": [42],
			"steps": [{"action": "createBenign", "actionConfigFile": "benign.json"}]
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, actions.ExitConfigError, actions.ExitCode(err))
	assert.Contains(t, err.Error(), "cannot carry loop or pipeline")
}

func TestLoadRejectsInlineAndFileOnSameStep(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"pipeline": [
			{"action": "createBenign", "actionConfigFile": "cfg.json", "inline": {"a": 1}}
		]
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoadDualAttackCombinations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "attack.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"loop": {
			"variationType": "dualAttackCombinations",
			"values": [["uc01", "uc02"], ["uc03", "uc05"]],
			"datasetPatterns": [
				{"patternName": "simple", "segments": ["A1", "A2"]},
				{"patternName": "combined", "segments": ["A1+A2"]}
			],
			"steps": [{"action": "createAttackDataset", "actionConfigFile": "attack.json"}]
		}
	}`)

	desc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, desc.Loop.DatasetPatterns, 2)
	assert.Equal(t, "simple", desc.Loop.DatasetPatterns[0].PatternName)
}

func TestLoadRejectsMalformedDualPair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "attack.json", `{}`)
	path := writeFile(t, dir, "workflow.json", `{
		"action": "pipeline",
		"loop": {
			"variationType": "dualAttackCombinations",
			"values": [["uc01"]],
			"steps": [{"action": "createAttackDataset", "actionConfigFile": "attack.json"}]
		}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair of attack names")
}

func TestResolvePathRelative(t *testing.T) {
	d := &Description{Path: "/campaigns/seeds/workflow.json"}
	assert.Equal(t, "/campaigns/seeds/benign.json", d.ResolvePath("benign.json"))
	assert.Equal(t, "/abs/cfg.json", d.ResolvePath("/abs/cfg.json"))
}
