package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"idsbench/internal/actions"
	"idsbench/internal/confignode"
	"idsbench/internal/logging"
	"idsbench/internal/workflow"
)

// applyVariationOverride projects one loop value onto a step's base config
// according to the loop's variation type, and extends the substitution
// bindings where the type calls for it. Dual-attack expansion is handled
// separately.
func (e *Engine) applyVariationOverride(cfg *confignode.Node, variationType string,
	value *confignode.Node, b confignode.Bindings) error {
	switch variationType {
	case workflow.VariationRandomSeed:
		seed, err := value.Int64()
		if err != nil {
			return &actions.WorkflowError{Msg: "randomSeed loop value must be an integer", Err: err}
		}
		if !cfg.IsObject() {
			return &actions.WorkflowError{Msg: "randomSeed variation needs an object base config"}
		}
		cfg.SetPath("randomSeed", confignode.Int(seed))
		e.runtime.Reseed(seed)
		b["randomSeed"] = strconv.FormatInt(seed, 10)

	case workflow.VariationAttackSegments:
		if !value.IsArray() {
			return &actions.WorkflowError{Msg: "attackSegments loop value must be a list of attack names"}
		}
		names := make([]string, 0, value.Len())
		for _, el := range value.Elements() {
			names = append(names, el.StringValue())
		}
		return toggleAttackSegments(cfg, names)

	case workflow.VariationParameters:
		if !value.IsObject() {
			return &actions.WorkflowError{Msg: "parameters loop value must be a mapping of dotted keys"}
		}
		if !cfg.IsObject() {
			return &actions.WorkflowError{Msg: "parameters variation needs an object base config"}
		}
		for _, key := range value.Keys() {
			v, _ := value.Get(key)
			mergeOverride(cfg, key, v)
		}

	case workflow.VariationSingleAttacks:
		b["attackName"] = value.StringValue()

	default:
		return &actions.WorkflowError{Msg: fmt.Sprintf("unknown variationType %q", variationType)}
	}
	return nil
}

// toggleAttackSegments disables every entry of the config's attackSegments
// array, then re-enables entries whose name contains one of the supplied
// attack names as a substring.
func toggleAttackSegments(cfg *confignode.Node, attackNames []string) error {
	segments, ok := cfg.Get("attackSegments")
	if !ok || !segments.IsArray() {
		return &actions.WorkflowError{Msg: "attackSegments variation needs an attackSegments array in the base config"}
	}
	enabled := 0
	for _, seg := range segments.Elements() {
		if !seg.IsObject() {
			continue
		}
		seg.Set("enabled", confignode.Bool(false))
		name, _ := seg.Get("name")
		for _, attack := range attackNames {
			if attack != "" && strings.Contains(name.StringValue(), attack) {
				seg.Set("enabled", confignode.Bool(true))
				enabled++
				break
			}
		}
	}
	logging.Loop("attackSegments variation enabled %d of %d segments", enabled, segments.Len())
	return nil
}

// applyStepOverrides applies a step's parameterOverrides as dotted-path
// writes, then performs the cross-step derivation rules that let campaigns
// avoid hand-wiring every step's output into the next step's input:
//
//   - trainModel: an output.directory under .../models_variations/... implies
//     a training dataset at the parallel .../training_variations/ location,
//     file dataset_<iteration>.arff; written to input.trainingDatasetPath.
//   - evaluate, comprehensiveEvaluate: a loop baselineDataset becomes
//     input.testDatasetPath, and each input.models[].modelPath under
//     models_variations is re-pointed at the current iteration by rewriting
//     the digit run in the path component after models_variations.
//
// Writes need an object config document; an array or scalar document is an
// error when anything would be written into it.
func applyStepOverrides(cfg *confignode.Node, step *workflow.Step, iteration int, loop *workflow.LoopSpec) error {
	if step.ParameterOverrides != nil {
		if !cfg.IsObject() {
			return &actions.WorkflowError{Msg: fmt.Sprintf("step %q: parameterOverrides need an object base config", step.Action)}
		}
		for _, key := range step.ParameterOverrides.Keys() {
			v, _ := step.ParameterOverrides.Get(key)
			mergeOverride(cfg, key, v)
		}
	}

	switch actions.Normalize(step.Action) {
	case actions.ActionTrainModel:
		deriveTrainingDatasetPath(cfg, iteration)
	case actions.ActionEvaluate, actions.ActionComprehensiveEvaluate:
		if loop != nil && loop.BaselineDataset != "" {
			if !cfg.IsObject() {
				return &actions.WorkflowError{Msg: fmt.Sprintf("step %q: baselineDataset needs an object base config", step.Action)}
			}
			cfg.SetPath("input.testDatasetPath", confignode.String(loop.BaselineDataset))
		}
		repointModelPaths(cfg, iteration)
	}
	return nil
}

// mergeOverride writes an override value at a dotted path. An object value
// landing on an existing object deep-merges key by key; any other pairing
// replaces the target wholesale.
func mergeOverride(cfg *confignode.Node, key string, v *confignode.Node) {
	if v.IsObject() {
		if existing, ok := cfg.GetPath(key); ok && existing.IsObject() {
			mergeObjects(existing, v)
			return
		}
	}
	cfg.SetPath(key, v.Clone())
}

func mergeObjects(dst, src *confignode.Node) {
	for _, key := range src.Keys() {
		sv, _ := src.Get(key)
		if dv, ok := dst.Get(key); ok && dv.IsObject() && sv.IsObject() {
			mergeObjects(dv, sv)
			continue
		}
		dst.Set(key, sv.Clone())
	}
}

const (
	modelsVariationsDir   = "models_variations"
	trainingVariationsDir = "training_variations"
)

func deriveTrainingDatasetPath(cfg *confignode.Node, iteration int) {
	dirNode, ok := cfg.GetPath("output.directory")
	if !ok || !dirNode.IsString() {
		return
	}
	dir := dirNode.StringValue()
	if !strings.Contains(dir, modelsVariationsDir) {
		return
	}
	trainingDir := strings.Replace(dir, modelsVariationsDir, trainingVariationsDir, 1)
	dataset := filepath.Join(trainingDir, fmt.Sprintf("dataset_%d.arff", iteration))
	cfg.SetPath("input.trainingDatasetPath", confignode.String(dataset))
	logging.Loop("derived training dataset %s from model output directory", dataset)
}

var trailingDigits = regexp.MustCompile(`\d+`)

func repointModelPaths(cfg *confignode.Node, iteration int) {
	models, ok := cfg.GetPath("input.models")
	if !ok || !models.IsArray() {
		return
	}
	for _, m := range models.Elements() {
		if !m.IsObject() {
			continue
		}
		mp, ok := m.Get("modelPath")
		if !ok || !mp.IsString() {
			continue
		}
		rewritten := rewriteIterationComponent(mp.StringValue(), iteration)
		if rewritten != mp.StringValue() {
			m.Set("modelPath", confignode.String(rewritten))
			logging.Loop("re-pointed model path to %s", rewritten)
		}
	}
}

// rewriteIterationComponent replaces the digit run in the path component
// following models_variations with the iteration index, so
// a/models_variations/model_1.model becomes a/models_variations/model_3.model
// at iteration 3.
func rewriteIterationComponent(path string, iteration int) string {
	parts := strings.Split(path, string(filepath.Separator))
	for i, part := range parts {
		if part != modelsVariationsDir || i+1 >= len(parts) {
			continue
		}
		next := parts[i+1]
		if !trailingDigits.MatchString(next) {
			return path
		}
		replaced := false
		parts[i+1] = trailingDigits.ReplaceAllStringFunc(next, func(s string) string {
			if replaced {
				return s
			}
			replaced = true
			return strconv.Itoa(iteration)
		})
		return strings.Join(parts, string(filepath.Separator))
	}
	return path
}
