package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"idsbench/internal/actions"
	"idsbench/internal/confignode"
	"idsbench/internal/logging"
)

var fieldRefPattern = regexp.MustCompile(`^\$\{([A-Za-z0-9_]+)\}$`)

// Load reads, validates, and resolves a workflow description. For
// non-pipeline workflows the referenced action-config document is parsed
// eagerly so config errors surface before any action runs.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &actions.ConfigError{Path: path, Err: err}
	}

	root, err := confignode.ParseFile(path, data)
	if err != nil {
		return nil, &actions.WorkflowError{Msg: "malformed workflow description", Err: err}
	}
	if !root.IsObject() {
		return nil, &actions.WorkflowError{Msg: "workflow description must be an object"}
	}

	// The action field decides between "unknown action" and "config error"
	// exit codes, so its absence is checked before the structural pass.
	action, ok := root.Get("action")
	if !ok || action.StringValue() == "" {
		return nil, &actions.WorkflowError{Msg: "action is required", Err: actions.ErrMissingAction}
	}

	if err := validateSchema(root.Interface()); err != nil {
		return nil, &actions.WorkflowError{Msg: "workflow description rejected by schema", Err: err}
	}

	raw, err := root.MarshalJSON()
	if err != nil {
		return nil, &actions.WorkflowError{Msg: "re-encode workflow description", Err: err}
	}
	var desc Description
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, &actions.WorkflowError{Msg: "decode workflow description", Err: err}
	}
	desc.Path = path
	desc.root = root

	if err := desc.validate(); err != nil {
		return nil, err
	}

	if !desc.IsPipeline() {
		cfgPath := desc.ResolvePath(desc.ActionConfigFile)
		cfgData, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, &actions.ConfigError{Path: cfgPath, Err: err}
		}
		desc.BaseConfig, err = confignode.ParseFile(cfgPath, cfgData)
		if err != nil {
			return nil, &actions.ConfigError{Path: cfgPath, Err: err}
		}
	}

	logging.Workflow("loaded workflow %s (action=%s, pipeline=%d steps, loop=%v)",
		path, desc.Action, len(desc.Pipeline), desc.Loop != nil)
	return &desc, nil
}

// ResolvePath resolves a config path relative to the workflow description's
// directory. Absolute paths pass through unchanged.
func (d *Description) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || d.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(d.Path), p)
}

func (d *Description) validate() error {
	if d.IsPipeline() {
		if len(d.Pipeline) == 0 && d.Loop == nil {
			return &actions.WorkflowError{Msg: "pipeline workflow needs pipeline steps or a loop"}
		}
	} else {
		if d.ActionConfigFile == "" {
			return &actions.WorkflowError{Msg: fmt.Sprintf("action %q requires actionConfigFile", d.Action)}
		}
		// Loops and pipeline steps only run under the pipeline action; a
		// single-action workflow carrying them would silently ignore them.
		if d.Loop != nil || len(d.Pipeline) > 0 {
			return &actions.WorkflowError{Msg: fmt.Sprintf("action %q cannot carry loop or pipeline sections", d.Action)}
		}
	}

	for i := range d.Pipeline {
		if err := d.validateStep(&d.Pipeline[i], true); err != nil {
			return err
		}
	}
	if d.Loop != nil {
		if err := d.resolveLoop(d.Loop); err != nil {
			return err
		}
	}
	return nil
}

func (d *Description) validateStep(s *Step, allowNestedLoop bool) error {
	if s.ActionConfigFile != "" && s.Inline != nil {
		return &actions.WorkflowError{
			Msg: fmt.Sprintf("step %q: actionConfigFile and inline are mutually exclusive", s.Action),
		}
	}
	if s.Loop != nil {
		if !allowNestedLoop {
			return &actions.WorkflowError{
				Msg: fmt.Sprintf("step %q: loops may not nest inside loop steps", s.Action),
			}
		}
		return d.resolveLoop(s.Loop)
	}
	if s.ActionConfigFile == "" && s.Inline == nil {
		return &actions.WorkflowError{
			Msg: fmt.Sprintf("step %q needs actionConfigFile or inline", s.Action),
		}
	}
	return nil
}

// resolveLoop validates a loop specification and resolves a single
// "${fieldName}" values reference against the enclosing workflow document.
func (d *Description) resolveLoop(loop *LoopSpec) error {
	switch loop.VariationType {
	case VariationRandomSeed, VariationAttackSegments, VariationParameters,
		VariationSingleAttacks, VariationDualAttackCombinations:
	default:
		return &actions.WorkflowError{Msg: fmt.Sprintf("unknown variationType %q", loop.VariationType)}
	}
	if len(loop.Values) == 0 {
		return &actions.WorkflowError{Msg: "loop values must not be empty"}
	}
	if len(loop.Steps) == 0 {
		return &actions.WorkflowError{Msg: "loop steps must not be empty"}
	}

	refCount := 0
	for _, v := range loop.Values {
		if v.IsString() && fieldRefPattern.MatchString(v.StringValue()) {
			refCount++
		}
	}
	switch {
	case refCount == 1 && len(loop.Values) == 1:
		field := fieldRefPattern.FindStringSubmatch(loop.Values[0].StringValue())[1]
		resolved, ok := d.root.Get(field)
		if !ok {
			return &actions.WorkflowError{Msg: fmt.Sprintf("loop values reference unknown field %q", field)}
		}
		if !resolved.IsArray() {
			return &actions.WorkflowError{Msg: fmt.Sprintf("loop values field %q must be an array", field)}
		}
		loop.Values = append([]*confignode.Node(nil), resolved.Elements()...)
		if len(loop.Values) == 0 {
			return &actions.WorkflowError{Msg: fmt.Sprintf("loop values field %q resolves to an empty array", field)}
		}
	case refCount > 0:
		// Mixing field references with literal values is undefined in the
		// campaign format; reject it up front.
		return &actions.WorkflowError{Msg: "loop values mix field references with literals"}
	}

	if loop.VariationType == VariationDualAttackCombinations {
		for i, v := range loop.Values {
			if !v.IsArray() || v.Len() != 2 || !v.Index(0).IsString() || !v.Index(1).IsString() {
				return &actions.WorkflowError{
					Msg: fmt.Sprintf("dualAttackCombinations value %d must be a pair of attack names", i+1),
				}
			}
		}
		for _, p := range loop.DatasetPatterns {
			if p.PatternName == "" || len(p.Segments) == 0 {
				return &actions.WorkflowError{Msg: "datasetPatterns entries need patternName and segments"}
			}
		}
	}

	for i := range loop.Steps {
		if err := d.validateStep(&loop.Steps[i], false); err != nil {
			return err
		}
	}
	return nil
}
