// Package parser builds state machine definitions from ASL documents.
package parser

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/warriorguo/asl/types"
)

// keys decoded by hand, mapstructure can not fill interface typed fields
var manualKeys = map[string]bool{
	"Type":          true,
	"Choices":       true,
	"Branches":      true,
	"Iterator":      true,
	"ItemProcessor": true,
}

// Parse decodes an ASL JSON document.
func Parse(b []byte) (*types.StateMachine, error) {
	raw := make(map[string]any)
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, types.NewConfigError(errors.Annotatef(err, "decode JSON definition"))
	}
	return decodeDocument(raw)
}

// ParseYAML decodes the YAML form of an ASL document.
func ParseYAML(b []byte) (*types.StateMachine, error) {
	raw := make(map[string]any)
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, types.NewConfigError(errors.Annotatef(err, "decode YAML definition"))
	}
	normalized, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, types.NewConfigErrorf("YAML definition is not a mapping")
	}
	return decodeDocument(normalized)
}

func decodeDocument(raw map[string]any) (*types.StateMachine, error) {
	sm, err := decodeMachine(raw)
	if err != nil {
		return nil, types.NewConfigError(err)
	}
	return sm, nil
}

func decodeMachine(raw map[string]any) (*types.StateMachine, error) {
	sm := &types.StateMachine{States: make(map[string]types.StateDefinition)}

	var header struct {
		Comment        string `mapstructure:"Comment"`
		StartAt        string `mapstructure:"StartAt"`
		Version        string `mapstructure:"Version"`
		TimeoutSeconds int    `mapstructure:"TimeoutSeconds"`
	}
	if err := mapstructure.Decode(raw, &header); err != nil {
		return nil, errors.Annotatef(err, "decode state machine")
	}
	sm.Comment = header.Comment
	sm.StartAt = header.StartAt
	sm.Version = header.Version
	sm.TimeoutSeconds = header.TimeoutSeconds

	states, ok := raw["States"].(map[string]any)
	if !ok {
		return nil, errors.NotValidf("States must be an object")
	}
	for name, rawState := range states {
		fields, ok := rawState.(map[string]any)
		if !ok {
			return nil, errors.NotValidf("state %q must be an object", name)
		}
		state, err := decodeState(name, fields)
		if err != nil {
			return nil, errors.Annotatef(err, "state %q", name)
		}
		sm.States[name] = state
	}
	return sm, nil
}

func newState(stateType types.StateType) (types.StateDefinition, error) {
	switch stateType {
	case types.StatePass:
		return &types.PassState{}, nil
	case types.StateTask:
		return &types.TaskState{}, nil
	case types.StateChoice:
		return &types.ChoiceState{}, nil
	case types.StateWait:
		return &types.WaitState{}, nil
	case types.StateSucceed:
		return &types.SucceedState{}, nil
	case types.StateFail:
		return &types.FailState{}, nil
	case types.StateParallel:
		return &types.ParallelState{}, nil
	case types.StateMap:
		return &types.MapState{}, nil
	}
	return nil, errors.NotSupportedf("state type %q", stateType)
}

func decodeState(name string, raw map[string]any) (types.StateDefinition, error) {
	stateType, _ := raw["Type"].(string)
	state, err := newState(types.StateType(stateType))
	if err != nil {
		return nil, errors.Trace(err)
	}

	metadata := &mapstructure.Metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: metadata,
		Result:   state,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Annotatef(err, "decode %s state", stateType)
	}
	warnUnused(name, metadata.Unused)

	base := state.Base()
	base.Name = name
	base.DiscardInput = isExplicitNull(raw, "InputPath")
	base.DiscardOutput = isExplicitNull(raw, "OutputPath")

	switch s := state.(type) {
	case *types.PassState:
		s.DiscardResult = isExplicitNull(raw, "ResultPath")
	case *types.TaskState:
		s.DiscardResult = isExplicitNull(raw, "ResultPath")
	case *types.ChoiceState:
		if s.Choices, err = decodeChoiceRules(raw["Choices"]); err != nil {
			return nil, errors.Annotatef(err, "Choices")
		}
	case *types.ParallelState:
		s.DiscardResult = isExplicitNull(raw, "ResultPath")
		if s.Branches, err = decodeBranches(raw["Branches"]); err != nil {
			return nil, errors.Annotatef(err, "Branches")
		}
	case *types.MapState:
		s.DiscardResult = isExplicitNull(raw, "ResultPath")
		iterator, exists := raw["Iterator"]
		if !exists {
			iterator = raw["ItemProcessor"]
		}
		fields, ok := iterator.(map[string]any)
		if !ok {
			return nil, errors.NotValidf("Iterator must be an object")
		}
		if s.Iterator, err = decodeMachine(fields); err != nil {
			return nil, errors.Annotatef(err, "Iterator")
		}
	}
	return state, nil
}

func decodeBranches(raw any) ([]*types.StateMachine, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.NotValidf("Branches must be an array")
	}
	branches := make([]*types.StateMachine, 0, len(list))
	for i, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NotValidf("branch %d must be an object", i)
		}
		branch, err := decodeMachine(fields)
		if err != nil {
			return nil, errors.Annotatef(err, "branch %d", i)
		}
		branches = append(branches, branch)
	}
	return branches, nil
}

func decodeChoiceRules(raw any) ([]*types.ChoiceRule, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.NotValidf("choice rules must be an array")
	}
	rules := make([]*types.ChoiceRule, 0, len(list))
	for i, item := range list {
		rule, err := decodeChoiceRule(item)
		if err != nil {
			return nil, errors.Annotatef(err, "rule %d", i)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeChoiceRule(raw any) (*types.ChoiceRule, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.NotValidf("choice rule must be an object")
	}

	rule := &types.ChoiceRule{}
	var err error
	for key, value := range fields {
		switch key {
		case "Variable":
			rule.Variable, _ = value.(string)
		case "Next":
			rule.Next, _ = value.(string)
		case "Comment":
		case "And":
			if rule.And, err = decodeChoiceRules(value); err != nil {
				return nil, errors.Annotatef(err, "And")
			}
		case "Or":
			if rule.Or, err = decodeChoiceRules(value); err != nil {
				return nil, errors.Annotatef(err, "Or")
			}
		case "Not":
			if rule.Not, err = decodeChoiceRule(value); err != nil {
				return nil, errors.Annotatef(err, "Not")
			}
		default:
			if _, err := types.ParseChoiceOperator(key); err != nil {
				return nil, errors.Trace(err)
			}
			if rule.Operator != "" {
				return nil, errors.NotValidf("choice rule with both %s and %s", rule.Operator, key)
			}
			rule.Operator = key
			rule.Value = value
		}
	}
	return rule, nil
}

func isExplicitNull(raw map[string]any, key string) bool {
	value, exists := raw[key]
	return exists && value == nil
}

func warnUnused(state string, unused []string) {
	ignored := make([]string, 0, len(unused))
	for _, key := range unused {
		if !manualKeys[key] {
			ignored = append(ignored, key)
		}
	}
	if len(ignored) == 0 {
		return
	}
	sort.Strings(ignored)
	log.Warnf("state %s: ignoring unsupported fields %v", state, ignored)
}

// normalizeYAML turns decoded timestamps back into RFC3339 strings.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for key, value := range t {
			t[key] = normalizeYAML(value)
		}
		return t
	case []any:
		for i, value := range t {
			t[i] = normalizeYAML(value)
		}
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}
