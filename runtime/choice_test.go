package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/types"
)

func evaluateRule(t *testing.T, rule *types.ChoiceRule, input types.Data) (bool, error) {
	c, err := compileCondition(rule)
	assert.Nil(t, err)
	return c.evaluate(input)
}

func TestChoice_Comparisons(t *testing.T) {
	input := types.NewData(map[string]any{
		"name":   "ann",
		"count":  3,
		"limit":  5.5,
		"flag":   true,
		"when":   "2024-05-01T10:00:00Z",
		"later":  "2024-06-01T10:00:00Z",
		"nested": map[string]any{"value": "x"},
	})

	cases := []struct {
		variable string
		operator string
		value    any
		expect   bool
	}{
		{"$.name", "StringEquals", "ann", true},
		{"$.name", "StringLessThan", "bob", true},
		{"$.name", "StringGreaterThanEquals", "ann", true},
		{"$.count", "NumericEquals", 3, true},
		{"$.count", "NumericEquals", 3.0, true},
		{"$.count", "NumericLessThan", 3, false},
		{"$.count", "NumericLessThanEquals", 3, true},
		{"$.count", "NumericGreaterThan", 2.5, true},
		{"$.flag", "BooleanEquals", true, true},
		{"$.flag", "BooleanEquals", false, false},
		{"$.when", "TimestampLessThan", "2024-05-02T00:00:00Z", true},
		{"$.when", "TimestampEquals", "2024-05-01T12:00:00+02:00", true},
		{"$.nested.value", "StringEquals", "x", true},
		{"$.count", "NumericLessThanPath", "$.limit", true},
		{"$.when", "TimestampLessThanPath", "$.later", true},
		{"$.name", "StringEqualsPath", "$.nested.value", false},
		// a type mismatch never matches
		{"$.count", "StringEquals", "3", false},
		{"$.name", "NumericEquals", 3, false},
		{"$.flag", "StringEquals", "true", false},
		{"$.name", "TimestampEquals", "2024-05-01T10:00:00Z", false},
		{"$.count", "NumericEqualsPath", "$.name", false},
	}
	for _, c := range cases {
		ok, err := evaluateRule(t, &types.ChoiceRule{Variable: c.variable, Operator: c.operator, Value: c.value}, input)
		assert.Nil(t, err, "%s %s %v", c.variable, c.operator, c.value)
		assert.Equal(t, c.expect, ok, "%s %s %v", c.variable, c.operator, c.value)
	}
}

func TestChoice_Tests(t *testing.T) {
	input := types.NewData(map[string]any{"present": 1, "empty": nil, "s": "x", "when": "2024-05-01T10:00:00Z"})

	cases := []struct {
		variable string
		operator string
		value    bool
		expect   bool
	}{
		{"$.present", "IsPresent", true, true},
		{"$.missing", "IsPresent", true, false},
		{"$.missing", "IsPresent", false, true},
		{"$.empty", "IsPresent", true, true},
		{"$.empty", "IsNull", true, true},
		{"$.present", "IsNull", false, true},
		{"$.present", "IsNumeric", true, true},
		{"$.s", "IsString", true, true},
		{"$.s", "IsBoolean", false, true},
		{"$.when", "IsTimestamp", true, true},
		{"$.s", "IsTimestamp", true, false},
	}
	for _, c := range cases {
		ok, err := evaluateRule(t, &types.ChoiceRule{Variable: c.variable, Operator: c.operator, Value: c.value}, input)
		assert.Nil(t, err, "%s %s", c.variable, c.operator)
		assert.Equal(t, c.expect, ok, "%s %s %v", c.variable, c.operator, c.value)
	}
}

func TestChoice_Combinators(t *testing.T) {
	input := types.NewData(map[string]any{"a": 1, "b": "x"})
	aIsOne := &types.ChoiceRule{Variable: "$.a", Operator: "NumericEquals", Value: 1}
	bIsY := &types.ChoiceRule{Variable: "$.b", Operator: "StringEquals", Value: "y"}

	ok, err := evaluateRule(t, &types.ChoiceRule{And: []*types.ChoiceRule{aIsOne, bIsY}}, input)
	assert.Nil(t, err)
	assert.False(t, ok)

	ok, err = evaluateRule(t, &types.ChoiceRule{Or: []*types.ChoiceRule{bIsY, aIsOne}}, input)
	assert.Nil(t, err)
	assert.True(t, ok)

	ok, err = evaluateRule(t, &types.ChoiceRule{Not: bIsY}, input)
	assert.Nil(t, err)
	assert.True(t, ok)

	ok, err = evaluateRule(t, &types.ChoiceRule{And: []*types.ChoiceRule{
		aIsOne,
		{Not: &types.ChoiceRule{Or: []*types.ChoiceRule{bIsY}}},
	}}, input)
	assert.Nil(t, err)
	assert.True(t, ok)
}

func TestChoice_MissingVariable(t *testing.T) {
	_, err := evaluateRule(t, &types.ChoiceRule{Variable: "$.missing", Operator: "StringEquals", Value: "x"}, types.NewData(map[string]any{}))
	assert.Equal(t, types.ErrorRuntime, types.ErrorName(err))
}

func TestChoice_CompileErrors(t *testing.T) {
	rules := []*types.ChoiceRule{
		{Variable: "$.a", Operator: "NumericEquals", Value: "three"},
		{Variable: "$.a", Operator: "StringEqualsPath", Value: 3},
		{Variable: "$.a", Operator: "IsPresent", Value: "yes"},
		{Variable: "a", Operator: "StringEquals", Value: "x"},
		{Variable: "$.a", Operator: "StringMatches", Value: "x*"},
	}
	for _, rule := range rules {
		_, err := compileCondition(rule)
		assert.NotNil(t, err, rule.Operator)
	}
}
