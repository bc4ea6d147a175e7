package runtime

import (
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/types"
)

// condition is a compiled choice rule, evaluated against the effective input.
type condition interface {
	evaluate(input types.Data) (bool, error)
}

type comparison struct {
	variable string
	op       types.ChoiceOperator
	// literal operand, unused when operandPath is set
	operand     types.Data
	operandPath string
}

type presenceTest struct {
	variable string
	expect   bool
}

type nullTest struct {
	variable string
	expect   bool
}

type kindTest struct {
	variable string
	kind     types.DataKind
	expect   bool
}

type notCondition struct {
	inner condition
}

type andCondition []condition

type orCondition []condition

func compileCondition(rule *types.ChoiceRule) (condition, error) {
	switch {
	case len(rule.And) > 0:
		inner, err := compileConditions(rule.And)
		return andCondition(inner), err
	case len(rule.Or) > 0:
		inner, err := compileConditions(rule.Or)
		return orCondition(inner), err
	case rule.Not != nil:
		inner, err := compileCondition(rule.Not)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &notCondition{inner: inner}, nil
	}

	if err := types.ValidatePath(rule.Variable); err != nil {
		return nil, errors.Annotatef(err, "Variable")
	}
	op, err := types.ParseChoiceOperator(rule.Operator)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if op.Test != "" {
		expect, ok := rule.Value.(bool)
		if !ok {
			return nil, errors.NotValidf("%s needs a boolean, got %v", rule.Operator, rule.Value)
		}
		switch op.Test {
		case types.TestIsPresent:
			return &presenceTest{variable: rule.Variable, expect: expect}, nil
		case types.TestIsNull:
			return &nullTest{variable: rule.Variable, expect: expect}, nil
		}
		kind, _ := types.TypeTestKind(op.Test)
		return &kindTest{variable: rule.Variable, kind: kind, expect: expect}, nil
	}

	c := &comparison{variable: rule.Variable, op: op}
	if op.Path {
		path, ok := rule.Value.(string)
		if !ok {
			return nil, errors.NotValidf("%s needs a path, got %v", rule.Operator, rule.Value)
		}
		if err := types.ValidatePath(path); err != nil {
			return nil, errors.Annotatef(err, rule.Operator)
		}
		c.operandPath = path
		return c, nil
	}

	c.operand = types.NewData(rule.Value)
	if !kindMatches(op.Kind, c.operand) {
		return nil, errors.NotValidf("%s operand %s", rule.Operator, c.operand)
	}
	return c, nil
}

func compileConditions(rules []*types.ChoiceRule) ([]condition, error) {
	out := make([]condition, 0, len(rules))
	for _, rule := range rules {
		c, err := compileCondition(rule)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, nil
}

func lookupVariable(input types.Data, path string) (types.Data, error) {
	value, exists := input.Lookup(path)
	if !exists {
		return types.Data{}, types.NewStateErrorf(types.ErrorRuntime, "invalid path %s: not found in input", path)
	}
	return value, nil
}

func (c *comparison) evaluate(input types.Data) (bool, error) {
	value, err := lookupVariable(input, c.variable)
	if err != nil {
		return false, err
	}
	operand := c.operand
	if c.operandPath != "" {
		if operand, err = lookupVariable(input, c.operandPath); err != nil {
			return false, err
		}
	}
	// a type mismatch never matches
	if !kindMatches(c.op.Kind, value) || !kindMatches(c.op.Kind, operand) {
		return false, nil
	}

	var order int
	switch c.op.Kind {
	case types.CompareString:
		a, _ := types.Cast[string](value)
		b, _ := types.Cast[string](operand)
		order = strings.Compare(a, b)
	case types.CompareNumeric:
		a, _ := types.Cast[float64](value)
		b, _ := types.Cast[float64](operand)
		order = compareFloat(a, b)
	case types.CompareBoolean:
		a, _ := types.Cast[bool](value)
		b, _ := types.Cast[bool](operand)
		if a == b {
			return c.op.Comparator == types.Equals, nil
		}
		return false, nil
	case types.CompareTimestamp:
		a, _ := toTimestamp(value)
		b, _ := toTimestamp(operand)
		order = a.Compare(b)
	}
	return applyComparator(c.op.Comparator, order), nil
}

func (p *presenceTest) evaluate(input types.Data) (bool, error) {
	_, exists := input.Lookup(p.variable)
	return exists == p.expect, nil
}

func (n *nullTest) evaluate(input types.Data) (bool, error) {
	value, err := lookupVariable(input, n.variable)
	if err != nil {
		return false, err
	}
	return (value.Kind() == types.KindNull) == n.expect, nil
}

func (k *kindTest) evaluate(input types.Data) (bool, error) {
	value, err := lookupVariable(input, k.variable)
	if err != nil {
		return false, err
	}
	return kindMatches(kindOf(k.kind), value) == k.expect, nil
}

func (n *notCondition) evaluate(input types.Data) (bool, error) {
	ok, err := n.inner.evaluate(input)
	return !ok, err
}

func (a andCondition) evaluate(input types.Data) (bool, error) {
	for _, c := range a {
		ok, err := c.evaluate(input)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (o orCondition) evaluate(input types.Data) (bool, error) {
	for _, c := range o {
		ok, err := c.evaluate(input)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func kindOf(kind types.DataKind) types.ComparisonKind {
	switch kind {
	case types.KindString:
		return types.CompareString
	case types.KindNumber:
		return types.CompareNumeric
	case types.KindBool:
		return types.CompareBoolean
	}
	return types.CompareTimestamp
}

func kindMatches(kind types.ComparisonKind, d types.Data) bool {
	switch kind {
	case types.CompareString:
		return d.Kind() == types.KindString
	case types.CompareNumeric:
		return d.Kind() == types.KindNumber
	case types.CompareBoolean:
		return d.Kind() == types.KindBool
	case types.CompareTimestamp:
		_, ok := toTimestamp(d)
		return ok
	}
	return false
}

// toTimestamp accepts time values and RFC3339 strings.
func toTimestamp(d types.Data) (time.Time, bool) {
	switch d.Kind() {
	case types.KindTimestamp:
		t, err := types.Cast[time.Time](d)
		return t, err == nil
	case types.KindString:
		s, _ := types.Cast[string](d)
		t, err := time.Parse(time.RFC3339, s)
		return t, err == nil
	}
	return time.Time{}, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func applyComparator(cmp types.Comparator, order int) bool {
	switch cmp {
	case types.Equals:
		return order == 0
	case types.LessThan:
		return order < 0
	case types.LessThanEquals:
		return order <= 0
	case types.GreaterThan:
		return order > 0
	case types.GreaterThanEquals:
		return order >= 0
	}
	return false
}
