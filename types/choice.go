package types

import (
	"strings"

	"github.com/juju/errors"
)

/**
 * ChoiceRule is either a comparison (Variable + Operator + Value) or
 * one of the boolean combinators And / Or / Not.
 * Operator is the ASL field name, e.g. "StringEquals",
 * "NumericLessThanPath" or "IsPresent".
 * Next is only meaningful on top level rules.
 */
type ChoiceRule struct {
	Variable string `json:",omitempty"`
	Operator string `json:",omitempty"`
	Value    any    `json:",omitempty"`

	And []*ChoiceRule `json:",omitempty"`
	Or  []*ChoiceRule `json:",omitempty"`
	Not *ChoiceRule   `json:",omitempty"`

	Next string `json:",omitempty"`
}

type ComparisonKind string

const (
	CompareString    ComparisonKind = "String"
	CompareNumeric   ComparisonKind = "Numeric"
	CompareBoolean   ComparisonKind = "Boolean"
	CompareTimestamp ComparisonKind = "Timestamp"
)

type Comparator string

const (
	Equals            Comparator = "Equals"
	LessThan          Comparator = "LessThan"
	LessThanEquals    Comparator = "LessThanEquals"
	GreaterThan       Comparator = "GreaterThan"
	GreaterThanEquals Comparator = "GreaterThanEquals"
)

var (
	comparisonKinds = []ComparisonKind{CompareString, CompareNumeric, CompareBoolean, CompareTimestamp}
	comparators     = map[Comparator]bool{
		Equals: true, LessThan: true, LessThanEquals: true, GreaterThan: true, GreaterThanEquals: true,
	}
	// type tests and their kind, IsNull and IsPresent are handled apart
	typeTests = map[string]DataKind{
		"IsString":    KindString,
		"IsNumeric":   KindNumber,
		"IsBoolean":   KindBool,
		"IsTimestamp": KindTimestamp,
	}
)

const (
	TestIsPresent = "IsPresent"
	TestIsNull    = "IsNull"
)

// ChoiceOperator is the decoded form of a choice rule operator name.
type ChoiceOperator struct {
	// Test is set for IsPresent, IsNull and the Is<Type> operators
	Test string

	Kind       ComparisonKind
	Comparator Comparator
	// Path is set for the ...Path variants, Value is then a path
	Path bool
}

func ParseChoiceOperator(name string) (ChoiceOperator, error) {
	if name == TestIsPresent || name == TestIsNull {
		return ChoiceOperator{Test: name}, nil
	}
	if _, exists := typeTests[name]; exists {
		return ChoiceOperator{Test: name}, nil
	}

	op := ChoiceOperator{}
	rest := name
	if trimmed, ok := strings.CutSuffix(rest, "Path"); ok {
		op.Path = true
		rest = trimmed
	}
	for _, kind := range comparisonKinds {
		cmp, ok := strings.CutPrefix(rest, string(kind))
		if !ok {
			continue
		}
		if !comparators[Comparator(cmp)] {
			break
		}
		if kind == CompareBoolean && Comparator(cmp) != Equals {
			break
		}
		op.Kind = kind
		op.Comparator = Comparator(cmp)
		return op, nil
	}
	return ChoiceOperator{}, errors.NotSupportedf("choice operator %q", name)
}

// TypeTestKind returns the kind checked by an Is<Type> operator.
func TypeTestKind(test string) (DataKind, bool) {
	kind, exists := typeTests[test]
	return kind, exists
}
