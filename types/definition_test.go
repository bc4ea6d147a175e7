package types

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func helloWorld() *StateMachine {
	return &StateMachine{
		StartAt: "Hello",
		States: map[string]StateDefinition{
			"Hello": &PassState{StateBase: StateBase{Next: "World"}},
			"World": &PassState{StateBase: StateBase{End: true}},
		},
	}
}

func TestStateMachine_Validate(t *testing.T) {
	assert.Nil(t, helloWorld().Validate())

	cases := map[string]func(sm *StateMachine){
		"missing StartAt": func(sm *StateMachine) { sm.StartAt = "Nowhere" },
		"dangling Next": func(sm *StateMachine) {
			sm.States["Hello"] = &PassState{StateBase: StateBase{Next: "Nowhere"}}
		},
		"no Next nor End": func(sm *StateMachine) {
			sm.States["World"] = &PassState{}
		},
		"both Next and End": func(sm *StateMachine) {
			sm.States["World"] = &PassState{StateBase: StateBase{Next: "Hello", End: true}}
		},
		"task without resource": func(sm *StateMachine) {
			sm.States["World"] = &TaskState{StateBase: StateBase{End: true}}
		},
		"catch to unknown state": func(sm *StateMachine) {
			sm.States["World"] = &TaskState{
				StateBase: StateBase{End: true},
				Resource:  "r",
				Catch:     []CatchDefinition{{ErrorEquals: []string{ErrorAll}, Next: "Nowhere"}},
			}
		},
		"retry without errors": func(sm *StateMachine) {
			sm.States["World"] = &TaskState{
				StateBase: StateBase{End: true},
				Resource:  "r",
				Retry:     []RetryDefinition{{}},
			}
		},
		"wait with two durations": func(sm *StateMachine) {
			seconds := 1.0
			sm.States["World"] = &WaitState{StateBase: StateBase{End: true}, Seconds: &seconds, SecondsPath: "$.s"}
		},
		"choice with unknown operator": func(sm *StateMachine) {
			sm.States["World"] = &ChoiceState{Choices: []*ChoiceRule{
				{Variable: "$.a", Operator: "StringMatchesRegex", Value: "x", Next: "Hello"},
			}}
		},
		"choice to unknown state": func(sm *StateMachine) {
			sm.States["World"] = &ChoiceState{Choices: []*ChoiceRule{
				{Variable: "$.a", Operator: "StringEquals", Value: "x", Next: "Nowhere"},
			}}
		},
		"invalid branch": func(sm *StateMachine) {
			sm.States["World"] = &ParallelState{
				StateBase: StateBase{End: true},
				Branches:  []*StateMachine{{StartAt: "Nowhere", States: map[string]StateDefinition{"A": &SucceedState{}}}},
			}
		},
		"map without iterator": func(sm *StateMachine) {
			sm.States["World"] = &MapState{StateBase: StateBase{End: true}}
		},
	}
	for name, modify := range cases {
		sm := helloWorld()
		modify(sm)
		err := sm.Validate()
		assert.NotNil(t, err, name)
		assert.True(t, IsConfigError(err), name)
	}

	var nilMachine *StateMachine
	assert.True(t, IsConfigError(nilMachine.Validate()))
}

func TestRetryDefinition_Defaults(t *testing.T) {
	r := RetryDefinition{ErrorEquals: []string{ErrorAll}}
	assert.Equal(t, 3, r.Attempts())
	assert.Equal(t, 2.0, r.Rate())
	assert.Equal(t, int64(1e9), int64(r.Interval()))

	interval, attempts, rate := 0.5, 0, 1.5
	r = RetryDefinition{IntervalSeconds: &interval, MaxAttempts: &attempts, BackoffRate: &rate}
	assert.Equal(t, 0, r.Attempts())
	assert.Equal(t, 1.5, r.Rate())
	assert.Equal(t, int64(5e8), int64(r.Interval()))
}

func TestTaskState_TaskToken(t *testing.T) {
	task := &TaskState{Resource: "arn:aws:states:::sqs:sendMessage.waitForTaskToken"}
	assert.True(t, task.WaitsForTaskToken())
	assert.Equal(t, "arn:aws:states:::sqs:sendMessage", task.BaseResource())

	task = &TaskState{Resource: "Charge"}
	assert.False(t, task.WaitsForTaskToken())
	assert.Equal(t, "Charge", task.BaseResource())
}

func TestParseChoiceOperator(t *testing.T) {
	op, err := ParseChoiceOperator("NumericGreaterThanEqualsPath")
	assert.Nil(t, err)
	assert.Equal(t, ChoiceOperator{Kind: CompareNumeric, Comparator: GreaterThanEquals, Path: true}, op)

	op, err = ParseChoiceOperator("TimestampLessThan")
	assert.Nil(t, err)
	assert.Equal(t, ChoiceOperator{Kind: CompareTimestamp, Comparator: LessThan}, op)

	op, err = ParseChoiceOperator("IsPresent")
	assert.Nil(t, err)
	assert.Equal(t, TestIsPresent, op.Test)

	op, err = ParseChoiceOperator("IsTimestamp")
	assert.Nil(t, err)
	kind, ok := TypeTestKind(op.Test)
	assert.True(t, ok)
	assert.Equal(t, KindTimestamp, kind)

	for _, name := range []string{"BooleanLessThan", "StringMatches", "NumericEqual", "Path", ""} {
		_, err := ParseChoiceOperator(name)
		assert.True(t, errors.IsNotSupported(err), name)
	}
}

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	echo := func(ctx Context, input Data) (Data, error) { return input, nil }

	assert.Nil(t, registry.Register("Echo", echo))
	assert.True(t, errors.IsAlreadyExists(registry.Register("Echo", echo)))
	assert.True(t, errors.IsBadRequest(registry.Register("Nil", nil)))

	handler, err := registry.Resolve(&TaskState{Resource: "Echo"})
	assert.Nil(t, err)
	assert.NotNil(t, handler)

	handler, err = registry.Resolve(&TaskState{Resource: "Echo.waitForTaskToken"})
	assert.Nil(t, err)
	assert.NotNil(t, handler)

	_, err = registry.Resolve(&TaskState{Resource: "Missing"})
	assert.True(t, errors.IsNotFound(err))
}
