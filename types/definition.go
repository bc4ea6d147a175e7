package types

import (
	"strings"
	"time"

	"github.com/juju/errors"
)

type StateType string

const (
	StatePass     StateType = "Pass"
	StateTask     StateType = "Task"
	StateChoice   StateType = "Choice"
	StateWait     StateType = "Wait"
	StateSucceed  StateType = "Succeed"
	StateFail     StateType = "Fail"
	StateParallel StateType = "Parallel"
	StateMap      StateType = "Map"
)

const (
	taskTokenSuffix = ".waitForTaskToken"
)

/**
 * StateMachine is a parsed definition. It is read-only once built and is
 * shared by every execution, including Parallel branches and Map iterations.
 */
type StateMachine struct {
	Name           string `json:",omitempty"`
	Comment        string `json:",omitempty"`
	StartAt        string
	Version        string `json:",omitempty"`
	TimeoutSeconds int    `json:",omitempty"`

	States map[string]StateDefinition
}

// StateDefinition is implemented by the eight state kinds of this package only.
type StateDefinition interface {
	Type() StateType
	Base() *StateBase

	isState()
}

type StateBase struct {
	Name       string `mapstructure:"-"`
	Comment    string `mapstructure:"Comment"`
	Next       string `mapstructure:"Next"`
	End        bool   `mapstructure:"End"`
	InputPath  string `mapstructure:"InputPath"`
	OutputPath string `mapstructure:"OutputPath"`

	// set when InputPath / OutputPath is an explicit null
	DiscardInput  bool `mapstructure:"-"`
	DiscardOutput bool `mapstructure:"-"`
}

func (b *StateBase) Base() *StateBase {
	return b
}

func (b *StateBase) isState() {}

// ResultFields is shared by the states producing a result.
type ResultFields struct {
	ResultPath string `mapstructure:"ResultPath"`
	// set when ResultPath is an explicit null, the input is passed through
	DiscardResult bool `mapstructure:"-"`
}

type PassState struct {
	StateBase    `mapstructure:",squash"`
	ResultFields `mapstructure:",squash"`

	Result     any `mapstructure:"Result"`
	Parameters any `mapstructure:"Parameters"`
}

func (s *PassState) Type() StateType { return StatePass }

type TaskState struct {
	StateBase    `mapstructure:",squash"`
	ResultFields `mapstructure:",squash"`

	Resource           string            `mapstructure:"Resource"`
	Parameters         any               `mapstructure:"Parameters"`
	TimeoutSeconds     int               `mapstructure:"TimeoutSeconds"`
	TimeoutSecondsPath string            `mapstructure:"TimeoutSecondsPath"`
	Retry              []RetryDefinition `mapstructure:"Retry"`
	Catch              []CatchDefinition `mapstructure:"Catch"`
}

func (s *TaskState) Type() StateType { return StateTask }

// WaitsForTaskToken reports whether the task completes through a task token.
func (s *TaskState) WaitsForTaskToken() bool {
	return strings.HasSuffix(s.Resource, taskTokenSuffix)
}

// BaseResource strips the callback suffix off the resource.
func (s *TaskState) BaseResource() string {
	return strings.TrimSuffix(s.Resource, taskTokenSuffix)
}

type ChoiceState struct {
	StateBase `mapstructure:",squash"`

	Choices []*ChoiceRule `mapstructure:"-"`
	Default string        `mapstructure:"Default"`
}

func (s *ChoiceState) Type() StateType { return StateChoice }

type WaitState struct {
	StateBase `mapstructure:",squash"`

	Seconds       *float64 `mapstructure:"Seconds"`
	SecondsPath   string   `mapstructure:"SecondsPath"`
	Timestamp     string   `mapstructure:"Timestamp"`
	TimestampPath string   `mapstructure:"TimestampPath"`
}

func (s *WaitState) Type() StateType { return StateWait }

type SucceedState struct {
	StateBase `mapstructure:",squash"`
}

func (s *SucceedState) Type() StateType { return StateSucceed }

type FailState struct {
	StateBase `mapstructure:",squash"`

	Error string `mapstructure:"Error"`
	Cause string `mapstructure:"Cause"`
}

func (s *FailState) Type() StateType { return StateFail }

type ParallelState struct {
	StateBase    `mapstructure:",squash"`
	ResultFields `mapstructure:",squash"`

	Branches []*StateMachine  `mapstructure:"-"`
	Retry    []RetryDefinition `mapstructure:"Retry"`
	Catch    []CatchDefinition `mapstructure:"Catch"`
}

func (s *ParallelState) Type() StateType { return StateParallel }

type MapState struct {
	StateBase    `mapstructure:",squash"`
	ResultFields `mapstructure:",squash"`

	Iterator       *StateMachine     `mapstructure:"-"`
	ItemsPath      string            `mapstructure:"ItemsPath"`
	MaxConcurrency int               `mapstructure:"MaxConcurrency"`
	Parameters     any               `mapstructure:"Parameters"`
	Retry          []RetryDefinition `mapstructure:"Retry"`
	Catch          []CatchDefinition `mapstructure:"Catch"`
}

func (s *MapState) Type() StateType { return StateMap }

type BackoffType string

const (
	BackoffExponential BackoffType = "EXPONENTIAL"
	BackoffLinear      BackoffType = "LINEAR"
)

type RetryDefinition struct {
	ErrorEquals     []string    `mapstructure:"ErrorEquals"`
	IntervalSeconds *float64    `mapstructure:"IntervalSeconds"`
	MaxAttempts     *int        `mapstructure:"MaxAttempts"`
	BackoffRate     *float64    `mapstructure:"BackoffRate"`
	Backoff         BackoffType `mapstructure:"BackoffType"`
}

func (r *RetryDefinition) Interval() time.Duration {
	if r.IntervalSeconds == nil {
		return time.Second
	}
	return time.Duration(*r.IntervalSeconds * float64(time.Second))
}

func (r *RetryDefinition) Attempts() int {
	if r.MaxAttempts == nil {
		return 3
	}
	return *r.MaxAttempts
}

func (r *RetryDefinition) Rate() float64 {
	if r.BackoffRate == nil {
		return 2.0
	}
	return *r.BackoffRate
}

type CatchDefinition struct {
	ErrorEquals []string `mapstructure:"ErrorEquals"`
	Next        string   `mapstructure:"Next"`
	ResultPath  string   `mapstructure:"ResultPath"`
}

/**
 * Validate checks the references inside the machine: StartAt, Next,
 * Default, choice and catch targets must name states of the same machine.
 * Branch and iterator machines are validated recursively.
 * Every violation is returned as a ConfigError.
 */
func (sm *StateMachine) Validate() error {
	if sm == nil {
		return NewConfigErrorf("state machine is nil")
	}
	if len(sm.States) == 0 {
		return NewConfigError(errors.NotValidf("state machine without states"))
	}
	if _, exists := sm.States[sm.StartAt]; !exists {
		return NewConfigError(errors.NotFoundf("StartAt state %q", sm.StartAt))
	}
	for name, state := range sm.States {
		if state == nil {
			return NewConfigError(errors.NotValidf("state %q is nil", name))
		}
		if err := sm.validateState(name, state); err != nil {
			return NewConfigError(errors.Annotatef(err, "state %q", name))
		}
	}
	return nil
}

func (sm *StateMachine) requireState(field, target string) error {
	if target == "" {
		return errors.NotValidf("empty %s", field)
	}
	if _, exists := sm.States[target]; !exists {
		return errors.NotFoundf("%s %q", field, target)
	}
	return nil
}

func (sm *StateMachine) validateTransition(base *StateBase) error {
	if base.End && base.Next != "" {
		return errors.NotValidf("both Next and End")
	}
	if base.End {
		return nil
	}
	return sm.requireState("Next", base.Next)
}

func (sm *StateMachine) validateCatch(catchers []CatchDefinition) error {
	for _, c := range catchers {
		if len(c.ErrorEquals) == 0 {
			return errors.NotValidf("catcher without ErrorEquals")
		}
		if err := sm.requireState("Catch Next", c.Next); err != nil {
			return err
		}
	}
	return nil
}

func validateRetry(retriers []RetryDefinition) error {
	for _, r := range retriers {
		if len(r.ErrorEquals) == 0 {
			return errors.NotValidf("retrier without ErrorEquals")
		}
		if r.Attempts() < 0 || r.Rate() < 1 || r.Interval() < 0 {
			return errors.NotValidf("retrier %v", r.ErrorEquals)
		}
		switch r.Backoff {
		case "", BackoffExponential, BackoffLinear:
		default:
			return errors.NotSupportedf("backoff %s", r.Backoff)
		}
	}
	return nil
}

func validateChoiceRule(rule *ChoiceRule) error {
	if rule == nil {
		return errors.NotValidf("empty choice rule")
	}
	switch {
	case len(rule.And) > 0:
		for _, child := range rule.And {
			if err := validateChoiceRule(child); err != nil {
				return err
			}
		}
	case len(rule.Or) > 0:
		for _, child := range rule.Or {
			if err := validateChoiceRule(child); err != nil {
				return err
			}
		}
	case rule.Not != nil:
		return validateChoiceRule(rule.Not)
	default:
		if rule.Variable == "" || rule.Operator == "" {
			return errors.NotValidf("choice rule without Variable or operator")
		}
		if _, err := ParseChoiceOperator(rule.Operator); err != nil {
			return err
		}
	}
	return nil
}

func (sm *StateMachine) validateState(name string, state StateDefinition) error {
	base := state.Base()

	switch s := state.(type) {
	case *PassState:
		return sm.validateTransition(base)

	case *TaskState:
		if s.Resource == "" {
			return errors.NotValidf("empty Resource")
		}
		if s.TimeoutSeconds < 0 {
			return errors.NotValidf("TimeoutSeconds %d", s.TimeoutSeconds)
		}
		if err := validateRetry(s.Retry); err != nil {
			return err
		}
		if err := sm.validateCatch(s.Catch); err != nil {
			return err
		}
		return sm.validateTransition(base)

	case *ChoiceState:
		if len(s.Choices) == 0 {
			return errors.NotValidf("Choice without Choices")
		}
		for _, rule := range s.Choices {
			if err := validateChoiceRule(rule); err != nil {
				return err
			}
			if err := sm.requireState("choice Next", rule.Next); err != nil {
				return err
			}
		}
		if s.Default != "" {
			return sm.requireState("Default", s.Default)
		}
		return nil

	case *WaitState:
		set := 0
		if s.Seconds != nil {
			set++
		}
		for _, f := range []string{s.SecondsPath, s.Timestamp, s.TimestampPath} {
			if f != "" {
				set++
			}
		}
		if set != 1 {
			return errors.NotValidf("Wait needs exactly one of Seconds, SecondsPath, Timestamp, TimestampPath")
		}
		if s.Timestamp != "" {
			if _, err := time.Parse(time.RFC3339, s.Timestamp); err != nil {
				return errors.Annotatef(err, "Timestamp")
			}
		}
		return sm.validateTransition(base)

	case *SucceedState, *FailState:
		return nil

	case *ParallelState:
		if len(s.Branches) == 0 {
			return errors.NotValidf("Parallel without Branches")
		}
		for i, branch := range s.Branches {
			if err := branch.Validate(); err != nil {
				return errors.Annotatef(err, "branch %d", i)
			}
		}
		if err := validateRetry(s.Retry); err != nil {
			return err
		}
		if err := sm.validateCatch(s.Catch); err != nil {
			return err
		}
		return sm.validateTransition(base)

	case *MapState:
		if err := s.Iterator.Validate(); err != nil {
			return errors.Annotatef(err, "Iterator")
		}
		if s.MaxConcurrency < 0 {
			return errors.NotValidf("MaxConcurrency %d", s.MaxConcurrency)
		}
		if err := validateRetry(s.Retry); err != nil {
			return err
		}
		if err := sm.validateCatch(s.Catch); err != nil {
			return err
		}
		return sm.validateTransition(base)
	}
	return errors.NotSupportedf("state %s of type %T", name, state)
}
