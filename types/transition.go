package types

// Transition is the outcome of executing one state.
// The four variants below are the only implementations.
type Transition interface {
	isTransition()
}

// NextTransition continues the execution at Target.
type NextTransition struct {
	Target string
	Output Data
}

// SucceedTransition ends the execution successfully.
type SucceedTransition struct {
	Output Data
}

// FailTransition ends the execution with Err.
type FailTransition struct {
	Err error
}

/**
 * WaitForTokenTransition suspends the execution until Token is completed
 * through the token sink. Target is empty when the task was terminal.
 */
type WaitForTokenTransition struct {
	Token  string
	Target string
	Output Data
}

func (NextTransition) isTransition()         {}
func (SucceedTransition) isTransition()      {}
func (FailTransition) isTransition()         {}
func (WaitForTokenTransition) isTransition() {}

func NewFailTransition(err error) FailTransition {
	return FailTransition{Err: err}
}

func (t FailTransition) ErrorName() string {
	return ErrorName(t.Err)
}

func (t FailTransition) Cause() string {
	return ErrorCause(t.Err)
}
