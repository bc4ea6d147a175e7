package types

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// Error names used by the States runtime.
const (
	ErrorAll             = "States.ALL"
	ErrorTimeout         = "States.Timeout"
	ErrorTaskFailed      = "States.TaskFailed"
	ErrorRuntime         = "States.Runtime"
	ErrorBranchFailed    = "States.BranchFailed"
	ErrorNoChoiceMatched = "States.NoChoiceMatched"
)

var (
	_ error = &StateError{}
	_ error = &ConfigError{}
	_ error = &AggregateError{}
)

func NewStateError(name string, otherErr error) error {
	return &StateError{baseError: newBaseErr(otherErr), Name: name}
}

func NewStateErrorf(name string, format string, args ...interface{}) error {
	return NewStateError(name, errors.Errorf(format, args...))
}

// NewConfigError marks an error as a definition or wiring problem.
// Config errors are never retried nor caught.
func NewConfigError(otherErr error) error {
	return &ConfigError{baseError: newBaseErr(otherErr)}
}

func NewConfigErrorf(format string, args ...interface{}) error {
	return NewConfigError(errors.Errorf(format, args...))
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	if e.BaseErr == nil {
		return ""
	}
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

func (e *baseError) Unwrap() error {
	return e.BaseErr
}

// StateError is an error carrying a States error name, e.g. "States.Timeout"
// or a user defined name such as "OrderRejected".
type StateError struct {
	*baseError
	Name string
}

func (e *StateError) Error() string {
	if msg := e.baseError.Error(); msg != "" {
		return msg
	}
	return e.Name
}

func (e *StateError) ErrorName() string {
	return e.Name
}

type ConfigError struct {
	*baseError
}

func (e *ConfigError) ErrorName() string {
	return ErrorRuntime
}

// AggregateError collects the failures of Parallel branches or Map iterations.
type AggregateError struct {
	Errors []error
}

func NewAggregateError(errs []error) error {
	return &AggregateError{Errors: errs}
}

func (e *AggregateError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", ErrorName(err), ErrorCause(err)))
	}
	return fmt.Sprintf("%d branch(es) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *AggregateError) ErrorName() string {
	return ErrorBranchFailed
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

type namedError interface {
	ErrorName() string
}

/**
 * ErrorName returns the States error name of err.
 * Errors without a name are reported as States.TaskFailed,
 * expired deadlines as States.Timeout.
 */
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	var named namedError
	if errors.As(err, &named) {
		return named.ErrorName()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorTaskFailed
}

// ErrorCause returns the human readable cause of err.
func ErrorCause(err error) string {
	if err == nil {
		return ""
	}
	// checked first, errors.As would otherwise descend into the branches
	var ae *AggregateError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.baseError.Error()
	}
	return err.Error()
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsTimeoutError(err error) bool {
	return ErrorName(err) == ErrorTimeout
}
