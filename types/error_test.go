package types

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorName(t *testing.T) {
	assert.Equal(t, "", ErrorName(nil))
	assert.Equal(t, ErrorTaskFailed, ErrorName(errors.New("boom")))
	assert.Equal(t, "OrderRejected", ErrorName(NewStateErrorf("OrderRejected", "total %d", 3)))
	assert.Equal(t, ErrorRuntime, ErrorName(NewConfigErrorf("bad definition")))
	assert.Equal(t, ErrorTimeout, ErrorName(errors.Trace(context.DeadlineExceeded)))

	// names survive tracing and annotation
	traced := errors.Annotatef(NewStateErrorf(ErrorTimeout, "slow"), "task A")
	assert.Equal(t, ErrorTimeout, ErrorName(traced))
	assert.True(t, IsTimeoutError(traced))
}

func TestErrorCause(t *testing.T) {
	assert.Equal(t, "total 3", ErrorCause(NewStateErrorf("OrderRejected", "total %d", 3)))
	assert.Equal(t, "boom", ErrorCause(errors.New("boom")))
	assert.Equal(t, "Named", NewStateError("Named", nil).Error())
}

func TestConfigError(t *testing.T) {
	err := NewConfigError(errors.NotFoundf("state %q", "A"))
	assert.True(t, IsConfigError(err))
	assert.True(t, IsConfigError(errors.Trace(err)))
	assert.False(t, IsConfigError(NewStateErrorf(ErrorRuntime, "x")))
	assert.True(t, errors.IsNotFound(err))
}

func TestAggregateError(t *testing.T) {
	err := NewAggregateError([]error{
		NewStateErrorf("A", "first"),
		errors.New("second"),
	})
	assert.Equal(t, ErrorBranchFailed, ErrorName(err))
	assert.Contains(t, err.Error(), "A: first")
	assert.Contains(t, err.Error(), "States.TaskFailed: second")
	assert.Equal(t, err.Error(), ErrorCause(errors.Annotate(err, "fan out")))

	var se *StateError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "A", se.Name)
}
