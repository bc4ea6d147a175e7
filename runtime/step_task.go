package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/policy"
	"github.com/warriorguo/asl/types"
)

type taskStep struct {
	stepBase

	def        *types.TaskState
	results    resultSelector
	parameters parameters
	guard      *policy.Guard

	resolver    types.HandlerResolver
	resolveOnce sync.Once
	handler     types.TaskHandler
	resolveErr  error
}

func newTaskStep(base stepBase, def *types.TaskState, resolver types.HandlerResolver) *taskStep {
	return &taskStep{
		stepBase:   base,
		def:        def,
		results:    newResultSelector(&def.ResultFields),
		parameters: newParameters(def.Parameters),
		guard:      policy.NewGuard(def.Retry, def.Catch),
		resolver:   resolver,
	}
}

// resolve binds the handler on first use, the result is kept for every later execution.
func (t *taskStep) resolve() (types.TaskHandler, error) {
	t.resolveOnce.Do(func() {
		if t.resolver == nil {
			t.resolveErr = types.NewConfigErrorf("no handler resolver for resource %s", t.def.Resource)
			return
		}
		handler, err := t.resolver(t.def)
		switch {
		case err != nil:
			t.resolveErr = types.NewConfigError(errors.Annotatef(err, "resolve resource %s", t.def.Resource))
		case handler == nil:
			t.resolveErr = types.NewConfigError(errors.NotFoundf("handler for resource %s", t.def.Resource))
		default:
			t.handler = handler
		}
	})
	return t.handler, t.resolveErr
}

/**
 * timeout picks, in order: the imposed task timeout, TimeoutSecondsPath,
 * TimeoutSeconds, then the host default.
 */
func (t *taskStep) timeout(ec *execContext, effective types.Data) (time.Duration, error) {
	if ec.imp.TaskTimeout != nil {
		return *ec.imp.TaskTimeout, nil
	}
	if t.def.TimeoutSecondsPath != "" {
		value, err := lookupVariable(effective, t.def.TimeoutSecondsPath)
		if err != nil {
			return 0, err
		}
		seconds, err := types.Cast[float64](value)
		if err != nil || seconds <= 0 {
			return 0, types.NewStateErrorf(types.ErrorRuntime, "TimeoutSecondsPath %s value %s", t.def.TimeoutSecondsPath, value)
		}
		return secondsToDuration(seconds), nil
	}
	if t.def.TimeoutSeconds > 0 {
		return time.Duration(t.def.TimeoutSeconds) * time.Second, nil
	}
	return ec.taskTimeout, nil
}

func (t *taskStep) execute(ec *execContext, input types.Data) types.Transition {
	handler, err := t.resolve()
	if err != nil {
		return types.NewFailTransition(err)
	}
	effective := t.selectInput(input)
	timeout, err := t.timeout(ec, effective)
	if err != nil {
		return types.NewFailTransition(err)
	}

	token := ""
	outcome, err := t.guard.Run(ec, input, ec.imp, func(ctx context.Context) (types.Data, error) {
		if t.def.WaitsForTaskToken() {
			token = uuid.New().String()
			// recorded before the handler runs so an early completion is never lost
			if err := ec.sink.SetStatus(ctx, token, types.TokenWaiting); err != nil {
				return types.Data{}, errors.Annotatef(err, "record token of %s", t.stepName)
			}
		}
		params, err := t.parameters.apply(effective, ec.contextObject(t.stepName, token, nil))
		if err != nil {
			return types.Data{}, err
		}
		output, err := t.invoke(ctx, ec, handler, params, token, timeout)
		if err != nil && token != "" {
			// a retry issues a new token, this one is never completed
			if err := ec.sink.SetStatus(context.WithoutCancel(ctx), token, types.TokenFailed); err != nil {
				log.Errorf("%s failed to release token %s: %v", ec.executionID, token, err)
			}
		}
		return output, err
	})

	transition := finishGuarded(&t.stepBase, t.results, input, outcome, err)
	if token == "" || outcome.Caught || !ec.imp.HonorTaskTokens {
		return transition
	}
	switch next := transition.(type) {
	case types.NextTransition:
		return types.WaitForTokenTransition{Token: token, Target: next.Target, Output: next.Output}
	case types.SucceedTransition:
		return types.WaitForTokenTransition{Token: token, Output: next.Output}
	}
	return transition
}

type taskResult struct {
	output types.Data
	err    error
}

/**
 * invoke runs the handler in its own goroutine: a handler ignoring its
 * context is abandoned once the timeout fires.
 */
func (t *taskStep) invoke(ctx context.Context, ec *execContext, handler types.TaskHandler,
	input types.Data, token string, timeout time.Duration) (types.Data, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultCh := make(chan taskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("%s task %s panic: %v", ec.executionID, t.stepName, r)
				resultCh <- taskResult{err: types.NewStateErrorf(types.ErrorTaskFailed, "panic on %s: %v", t.stepName, r)}
			}
		}()
		tc := &taskContext{
			Context:     callCtx,
			executionID: ec.executionID,
			stateName:   t.stepName,
			token:       token,
		}
		output, err := handler(tc, input)
		resultCh <- taskResult{output: output, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return types.Data{}, t.timeoutError(timeout)
		}
		return r.output, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return types.Data{}, contextError(ctx.Err())
		}
		return types.Data{}, t.timeoutError(timeout)
	}
}

func (t *taskStep) timeoutError(timeout time.Duration) error {
	return types.NewStateErrorf(types.ErrorTimeout, "task %s timed out after %v", t.stepName, timeout)
}
