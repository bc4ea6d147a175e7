package runtime

import (
	"context"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/types"
)

/**
 * execution is the state of one run of a machine. Each trampoline
 * iteration takes the current value and returns the next one.
 */
type execution struct {
	data    types.Data
	current step
	status  types.ExecutionStatus
	err     error
}

func (e execution) succeed(output types.Data) execution {
	e.data = output
	e.current = nil
	e.status = types.Succeeded
	return e
}

func (e execution) fail(err error) execution {
	e.current = nil
	e.status = types.Failed
	e.err = err
	return e
}

func (e execution) moveTo(next step, output types.Data) execution {
	e.data = output
	e.current = next
	return e
}

// run drives the machine from StartAt until it succeeds or fails.
func (m *machine) run(ec *execContext, input types.Data) execution {
	exec := execution{data: input, current: m.steps[m.startAt], status: types.Executing}
	for exec.status == types.Executing {
		exec = m.runOnce(ec, exec)
	}
	return exec
}

func (m *machine) runOnce(ec *execContext, exec execution) execution {
	if err := ec.Err(); err != nil {
		return exec.fail(contextError(err))
	}
	current := exec.current
	transition := runStep(ec, current, exec.data)

	switch t := transition.(type) {
	case types.NextTransition:
		ec.record(current.name(), t.Output, nil)
		return m.advance(ec, exec, t.Target, t.Output)

	case types.SucceedTransition:
		ec.record(current.name(), t.Output, nil)
		return exec.succeed(t.Output)

	case types.FailTransition:
		ec.record(current.name(), exec.data, t.Err)
		return exec.fail(t.Err)

	case types.WaitForTokenTransition:
		if err := waitForToken(ec, t.Token); err != nil {
			ec.record(current.name(), exec.data, err)
			return exec.fail(err)
		}
		ec.record(current.name(), t.Output, nil)
		if t.Target == "" {
			return exec.succeed(t.Output)
		}
		return m.advance(ec, exec, t.Target, t.Output)
	}

	err := types.NewConfigErrorf("unknown transition %T from %s", transition, current.name())
	ec.record(current.name(), exec.data, err)
	return exec.fail(err)
}

func (m *machine) advance(ec *execContext, exec execution, target string, output types.Data) execution {
	next, err := m.lookup(ec, target)
	if err != nil {
		log.Errorf("%s can not move to %s: %v", ec.executionID, target, err)
		ec.record(target, output, err)
		return exec.fail(err)
	}
	return exec.moveTo(next, output)
}

/**
 * waitForToken polls the sink until token is done. Statuses are read
 * again on every tick, the sink may be written by another process.
 */
func waitForToken(ec *execContext, token string) error {
	log.Debugf("%s waiting for task token %s", ec.executionID, token)

	ticker := time.NewTicker(ec.pollInterval)
	defer ticker.Stop()

	for {
		status, err := ec.sink.GetStatus(ec, token, types.TokenWaiting)
		if err != nil {
			return errors.Annotatef(err, "read task token %s", token)
		}
		switch status {
		case types.TokenSucceeded:
			return nil
		case types.TokenFailed:
			return types.NewStateErrorf(types.ErrorTaskFailed, "task token %s failed", token)
		}

		select {
		case <-ec.Done():
			return contextError(ec.Err())
		case <-ticker.C:
		}
	}
}

// contextError names the end of a context: an expired deadline is a States.Timeout.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewStateError(types.ErrorTimeout, errors.Annotatef(err, "execution timed out"))
	}
	return errors.Annotatef(err, "execution cancelled")
}
