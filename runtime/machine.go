package runtime

import (
	"time"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/types"
)

/**
 * machine is the compiled form of a StateMachine. It is shared, read-only,
 * by every execution of the definition and by every branch or iteration
 * running it.
 */
type machine struct {
	name    string
	startAt string
	timeout time.Duration

	steps map[string]step
}

func compileMachine(def *types.StateMachine, resolver types.HandlerResolver) (*machine, error) {
	if def == nil {
		return nil, types.NewConfigErrorf("state machine is nil")
	}
	m := &machine{
		name:    def.Name,
		startAt: def.StartAt,
		timeout: time.Duration(def.TimeoutSeconds) * time.Second,
		steps:   make(map[string]step, len(def.States)),
	}
	for name, state := range def.States {
		s, err := compileState(name, state, resolver)
		if err != nil {
			return nil, errors.Trace(err)
		}
		m.steps[name] = s
	}
	if _, exists := m.steps[m.startAt]; !exists {
		return nil, types.NewConfigError(errors.NotFoundf("StartAt state %q", m.startAt))
	}
	return m, nil
}

func (m *machine) lookup(ec *execContext, target string) (step, error) {
	selected := ec.imp.SelectStep(target)
	s, exists := m.steps[selected]
	if !exists {
		return nil, types.NewConfigError(errors.NotFoundf("state %q", selected))
	}
	return s, nil
}
