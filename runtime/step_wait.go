package runtime

import (
	"time"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/types"
	"github.com/warriorguo/asl/utils"
)

type waitStep struct {
	stepBase

	def *types.WaitState
}

func newWaitStep(base stepBase, def *types.WaitState) *waitStep {
	return &waitStep{stepBase: base, def: def}
}

// duration resolves the wait, a timestamp in the past waits zero.
func (w *waitStep) duration(effective types.Data) (time.Duration, error) {
	switch {
	case w.def.Seconds != nil:
		return secondsToDuration(*w.def.Seconds), nil

	case w.def.SecondsPath != "":
		value, err := lookupVariable(effective, w.def.SecondsPath)
		if err != nil {
			return 0, err
		}
		if value.Kind() != types.KindNumber {
			return 0, errors.NotValidf("SecondsPath %s value %s", w.def.SecondsPath, value)
		}
		seconds, err := types.Cast[float64](value)
		if err != nil {
			return 0, errors.Trace(err)
		}
		return secondsToDuration(seconds), nil

	case w.def.Timestamp != "":
		ts, err := time.Parse(time.RFC3339, w.def.Timestamp)
		if err != nil {
			return 0, errors.Annotatef(err, "Timestamp")
		}
		return untilTimestamp(ts), nil

	case w.def.TimestampPath != "":
		value, err := lookupVariable(effective, w.def.TimestampPath)
		if err != nil {
			return 0, err
		}
		ts, ok := toTimestamp(value)
		if !ok {
			return 0, errors.NotValidf("TimestampPath %s value %s", w.def.TimestampPath, value)
		}
		return untilTimestamp(ts), nil
	}
	return 0, errors.NotValidf("wait without duration")
}

func (w *waitStep) execute(ec *execContext, input types.Data) types.Transition {
	effective := w.selectInput(input)

	d, err := w.duration(effective)
	if err != nil {
		if types.ErrorName(err) == types.ErrorRuntime {
			return types.NewFailTransition(err)
		}
		return w.runtimeError("%v", err)
	}
	if ec.imp.WaitOverride != nil {
		d = *ec.imp.WaitOverride
	}

	if err := utils.Sleep(ec, d); err != nil {
		return types.NewFailTransition(contextError(err))
	}
	return w.advance(w.selectOutput(effective))
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func untilTimestamp(ts time.Time) time.Duration {
	d := time.Until(ts)
	if d < 0 {
		return 0
	}
	return d
}
