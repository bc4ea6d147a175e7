package policy

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/types"
)

func TestErrorSet(t *testing.T) {
	set := NewErrorSet("States.Timeout", "OrderRejected")
	assert.True(t, set.MatchesName("States.Timeout"))
	assert.True(t, set.MatchesName("states.timeout"))
	assert.True(t, set.Matches(types.NewStateErrorf("OrderRejected", "no stock")))
	assert.False(t, set.Matches(errors.New("plain")))
	assert.False(t, set.Matches(nil))

	all := NewErrorSet(types.ErrorAll)
	assert.True(t, all.Matches(errors.New("plain")))
	assert.True(t, all.Matches(types.NewStateErrorf("Anything", "x")))
	assert.False(t, all.Matches(types.NewConfigErrorf("bad definition")))
}

func TestExponentialRetry(t *testing.T) {
	p := NewRetry([]types.RetryDefinition{{ErrorEquals: []string{types.ErrorAll}}})
	err := errors.New("boom")

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, delay := range expected {
		retry, d := p.Evaluate(attempt, err)
		assert.True(t, retry)
		assert.Equal(t, delay, d)
	}
	retry, _ := p.Evaluate(3, err)
	assert.False(t, retry)
}

func TestLinearRetry(t *testing.T) {
	interval, attempts := 0.5, 2
	p := NewRetry([]types.RetryDefinition{{
		ErrorEquals:     []string{types.ErrorAll},
		IntervalSeconds: &interval,
		MaxAttempts:     &attempts,
		Backoff:         types.BackoffLinear,
	}})
	assert.IsType(t, &LinearRetry{}, p)

	retry, d := p.Evaluate(0, errors.New("x"))
	assert.True(t, retry)
	assert.Equal(t, time.Duration(0), d)

	retry, d = p.Evaluate(1, errors.New("x"))
	assert.True(t, retry)
	assert.Equal(t, 500*time.Millisecond, d)

	retry, _ = p.Evaluate(2, errors.New("x"))
	assert.False(t, retry)
}

func TestCompositeRetry_FirstMatchGoverns(t *testing.T) {
	one, zero := 1, 0
	p := NewRetry([]types.RetryDefinition{
		{ErrorEquals: []string{"Throttled"}, MaxAttempts: &one},
		{ErrorEquals: []string{"Fatal"}, MaxAttempts: &zero},
		{ErrorEquals: []string{types.ErrorAll}},
	})
	throttled := types.NewStateErrorf("Throttled", "slow down")
	fatal := types.NewStateErrorf("Fatal", "no")

	c := p.(CompositeRetry)
	assert.Equal(t, c[0], p.Governing(throttled))
	assert.Equal(t, c[1], p.Governing(fatal))
	assert.Equal(t, c[2], p.Governing(errors.New("other")))

	retry, _ := p.Evaluate(0, fatal)
	assert.False(t, retry)
	retry, _ = p.Evaluate(0, throttled)
	assert.True(t, retry)
	retry, _ = p.Evaluate(1, throttled)
	assert.False(t, retry)

	assert.Nil(t, NullRetry.Governing(throttled))
	assert.Nil(t, p.Governing(types.NewConfigErrorf("fatal")))
}

func TestStandardCatch(t *testing.T) {
	input := types.NewData(map[string]any{"order": "o-1"})
	c := NewCatch([]types.CatchDefinition{
		{ErrorEquals: []string{"OrderRejected"}, Next: "Rejected", ResultPath: "$.error"},
		{ErrorEquals: []string{types.ErrorAll}, Next: "Fallback"},
	})

	output, next, caught := c.Evaluate(types.NewStateErrorf("OrderRejected", "no stock"), input)
	assert.True(t, caught)
	assert.Equal(t, "Rejected", next)
	assert.Equal(t, map[string]any{
		"order": "o-1",
		"error": map[string]any{"Error": "OrderRejected", "Cause": "no stock"},
	}, output.Value())

	output, next, caught = c.Evaluate(errors.New("boom"), input)
	assert.True(t, caught)
	assert.Equal(t, "Fallback", next)
	assert.Equal(t, map[string]any{"Error": types.ErrorTaskFailed, "Cause": "boom"}, output.Value())

	_, _, caught = c.Evaluate(types.NewConfigErrorf("fatal"), input)
	assert.False(t, caught)

	_, _, caught = NullCatch.Evaluate(errors.New("boom"), input)
	assert.False(t, caught)
}

type flakyOperation struct {
	failures int
	calls    int
	err      error
}

func (f *flakyOperation) run(ctx context.Context) (types.Data, error) {
	f.calls++
	if f.calls <= f.failures {
		return types.Data{}, f.err
	}
	return types.NewData("done"), nil
}

func zeroIntervalRetry(attempts int, names ...string) []types.RetryDefinition {
	interval := 0.0
	return []types.RetryDefinition{{ErrorEquals: names, IntervalSeconds: &interval, MaxAttempts: &attempts}}
}

func TestGuard_RetriesThenSucceeds(t *testing.T) {
	for k := 0; k <= 3; k++ {
		op := &flakyOperation{failures: k, err: errors.New("flaky")}
		g := NewGuard(zeroIntervalRetry(3, types.ErrorAll), nil)

		outcome, err := g.Run(context.Background(), types.Data{}, nil, op.run)
		assert.Nil(t, err)
		assert.Equal(t, "done", outcome.Output.Value())
		assert.Equal(t, k+1, outcome.Attempts)
		assert.Equal(t, k+1, op.calls)
	}
}

func TestGuard_GivesUpThenCatches(t *testing.T) {
	op := &flakyOperation{failures: 10, err: types.NewStateErrorf("Broken", "always")}
	g := NewGuard(zeroIntervalRetry(2, "Broken"), []types.CatchDefinition{
		{ErrorEquals: []string{"Broken"}, Next: "Recover", ResultPath: "$.err"},
	})

	outcome, err := g.Run(context.Background(), types.NewData(map[string]any{}), nil, op.run)
	assert.Nil(t, err)
	assert.True(t, outcome.Caught)
	assert.Equal(t, "Recover", outcome.Next)
	assert.Equal(t, 3, op.calls)
	assert.Equal(t, "Broken", outcome.Output.Query("$.err.Error").Value())
}

func TestGuard_Impositions(t *testing.T) {
	op := &flakyOperation{failures: 10, err: errors.New("boom")}
	g := NewGuard(zeroIntervalRetry(5, types.ErrorAll), []types.CatchDefinition{
		{ErrorEquals: []string{types.ErrorAll}, Next: "Recover"},
	})
	imp := types.NewImpositions(types.WithoutRetry(), types.WithoutCatch())

	_, err := g.Run(context.Background(), types.Data{}, imp, op.run)
	assert.NotNil(t, err)
	assert.Equal(t, 1, op.calls)
}

func TestGuard_ConfigErrorIsFatal(t *testing.T) {
	op := &flakyOperation{failures: 10, err: types.NewConfigErrorf("unresolved")}
	g := NewGuard(zeroIntervalRetry(5, types.ErrorAll), []types.CatchDefinition{
		{ErrorEquals: []string{types.ErrorAll}, Next: "Recover"},
	})

	_, err := g.Run(context.Background(), types.Data{}, nil, op.run)
	assert.True(t, types.IsConfigError(err))
	assert.Equal(t, 1, op.calls)
}

func TestGuard_CancelledDelay(t *testing.T) {
	interval := 60.0
	g := NewGuard([]types.RetryDefinition{{ErrorEquals: []string{types.ErrorAll}, IntervalSeconds: &interval}},
		[]types.CatchDefinition{{ErrorEquals: []string{types.ErrorAll}, Next: "Recover"}})
	op := &flakyOperation{failures: 10, err: errors.New("boom")}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome, err := g.Run(ctx, types.Data{}, nil, op.run)
	assert.NotNil(t, err)
	assert.False(t, outcome.Caught)
	assert.Less(t, time.Since(start), 10*time.Second)
}
