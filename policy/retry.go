package policy

import (
	"math"
	"time"

	"github.com/warriorguo/asl/types"
)

var (
	_ RetryPolicy = nullRetry{}
	_ RetryPolicy = &ExponentialRetry{}
	_ RetryPolicy = &LinearRetry{}
	_ RetryPolicy = CompositeRetry{}
)

/**
 * RetryPolicy decides whether a failed attempt is tried again.
 * attempt is the number of retries the governing policy already granted.
 */
type RetryPolicy interface {
	// Governing returns the policy responsible for err, nil when none is.
	Governing(err error) RetryPolicy
	Evaluate(attempt int, err error) (retry bool, delay time.Duration)

	isRetryPolicy()
}

// NullRetry never retries.
var NullRetry RetryPolicy = nullRetry{}

type nullRetry struct{}

func (nullRetry) Governing(err error) RetryPolicy { return nil }
func (nullRetry) Evaluate(int, error) (bool, time.Duration) { return false, 0 }
func (nullRetry) isRetryPolicy() {}

// ExponentialRetry waits Interval * BackoffRate^attempt before each retry.
type ExponentialRetry struct {
	Errors      ErrorSet
	Interval    time.Duration
	MaxAttempts int
	BackoffRate float64
}

func (p *ExponentialRetry) Governing(err error) RetryPolicy {
	if p.Errors.Matches(err) {
		return p
	}
	return nil
}

func (p *ExponentialRetry) Evaluate(attempt int, err error) (bool, time.Duration) {
	if attempt >= p.MaxAttempts || !p.Errors.Matches(err) {
		return false, 0
	}
	return true, time.Duration(float64(p.Interval) * math.Pow(p.BackoffRate, float64(attempt)))
}

func (p *ExponentialRetry) isRetryPolicy() {}

// LinearRetry waits Interval * attempt before each retry, the first retry is immediate.
type LinearRetry struct {
	Errors      ErrorSet
	Interval    time.Duration
	MaxAttempts int
}

func (p *LinearRetry) Governing(err error) RetryPolicy {
	if p.Errors.Matches(err) {
		return p
	}
	return nil
}

func (p *LinearRetry) Evaluate(attempt int, err error) (bool, time.Duration) {
	if attempt >= p.MaxAttempts || !p.Errors.Matches(err) {
		return false, 0
	}
	return true, p.Interval * time.Duration(attempt)
}

func (p *LinearRetry) isRetryPolicy() {}

// CompositeRetry hands the decision to the first policy matching the error,
// in declaration order.
type CompositeRetry []RetryPolicy

func (c CompositeRetry) Governing(err error) RetryPolicy {
	for _, p := range c {
		if g := p.Governing(err); g != nil {
			return g
		}
	}
	return nil
}

func (c CompositeRetry) Evaluate(attempt int, err error) (bool, time.Duration) {
	g := c.Governing(err)
	if g == nil {
		return false, 0
	}
	return g.Evaluate(attempt, err)
}

func (c CompositeRetry) isRetryPolicy() {}

func newRetryPolicy(def types.RetryDefinition) RetryPolicy {
	errs := NewErrorSet(def.ErrorEquals...)
	if def.Backoff == types.BackoffLinear {
		return &LinearRetry{Errors: errs, Interval: def.Interval(), MaxAttempts: def.Attempts()}
	}
	return &ExponentialRetry{
		Errors:      errs,
		Interval:    def.Interval(),
		MaxAttempts: def.Attempts(),
		BackoffRate: def.Rate(),
	}
}

// NewRetry compiles the Retry field of a state.
func NewRetry(defs []types.RetryDefinition) RetryPolicy {
	switch len(defs) {
	case 0:
		return NullRetry
	case 1:
		return newRetryPolicy(defs[0])
	}
	c := make(CompositeRetry, 0, len(defs))
	for _, def := range defs {
		c = append(c, newRetryPolicy(def))
	}
	return c
}
