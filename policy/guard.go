package policy

import (
	"context"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/asl/types"
	"github.com/warriorguo/asl/utils"
)

// Guard runs an operation under a retry policy, itself wrapped by a catch policy.
type Guard struct {
	Retry RetryPolicy
	Catch CatchPolicy
}

func NewGuard(retry []types.RetryDefinition, catch []types.CatchDefinition) *Guard {
	return &Guard{Retry: NewRetry(retry), Catch: NewCatch(catch)}
}

type Outcome struct {
	Output types.Data
	// Next is set when the error was caught
	Next     string
	Caught   bool
	Attempts int
}

type Operation func(ctx context.Context) (types.Data, error)

/**
 * Run calls op until it succeeds or the retry policy gives up, then
 * offers the last error to the catch policy. Retry delays honour ctx
 * cancellation; once ctx is done nothing is retried nor caught.
 * input is the state input a catcher places its error output into.
 */
func (g *Guard) Run(ctx context.Context, input types.Data, imp *types.Impositions, op Operation) (Outcome, error) {
	if imp == nil {
		imp = types.NewImpositions()
	}
	attempts := make(map[RetryPolicy]int)
	outcome := Outcome{}

	var lastErr error
	for {
		output, err := op(ctx)
		outcome.Attempts++
		if err == nil {
			outcome.Output = output
			return outcome, nil
		}
		lastErr = err

		if ctx.Err() != nil || imp.DisableRetry {
			break
		}
		governing := g.Retry.Governing(err)
		if governing == nil {
			break
		}
		retry, delay := governing.Evaluate(attempts[governing], err)
		if !retry {
			break
		}
		attempts[governing]++

		log.Debugf("retry #%d after %v on %s: %v", outcome.Attempts, delay, types.ErrorName(err), err)
		if err := utils.Sleep(ctx, delay); err != nil {
			return outcome, errors.Trace(lastErr)
		}
	}

	if ctx.Err() == nil && !imp.DisableCatch {
		if output, next, caught := g.Catch.Evaluate(lastErr, input); caught {
			log.Debugf("caught %s, continue at %s", types.ErrorName(lastErr), next)
			outcome.Output = output
			outcome.Next = next
			outcome.Caught = true
			return outcome, nil
		}
	}
	return outcome, lastErr
}
