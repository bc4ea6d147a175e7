package runtime

import (
	"context"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/types"
)

/**
 * joinErrors aggregates the failures of sub-executions. Failures caused
 * by the shared cancellation are dropped as long as a real failure is
 * left to report.
 */
func joinErrors(errs []error) error {
	failures := make([]error, 0, len(errs))
	cancelled := make([]error, 0)
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			cancelled = append(cancelled, err)
			continue
		}
		failures = append(failures, err)
	}
	if len(failures) == 0 {
		failures = cancelled
	}
	if len(failures) == 0 {
		return nil
	}
	return types.NewAggregateError(failures)
}
