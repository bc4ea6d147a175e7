package runtime

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"

	"github.com/warriorguo/asl/policy"
	"github.com/warriorguo/asl/types"
)

type mapStep struct {
	stepBase

	results        resultSelector
	guard          *policy.Guard
	iterator       *machine
	itemsPath      string
	maxConcurrency int
	parameters     parameters
}

func newMapStep(base stepBase, def *types.MapState, resolver types.HandlerResolver) (*mapStep, error) {
	iterator, err := compileMachine(def.Iterator, resolver)
	if err != nil {
		return nil, errors.Annotatef(err, "state %s iterator", base.stepName)
	}
	return &mapStep{
		stepBase:       base,
		results:        newResultSelector(&def.ResultFields),
		guard:          policy.NewGuard(def.Retry, def.Catch),
		iterator:       iterator,
		itemsPath:      def.ItemsPath,
		maxConcurrency: def.MaxConcurrency,
		parameters:     newParameters(def.Parameters),
	}, nil
}

func (m *mapStep) execute(ec *execContext, input types.Data) types.Transition {
	effective := m.selectInput(input)
	items, ok := effective.Query(m.itemsPath).Value().([]any)
	if !ok {
		return m.runtimeError("ItemsPath %q does not select an array", m.itemsPath)
	}

	outcome, err := m.guard.Run(ec, input, ec.imp, func(ctx context.Context) (types.Data, error) {
		return m.runItems(ctx, ec, effective, items)
	})
	return finishGuarded(&m.stepBase, m.results, input, outcome, err)
}

func (m *mapStep) itemInput(ec *execContext, effective types.Data, index int, item any) (types.Data, error) {
	if !m.parameters.set {
		return types.NewData(item), nil
	}
	contextObject := ec.contextObject(m.stepName, "", map[string]any{
		"Map": map[string]any{
			"Item": map[string]any{"Index": index, "Value": item},
		},
	})
	return m.parameters.apply(effective, contextObject)
}

/**
 * runItems runs the iterator once per item, at most maxConcurrency at a
 * time (0 means all at once). The first failure cancels the items still
 * pending or running. Outputs keep the input order.
 */
func (m *mapStep) runItems(ctx context.Context, ec *execContext, effective types.Data, items []any) (types.Data, error) {
	if len(items) == 0 {
		return types.NewData([]any{}), nil
	}
	limit := m.maxConcurrency
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outputs := make([]types.Data, len(items))
	errs := make([]error, len(items))
	var skipped atomic.Bool

	wp := workerpool.New(limit)
	for i, item := range items {
		i, item := i, item
		wp.Submit(func() {
			if ctx.Err() != nil {
				skipped.Store(true)
				return
			}
			itemInput, err := m.itemInput(ec, effective, i, item)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			child, err := ec.child(ctx, m.stepName, strconv.Itoa(i))
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			exec := m.iterator.run(child, itemInput)
			if exec.status != types.Succeeded {
				errs[i] = exec.err
				cancel()
				return
			}
			outputs[i] = exec.data
		})
	}
	wp.StopWait()

	if err := joinErrors(errs); err != nil {
		return types.Data{}, err
	}
	// items left pending only report the end of the context
	if skipped.Load() {
		return types.Data{}, contextError(ctx.Err())
	}
	return types.NewData(outputs), nil
}
