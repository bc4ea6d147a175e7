package runtime

import (
	"context"
	"strconv"

	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"

	"github.com/warriorguo/asl/policy"
	"github.com/warriorguo/asl/types"
)

type parallelStep struct {
	stepBase

	results  resultSelector
	guard    *policy.Guard
	branches []*machine
}

func newParallelStep(base stepBase, def *types.ParallelState, resolver types.HandlerResolver) (*parallelStep, error) {
	p := &parallelStep{
		stepBase: base,
		results:  newResultSelector(&def.ResultFields),
		guard:    policy.NewGuard(def.Retry, def.Catch),
	}
	for i, branch := range def.Branches {
		m, err := compileMachine(branch, resolver)
		if err != nil {
			return nil, errors.Annotatef(err, "state %s branch %d", base.stepName, i)
		}
		p.branches = append(p.branches, m)
	}
	return p, nil
}

func (p *parallelStep) execute(ec *execContext, input types.Data) types.Transition {
	effective := p.selectInput(input)
	outcome, err := p.guard.Run(ec, input, ec.imp, func(ctx context.Context) (types.Data, error) {
		return p.runBranches(ctx, ec, effective)
	})
	return finishGuarded(&p.stepBase, p.results, input, outcome, err)
}

// runBranches gives every branch the same input, outputs keep the declaration order.
func (p *parallelStep) runBranches(ctx context.Context, ec *execContext, input types.Data) (types.Data, error) {
	g, gctx := errgroup.WithContext(ctx)

	outputs := make([]types.Data, len(p.branches))
	errs := make([]error, len(p.branches))
	for i, branch := range p.branches {
		i, branch := i, branch
		g.Go(func() error {
			child, err := ec.child(gctx, p.stepName, strconv.Itoa(i))
			if err != nil {
				errs[i] = err
				return err
			}
			exec := branch.run(child, input)
			if exec.status != types.Succeeded {
				errs[i] = exec.err
				return exec.err
			}
			outputs[i] = exec.data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.Data{}, joinErrors(errs)
	}
	return types.NewData(outputs), nil
}
