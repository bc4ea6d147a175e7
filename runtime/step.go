package runtime

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/warriorguo/asl/policy"
	"github.com/warriorguo/asl/types"
)

/**
 * step is the compiled, immutable form of a state. execute never returns
 * a Go error: every outcome, failures included, is a Transition.
 */
type step interface {
	name() string
	execute(ec *execContext, input types.Data) types.Transition
}

type stepBase struct {
	stepName string
	next     string
	end      bool

	inputPath     string
	outputPath    string
	discardInput  bool
	discardOutput bool
}

func newStepBase(name string, base *types.StateBase) stepBase {
	return stepBase{
		stepName:      name,
		next:          base.Next,
		end:           base.End,
		inputPath:     base.InputPath,
		outputPath:    base.OutputPath,
		discardInput:  base.DiscardInput,
		discardOutput: base.DiscardOutput,
	}
}

func (s *stepBase) name() string {
	return s.stepName
}

// selectInput applies InputPath, an explicit null gives an empty object.
func (s *stepBase) selectInput(input types.Data) types.Data {
	if s.discardInput {
		return types.NewData(map[string]any{})
	}
	return input.Query(s.inputPath)
}

// selectOutput applies OutputPath, an explicit null gives an empty object.
func (s *stepBase) selectOutput(output types.Data) types.Data {
	if s.discardOutput {
		return types.NewData(map[string]any{})
	}
	return output.Query(s.outputPath)
}

func (s *stepBase) advance(output types.Data) types.Transition {
	if s.end {
		return types.SucceedTransition{Output: output}
	}
	return types.NextTransition{Target: s.next, Output: output}
}

func (s *stepBase) runtimeError(format string, args ...any) types.Transition {
	return types.NewFailTransition(types.NewStateErrorf(types.ErrorRuntime, "%s: %s", s.stepName, fmt.Sprintf(format, args...)))
}

type resultSelector struct {
	resultPath string
	discard    bool
}

func newResultSelector(fields *types.ResultFields) resultSelector {
	return resultSelector{resultPath: fields.ResultPath, discard: fields.DiscardResult}
}

// merge places result into the raw state input at ResultPath.
func (r resultSelector) merge(input, result types.Data) (types.Data, error) {
	if r.discard {
		return input, nil
	}
	return input.Merge(r.resultPath, result)
}

type parameters struct {
	template types.Data
	set      bool
}

func newParameters(template any) parameters {
	return parameters{template: types.NewData(template), set: template != nil}
}

func (p parameters) apply(effective, contextObject types.Data) (types.Data, error) {
	if !p.set {
		return effective, nil
	}
	out, err := effective.Transform(types.RootPath, p.template, contextObject)
	if err != nil {
		return types.Data{}, types.NewStateError(types.ErrorRuntime, errors.Annotatef(err, "Parameters"))
	}
	return out, nil
}

/**
 * finishGuarded turns the outcome of a guarded operation into a transition.
 * A caught error already carries its output, otherwise the result goes
 * through ResultPath and OutputPath.
 */
func finishGuarded(base *stepBase, results resultSelector, input types.Data, outcome policy.Outcome, err error) types.Transition {
	if err != nil {
		return types.NewFailTransition(err)
	}
	if outcome.Caught {
		return types.NextTransition{Target: outcome.Next, Output: outcome.Output}
	}
	merged, err := results.merge(input, outcome.Output)
	if err != nil {
		return base.runtimeError("ResultPath %s: %v", results.resultPath, err)
	}
	return base.advance(base.selectOutput(merged))
}

func compileState(name string, def types.StateDefinition, resolver types.HandlerResolver) (step, error) {
	base := newStepBase(name, def.Base())

	switch s := def.(type) {
	case *types.PassState:
		return newPassStep(base, s), nil
	case *types.TaskState:
		return newTaskStep(base, s, resolver), nil
	case *types.ChoiceState:
		return newChoiceStep(base, s)
	case *types.WaitState:
		return newWaitStep(base, s), nil
	case *types.SucceedState:
		return &succeedStep{stepBase: base}, nil
	case *types.FailState:
		return &failStep{stepBase: base, errorName: s.Error, cause: s.Cause}, nil
	case *types.ParallelState:
		return newParallelStep(base, s, resolver)
	case *types.MapState:
		return newMapStep(base, s, resolver)
	}
	return nil, types.NewConfigError(errors.NotSupportedf("state %s of type %T", name, def))
}

// runStep recovers a panicking step into a States.Runtime failure.
func runStep(ec *execContext, s step, input types.Data) (t types.Transition) {
	defer func() {
		if r := recover(); r != nil {
			t = types.NewFailTransition(types.NewStateErrorf(types.ErrorRuntime, "panic on %s: %v", s.name(), r))
		}
	}()
	return s.execute(ec, input)
}
