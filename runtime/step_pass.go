package runtime

import (
	"github.com/warriorguo/asl/types"
)

type passStep struct {
	stepBase

	results    resultSelector
	parameters parameters
	result     types.Data
	hasResult  bool
}

func newPassStep(base stepBase, def *types.PassState) *passStep {
	return &passStep{
		stepBase:   base,
		results:    newResultSelector(&def.ResultFields),
		parameters: newParameters(def.Parameters),
		result:     types.NewData(def.Result),
		hasResult:  def.Result != nil,
	}
}

func (p *passStep) execute(ec *execContext, input types.Data) types.Transition {
	effective, err := p.parameters.apply(p.selectInput(input), ec.contextObject(p.stepName, "", nil))
	if err != nil {
		return types.NewFailTransition(err)
	}

	result := effective
	if p.hasResult {
		result = p.result
	}
	merged, err := p.results.merge(input, result)
	if err != nil {
		return p.runtimeError("ResultPath %s: %v", p.results.resultPath, err)
	}
	return p.advance(p.selectOutput(merged))
}
