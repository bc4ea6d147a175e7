package runtime

import (
	"github.com/warriorguo/asl/types"
)

type succeedStep struct {
	stepBase
}

func (s *succeedStep) execute(ec *execContext, input types.Data) types.Transition {
	return types.SucceedTransition{Output: s.selectOutput(s.selectInput(input))}
}

type failStep struct {
	stepBase

	errorName string
	cause     string
}

func (f *failStep) execute(ec *execContext, input types.Data) types.Transition {
	return types.NewFailTransition(types.NewStateErrorf(f.errorName, "%s", f.cause))
}
