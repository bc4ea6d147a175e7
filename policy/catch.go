package policy

import (
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/asl/types"
)

var (
	_ CatchPolicy = nullCatch{}
	_ CatchPolicy = &StandardCatch{}
	_ CatchPolicy = CompositeCatch{}
)

// CatchPolicy turns an error into a transition to a fallback state.
type CatchPolicy interface {
	Evaluate(err error, input types.Data) (output types.Data, next string, caught bool)

	isCatchPolicy()
}

// NullCatch catches nothing.
var NullCatch CatchPolicy = nullCatch{}

type nullCatch struct{}

func (nullCatch) Evaluate(error, types.Data) (types.Data, string, bool) {
	return types.Data{}, "", false
}

func (nullCatch) isCatchPolicy() {}

/**
 * StandardCatch routes matching errors to Next. The error output
 * {"Error": name, "Cause": cause} is placed into the state input
 * at ResultPath, or replaces it when ResultPath is empty.
 */
type StandardCatch struct {
	Errors     ErrorSet
	Next       string
	ResultPath string
}

func ErrorOutput(err error) types.Data {
	return types.NewData(map[string]any{
		"Error": types.ErrorName(err),
		"Cause": types.ErrorCause(err),
	})
}

func (c *StandardCatch) Evaluate(err error, input types.Data) (types.Data, string, bool) {
	if !c.Errors.Matches(err) {
		return types.Data{}, "", false
	}
	errOutput := ErrorOutput(err)
	output, mergeErr := input.Merge(c.ResultPath, errOutput)
	if mergeErr != nil {
		log.Warnf("catch to %s: can not place error at %s: %v", c.Next, c.ResultPath, mergeErr)
		output = errOutput
	}
	return output, c.Next, true
}

func (c *StandardCatch) isCatchPolicy() {}

// CompositeCatch uses the first catcher matching the error, in declaration order.
type CompositeCatch []CatchPolicy

func (c CompositeCatch) Evaluate(err error, input types.Data) (types.Data, string, bool) {
	for _, catcher := range c {
		if output, next, caught := catcher.Evaluate(err, input); caught {
			return output, next, true
		}
	}
	return types.Data{}, "", false
}

func (c CompositeCatch) isCatchPolicy() {}

func newCatchPolicy(def types.CatchDefinition) CatchPolicy {
	return &StandardCatch{
		Errors:     NewErrorSet(def.ErrorEquals...),
		Next:       def.Next,
		ResultPath: def.ResultPath,
	}
}

// NewCatch compiles the Catch field of a state.
func NewCatch(defs []types.CatchDefinition) CatchPolicy {
	switch len(defs) {
	case 0:
		return NullCatch
	case 1:
		return newCatchPolicy(defs[0])
	}
	c := make(CompositeCatch, 0, len(defs))
	for _, def := range defs {
		c = append(c, newCatchPolicy(def))
	}
	return c
}
