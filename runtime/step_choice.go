package runtime

import (
	"github.com/juju/errors"

	"github.com/warriorguo/asl/types"
)

type choiceBranch struct {
	when condition
	next string
}

type choiceStep struct {
	stepBase

	branches    []choiceBranch
	defaultNext string
}

func newChoiceStep(base stepBase, def *types.ChoiceState) (*choiceStep, error) {
	c := &choiceStep{stepBase: base, defaultNext: def.Default}
	for i, rule := range def.Choices {
		when, err := compileCondition(rule)
		if err != nil {
			return nil, types.NewConfigError(errors.Annotatef(err, "state %s choice %d", base.stepName, i))
		}
		c.branches = append(c.branches, choiceBranch{when: when, next: rule.Next})
	}
	return c, nil
}

// execute follows the first matching rule, in declaration order.
func (c *choiceStep) execute(ec *execContext, input types.Data) types.Transition {
	effective := c.selectInput(input)
	output := c.selectOutput(effective)

	for _, branch := range c.branches {
		matched, err := branch.when.evaluate(effective)
		if err != nil {
			return types.NewFailTransition(err)
		}
		if matched {
			return types.NextTransition{Target: branch.next, Output: output}
		}
	}
	if c.defaultNext != "" {
		return types.NextTransition{Target: c.defaultNext, Output: output}
	}
	return types.NewFailTransition(types.NewStateErrorf(types.ErrorNoChoiceMatched,
		"no choice rule matched and no Default in state %s", c.stepName))
}
