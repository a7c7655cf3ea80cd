package builtin

import (
	"fmt"

	"github.com/oxhq/zenlang/internal/operators"
	"github.com/oxhq/zenlang/internal/value"
)

// registerLogic exposes the probabilistic/consensus/temporal/fuzzy logic
// operators as ordinary callables, since unlike and/or/not
// they take extra weighting arguments rather than fitting the binary infix
// grammar.
func (r *Registry) registerLogic() {
	r.register("probabilistic_and", func(args []*value.Value) (*value.Value, error) {
		if len(args) != 4 {
			return nil, fmt.Errorf("probabilistic_and expects 4 arguments (a, b, pa, pb)")
		}
		pa, _ := value.ToNumber(args[2])
		pb, _ := value.ToNumber(args[3])
		return operators.ProbabilisticAnd(args[0], args[1], pa, pb), nil
	})

	r.register("consensus", func(args []*value.Value) (*value.Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("consensus expects a votes array and a threshold")
		}
		votesArg := arg(args, 0)
		if votesArg.Kind() != value.Array {
			return nil, fmt.Errorf("consensus expects its first argument to be an array")
		}
		threshold, _ := value.ToNumber(args[1])
		return operators.Consensus(votesArg.ArrayElements(), threshold), nil
	})

	r.register("eventually", func(args []*value.Value) (*value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("eventually expects 2 arguments (condition, horizon)")
		}
		horizon, _ := value.ToNumber(args[1])
		return operators.Eventually(args[0], horizon), nil
	})

	r.register("fuzzy_membership", func(args []*value.Value) (*value.Value, error) {
		if len(args) != 1 && len(args) != 3 {
			return nil, fmt.Errorf("fuzzy_membership expects 1 or 3 arguments (degree last)")
		}
		degree, _ := value.ToNumber(args[len(args)-1])
		return operators.FuzzyMembership(degree), nil
	})
}
