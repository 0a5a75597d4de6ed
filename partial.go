package gavel

import (
	"github.com/strongdm/gavel/internal/eval"
	"github.com/strongdm/gavel/types"
)

// Variable returns a placeholder value standing for a request component that
// is not yet known. Placeholders may appear anywhere a value may, including
// inside context records.
func Variable(name types.String) types.Value { return eval.Variable(name) }

// IsVariable reports whether v is a placeholder produced by Variable.
func IsVariable(v types.Value) bool { return eval.IsVariable(v) }

// A ResidualPolicy is one policy's partially-evaluated outcome.
type ResidualPolicy = eval.ResidualPolicy

// ResidualKind classifies a policy's outcome under partial evaluation.
type ResidualKind = eval.ResidualKind

const (
	ResidualTrue     = eval.ResidualTrue
	ResidualFalse    = eval.ResidualFalse
	ResidualVariable = eval.ResidualVariable
	ResidualError    = eval.ResidualError
)

// A ResidualSet is the outcome of partially evaluating a whole policy set.
type ResidualSet = eval.ResidualSet

// A PartialRequest is a request whose components may be placeholders produced
// by Variable, or concrete values.
type PartialRequest struct {
	Principal types.Value
	Action    types.Value
	Resource  types.Value
	Context   types.Value
}

// PartialAuthorize partially evaluates every policy in the set against a
// request with unknowns. Each policy reduces to definitely satisfied,
// definitely unsatisfied, a definite error, or a residual condition over the
// remaining unknowns. The returned set reports whether the decision is
// already forced and which unknowns it still depends on.
func PartialAuthorize(ps *PolicySet, entities types.EntityGetter, req PartialRequest) *ResidualSet {
	env := eval.Env{
		Entities:  entities,
		Principal: req.Principal,
		Action:    req.Action,
		Resource:  req.Resource,
		Context:   req.Context,
	}
	return eval.PartialPolicySet(env, ps.astMap())
}
