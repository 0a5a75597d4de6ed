package gavel

import (
	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/eval"
	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
	"github.com/strongdm/gavel/validate"
)

// Eval evaluates a standalone expression against a concrete request.
func Eval(node ast.Node, entities types.EntityGetter, req types.Request) (types.Value, error) {
	env := eval.Env{
		Entities:  entities,
		Principal: req.Principal,
		Action:    req.Action,
		Resource:  req.Resource,
		Context:   req.Context,
	}
	return eval.Eval(node.AsIsNode(), env)
}

// PartialEval partially evaluates a standalone expression against a request
// with unknowns, returning the simplified residual. The residual is a literal
// node when the expression is fully decided.
func PartialEval(node ast.Node, entities types.EntityGetter, req PartialRequest) (ast.Node, error) {
	env := eval.Env{
		Entities:  entities,
		Principal: req.Principal,
		Action:    req.Action,
		Resource:  req.Resource,
		Context:   req.Context,
	}
	res, err := eval.PartialEval(node.AsIsNode(), env)
	if err != nil {
		return ast.Node{}, err
	}
	return ast.NewNode(res), nil
}

// Validate type checks every policy in the set against the schema and reports
// all diagnostics found.
func Validate(s *schema.Schema, ps *PolicySet, opts ...validate.Option) validate.Result {
	return validate.New(s, opts...).PolicySet(ps.astMap())
}
