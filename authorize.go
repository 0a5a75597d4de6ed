package gavel

import (
	"github.com/strongdm/gavel/internal/eval"
	"github.com/strongdm/gavel/types"
)

// A DiagnosticReason identifies one policy that was satisfied by a request.
type DiagnosticReason struct {
	PolicyID types.PolicyID `json:"policy"`
	Position types.Position `json:"position"`
}

// A DiagnosticError describes an evaluation error in one policy. An erroring
// policy is treated as unsatisfied and does not affect other policies.
type DiagnosticError struct {
	PolicyID types.PolicyID `json:"policy"`
	Position types.Position `json:"position"`
	Message  string         `json:"message"`
}

func (e DiagnosticError) Error() string {
	return string(e.PolicyID) + ": " + e.Message
}

// A Diagnostic explains an authorization decision: every policy that was
// satisfied, including permits overridden by a forbid, and every policy that
// errored during evaluation.
type Diagnostic struct {
	Reasons []DiagnosticReason `json:"reasons,omitempty"`
	Errors  []DiagnosticError  `json:"errors,omitempty"`
}

// Authorize decides a request against the policy set. A request is allowed
// only if at least one permit policy is satisfied and no forbid policy is
// satisfied; absent any satisfied policy the request is denied.
func Authorize(ps *PolicySet, entities types.EntityGetter, req types.Request) (types.Decision, Diagnostic) {
	env := eval.Env{
		Entities:  entities,
		Principal: req.Principal,
		Action:    req.Action,
		Resource:  req.Resource,
		Context:   req.Context,
	}

	var diag Diagnostic
	var permitted, forbidden bool
	for id, p := range ps.All() {
		satisfied, err := eval.PolicySatisfied(p.ast, env)
		if err != nil {
			diag.Errors = append(diag.Errors, DiagnosticError{
				PolicyID: id,
				Position: p.ast.Position,
				Message:  err.Error(),
			})
			continue
		}
		if !satisfied {
			continue
		}
		diag.Reasons = append(diag.Reasons, DiagnosticReason{
			PolicyID: id,
			Position: p.ast.Position,
		})
		if p.ast.Effect == types.Forbid {
			forbidden = true
		} else {
			permitted = true
		}
	}

	if permitted && !forbidden {
		return types.Allow, diag
	}
	return types.Deny, diag
}
