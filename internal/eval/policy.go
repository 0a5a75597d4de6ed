package eval

import (
	"fmt"
	"maps"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// scopeEntity resolves an EntityReference to its concrete UID. Templates must
// be linked before evaluation; an unfilled slot fails with ErrUnlinkedSlot.
func scopeEntity(ref ast.EntityReference) (types.EntityUID, error) {
	switch r := ref.(type) {
	case ast.EntityUIDReference:
		return r.UID, nil
	case ast.SlotReference:
		return types.EntityUID{}, fmt.Errorf("%w: `%s`", ErrUnlinkedSlot, r.Slot)
	default:
		return types.EntityUID{}, fmt.Errorf("%w: unexpected entity reference %T", ErrType, ref)
	}
}

func scopeToNode(variable ast.Node, scope ast.IsScopeNode) (ast.Node, error) {
	switch s := scope.(type) {
	case ast.ScopeTypeAll:
		return ast.True(), nil
	case ast.ScopeTypeEq:
		uid, err := scopeEntity(s.Entity)
		if err != nil {
			return ast.Node{}, err
		}
		return variable.Equal(ast.EntityUID(uid.Type, uid.ID)), nil
	case ast.ScopeTypeIn:
		uid, err := scopeEntity(s.Entity)
		if err != nil {
			return ast.Node{}, err
		}
		return variable.In(ast.EntityUID(uid.Type, uid.ID)), nil
	case ast.ScopeTypeIs:
		return variable.Is(s.Type), nil
	case ast.ScopeTypeIsIn:
		uid, err := scopeEntity(s.Entity)
		if err != nil {
			return ast.Node{}, err
		}
		return variable.IsIn(s.Type, ast.EntityUID(uid.Type, uid.ID)), nil
	case ast.ScopeTypeActionEq:
		return variable.Equal(ast.EntityUID(s.Entity.Type, s.Entity.ID)), nil
	case ast.ScopeTypeActionIn:
		return variable.In(ast.EntityUID(s.Entity.Type, s.Entity.ID)), nil
	case ast.ScopeTypeActionInSet:
		uids := make([]ast.Node, len(s.Entities))
		for i, uid := range s.Entities {
			uids[i] = ast.EntityUID(uid.Type, uid.ID)
		}
		return variable.In(ast.Set(uids...)), nil
	default:
		return ast.Node{}, fmt.Errorf("%w: unexpected scope %T", ErrType, scope)
	}
}

// Condition lowers a policy to the single boolean expression that decides
// whether the policy is satisfied: the conjunction of its three scope
// constraints and its when/unless clauses, in source order.
func Condition(p *ast.Policy) (ast.IsNode, error) {
	out, err := scopeToNode(ast.Principal(), p.Principal)
	if err != nil {
		return nil, err
	}
	action, err := scopeToNode(ast.Action(), p.Action)
	if err != nil {
		return nil, err
	}
	out = out.And(action)
	resource, err := scopeToNode(ast.Resource(), p.Resource)
	if err != nil {
		return nil, err
	}
	out = out.And(resource)
	for _, c := range p.Conditions {
		body := ast.NewNode(c.Body)
		if c.Condition == ast.ConditionUnless {
			body = ast.Not(body)
		}
		out = out.And(body)
	}
	return out.AsIsNode(), nil
}

// PolicySatisfied evaluates a policy's scope and conditions against a
// concrete environment.
func PolicySatisfied(p *ast.Policy, env Env) (bool, error) {
	cond, err := Condition(p)
	if err != nil {
		return false, err
	}
	return BoolEval(cond, env)
}

// ResidualKind classifies a policy's outcome under partial evaluation.
type ResidualKind int

const (
	// ResidualTrue means the policy is satisfied for every substitution.
	ResidualTrue ResidualKind = iota
	// ResidualFalse means the policy is unsatisfied for every substitution.
	ResidualFalse
	// ResidualVariable means the outcome depends on one or more unknowns.
	ResidualVariable
	// ResidualError means the policy errors for every substitution.
	ResidualError
)

func (k ResidualKind) String() string {
	switch k {
	case ResidualTrue:
		return "true"
	case ResidualFalse:
		return "false"
	case ResidualVariable:
		return "variable"
	case ResidualError:
		return "error"
	default:
		return "unknown"
	}
}

// A ResidualPolicy is one policy's partially-evaluated outcome.
type ResidualPolicy struct {
	PolicyID types.PolicyID
	Effect   types.Effect
	Kind     ResidualKind

	// Residual is the simplified condition, set when Kind is ResidualVariable.
	Residual ast.IsNode
	// Variables names the unknowns the residual depends on.
	Variables []types.String
	// Err is the definite evaluation error, set when Kind is ResidualError.
	Err error
}

// PartialPolicy partially evaluates one policy's condition.
func PartialPolicy(id types.PolicyID, p *ast.Policy, env Env) ResidualPolicy {
	out := ResidualPolicy{PolicyID: id, Effect: p.Effect}
	cond, err := Condition(p)
	if err != nil {
		out.Kind = ResidualError
		out.Err = err
		return out
	}
	res, err := PartialEval(cond, env)
	if err != nil {
		out.Kind = ResidualError
		out.Err = err
		return out
	}
	if v, ok := nodeValue(res); ok {
		switch b, isBool := v.(types.Boolean); {
		case !isBool:
			out.Kind = ResidualError
			out.Err = typeError(v, "bool")
		case bool(b):
			out.Kind = ResidualTrue
		default:
			out.Kind = ResidualFalse
		}
		return out
	}
	out.Kind = ResidualVariable
	out.Residual = res
	out.Variables = Variables(res)
	return out
}

// A ResidualSet is the outcome of partially evaluating a whole policy set,
// split by effect. Policies within each slice are ordered by policy ID.
type ResidualSet struct {
	Permits []ResidualPolicy
	Forbids []ResidualPolicy
}

// PartialPolicySet partially evaluates every policy in the set against env.
func PartialPolicySet(env Env, policies map[types.PolicyID]*ast.Policy) *ResidualSet {
	out := &ResidualSet{}
	for _, id := range slices.Sorted(maps.Keys(policies)) {
		rp := PartialPolicy(id, policies[id], env)
		if rp.Effect == types.Forbid {
			out.Forbids = append(out.Forbids, rp)
		} else {
			out.Permits = append(out.Permits, rp)
		}
	}
	return out
}

func filterKind(policies []ResidualPolicy, kind ResidualKind) []ResidualPolicy {
	var out []ResidualPolicy
	for _, p := range policies {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// TruePermits returns the permit policies satisfied regardless of unknowns.
func (r *ResidualSet) TruePermits() []ResidualPolicy {
	return filterKind(r.Permits, ResidualTrue)
}

// VariablePermits returns the permit policies whose outcome depends on
// unknowns.
func (r *ResidualSet) VariablePermits() []ResidualPolicy {
	return filterKind(r.Permits, ResidualVariable)
}

// TrueForbids returns the forbid policies satisfied regardless of unknowns.
func (r *ResidualSet) TrueForbids() []ResidualPolicy {
	return filterKind(r.Forbids, ResidualTrue)
}

// VariableForbids returns the forbid policies whose outcome depends on
// unknowns.
func (r *ResidualSet) VariableForbids() []ResidualPolicy {
	return filterKind(r.Forbids, ResidualVariable)
}

// AllVariables returns the sorted, deduplicated unknown names the whole set
// still depends on.
func (r *ResidualSet) AllVariables() []types.String {
	seen := map[types.String]struct{}{}
	for _, p := range r.Permits {
		for _, v := range p.Variables {
			seen[v] = struct{}{}
		}
	}
	for _, p := range r.Forbids {
		for _, v := range p.Variables {
			seen[v] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// MustDecide reports whether the decision is already forced: either a forbid
// is definitely satisfied, or a permit is definitely satisfied and no forbid
// can still fire. Erroring policies are never satisfied, so they do not block
// a decision.
func (r *ResidualSet) MustDecide() bool {
	if len(r.TrueForbids()) > 0 {
		return true
	}
	if len(r.TruePermits()) == 0 {
		return false
	}
	return len(r.VariableForbids()) == 0
}

// Decision returns the forced decision. Valid only when MustDecide reports
// true; otherwise it returns Deny.
func (r *ResidualSet) Decision() types.Decision {
	if len(r.TrueForbids()) > 0 {
		return types.Deny
	}
	if r.MustDecide() && len(r.TruePermits()) > 0 {
		return types.Allow
	}
	return types.Deny
}
