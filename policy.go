// Package gavel is an embeddable authorization engine. Callers supply a
// policy set, an entity store, and a request; the engine answers Allow or
// Deny with the policies that determined the outcome. A schema-driven
// validator proves ahead of time that a policy set cannot produce type errors
// during authorization.
package gavel

import (
	"maps"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// A Policy is a single permit or forbid rule. Policies are built from the
// ast package's builders by an embedding application or a parsing front end,
// or produced by linking a template.
type Policy struct {
	ast        *ast.Policy
	templateID types.PolicyID
	slotEnv    map[types.SlotID]types.EntityUID
}

// NewPolicy wraps a policy syntax tree.
func NewPolicy(p *ast.Policy) *Policy {
	return &Policy{ast: p}
}

// Effect returns whether the policy permits or forbids.
func (p *Policy) Effect() types.Effect { return p.ast.Effect }

// Position returns the policy's source position.
func (p *Policy) Position() types.Position { return p.ast.Position }

// SetPosition records where the policy came from, for diagnostics.
func (p *Policy) SetPosition(pos types.Position) { p.ast.Position = pos }

// Annotations returns the policy's annotations.
func (p *Policy) Annotations() types.Annotations {
	out := make(types.Annotations, len(p.ast.Annotations))
	for _, a := range p.ast.Annotations {
		out[a.Key] = a.Value
	}
	return out
}

// IsTemplate reports whether the policy has unfilled slots. Templates cannot
// be evaluated; they are linked into concrete policies first.
func (p *Policy) IsTemplate() bool { return p.ast.HasSlots() }

// Template returns the ID of the template this policy was linked from.
// Directly added policies report false.
func (p *Policy) Template() (types.PolicyID, bool) {
	return p.templateID, p.templateID != ""
}

// SlotEnv returns a copy of the slot assignment that linked this policy, or
// nil for a directly added policy.
func (p *Policy) SlotEnv() map[types.SlotID]types.EntityUID {
	return maps.Clone(p.slotEnv)
}

// AST returns the policy's syntax tree.
func (p *Policy) AST() *ast.Policy { return p.ast }
