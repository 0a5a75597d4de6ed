package gavel

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// A PolicySet is a collection of concrete policies and templates, each with a
// unique ID. Concrete policies participate in authorization; templates only
// participate once linked.
type PolicySet struct {
	policies  map[types.PolicyID]*Policy
	templates map[types.PolicyID]*Policy
}

// NewPolicySet returns an empty PolicySet.
func NewPolicySet() *PolicySet {
	return &PolicySet{
		policies:  map[types.PolicyID]*Policy{},
		templates: map[types.PolicyID]*Policy{},
	}
}

// Add inserts a concrete policy. Templates are rejected; use AddTemplate.
func (ps *PolicySet) Add(id types.PolicyID, p *Policy) error {
	if p.IsTemplate() {
		return fmt.Errorf("policy `%s` has unfilled slots; use AddTemplate", id)
	}
	if _, ok := ps.policies[id]; ok {
		return fmt.Errorf("policy `%s` already exists", id)
	}
	ps.policies[id] = p
	return nil
}

// AddTemplate inserts a template. Policies without slots are rejected.
func (ps *PolicySet) AddTemplate(id types.PolicyID, p *Policy) error {
	if !p.IsTemplate() {
		return fmt.Errorf("policy `%s` has no slots; use Add", id)
	}
	if _, ok := ps.templates[id]; ok {
		return fmt.Errorf("template `%s` already exists", id)
	}
	ps.templates[id] = p
	return nil
}

// Get returns the concrete policy with the given ID.
func (ps *PolicySet) Get(id types.PolicyID) (*Policy, bool) {
	p, ok := ps.policies[id]
	return p, ok
}

// GetTemplate returns the template with the given ID.
func (ps *PolicySet) GetTemplate(id types.PolicyID) (*Policy, bool) {
	p, ok := ps.templates[id]
	return p, ok
}

// Remove deletes the concrete policy with the given ID, if present.
func (ps *PolicySet) Remove(id types.PolicyID) {
	delete(ps.policies, id)
}

// All iterates the concrete policies in ID order.
func (ps *PolicySet) All() iter.Seq2[types.PolicyID, *Policy] {
	return func(yield func(types.PolicyID, *Policy) bool) {
		for _, id := range slices.Sorted(maps.Keys(ps.policies)) {
			if !yield(id, ps.policies[id]) {
				return
			}
		}
	}
}

// Len returns the number of concrete policies.
func (ps *PolicySet) Len() int { return len(ps.policies) }

// astMap exposes the concrete policies' syntax trees, keyed by ID.
func (ps *PolicySet) astMap() map[types.PolicyID]*ast.Policy {
	out := make(map[types.PolicyID]*ast.Policy, len(ps.policies))
	for id, p := range ps.policies {
		out[id] = p.ast
	}
	return out
}

// LinkTemplate instantiates a template by filling its slots with concrete
// entities and adds the result as the concrete policy linkID. The slot
// assignment must cover exactly the slots the template declares: ?principal
// fills the principal scope and ?resource fills the resource scope.
func (ps *PolicySet) LinkTemplate(templateID, linkID types.PolicyID, slots map[types.SlotID]types.EntityUID) error {
	tmpl, ok := ps.templates[templateID]
	if !ok {
		return fmt.Errorf("template `%s` does not exist", templateID)
	}
	if _, ok := ps.policies[linkID]; ok {
		return fmt.Errorf("policy `%s` already exists", linkID)
	}

	linked := *tmpl.ast

	for slot := range slots {
		if slot != types.PrincipalSlot && slot != types.ResourceSlot {
			return fmt.Errorf("unknown slot `%s`", slot)
		}
	}

	if uid, ok := slots[types.PrincipalSlot]; ok {
		scope, err := fillScope(linked.Principal, types.PrincipalSlot, uid)
		if err != nil {
			return err
		}
		linked.Principal = scope.(ast.IsPrincipalScopeNode)
	}
	if uid, ok := slots[types.ResourceSlot]; ok {
		scope, err := fillScope(linked.Resource, types.ResourceSlot, uid)
		if err != nil {
			return err
		}
		linked.Resource = scope.(ast.IsResourceScopeNode)
	}

	if linked.HasSlots() {
		return fmt.Errorf("template `%s`: not all slots filled", templateID)
	}

	ps.policies[linkID] = &Policy{
		ast:        &linked,
		templateID: templateID,
		slotEnv:    maps.Clone(slots),
	}
	return nil
}

// TemplateLinks returns the IDs of the policies linked from the given
// template, in ID order.
func (ps *PolicySet) TemplateLinks(templateID types.PolicyID) []types.PolicyID {
	if templateID == "" {
		return nil
	}
	var out []types.PolicyID
	for _, id := range slices.Sorted(maps.Keys(ps.policies)) {
		if ps.policies[id].templateID == templateID {
			out = append(out, id)
		}
	}
	return out
}

// fillScope substitutes a slot reference in one scope constraint.
func fillScope(scope ast.IsScopeNode, slot types.SlotID, uid types.EntityUID) (ast.IsScopeNode, error) {
	replace := func(ref ast.EntityReference) (ast.EntityReference, error) {
		sr, ok := ref.(ast.SlotReference)
		if !ok || sr.Slot != slot {
			return nil, fmt.Errorf("template does not declare slot `%s`", slot)
		}
		return ast.UIDRef(uid), nil
	}
	switch sc := scope.(type) {
	case ast.ScopeTypeEq:
		ref, err := replace(sc.Entity)
		if err != nil {
			return nil, err
		}
		sc.Entity = ref
		return sc, nil
	case ast.ScopeTypeIn:
		ref, err := replace(sc.Entity)
		if err != nil {
			return nil, err
		}
		sc.Entity = ref
		return sc, nil
	case ast.ScopeTypeIsIn:
		ref, err := replace(sc.Entity)
		if err != nil {
			return nil, err
		}
		sc.Entity = ref
		return sc, nil
	default:
		return nil, fmt.Errorf("template does not declare slot `%s`", slot)
	}
}
