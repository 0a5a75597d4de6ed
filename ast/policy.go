package ast

import "github.com/strongdm/gavel/types"

// AnnotationType is one key-value annotation attached to a policy.
type AnnotationType struct {
	Key   types.Ident
	Value types.String
}

// ConditionEnum distinguishes `when` from `unless` conditions.
type ConditionEnum bool

const (
	ConditionWhen   = ConditionEnum(true)
	ConditionUnless = ConditionEnum(false)
)

// ConditionType is one `when` or `unless` clause of a policy.
type ConditionType struct {
	Condition ConditionEnum
	Body      IsNode
}

// A Policy is the abstract syntax of a single permit or forbid rule: an
// effect, one scope constraint each for principal, action, and resource, and
// zero or more conditions. A Policy whose principal or resource scope names a
// slot is a template.
type Policy struct {
	Effect      types.Effect
	Annotations []AnnotationType
	Position    types.Position
	Principal   IsPrincipalScopeNode
	Action      IsActionScopeNode
	Resource    IsResourceScopeNode
	Conditions  []ConditionType
}

func newPolicy(effect types.Effect) *Policy {
	return &Policy{
		Effect:    effect,
		Principal: ScopeTypeAll{},
		Action:    ScopeTypeAll{},
		Resource:  ScopeTypeAll{},
	}
}

// Permit returns a policy with the Permit effect and unconstrained scopes.
func Permit() *Policy { return newPolicy(types.Permit) }

// Forbid returns a policy with the Forbid effect and unconstrained scopes.
func Forbid() *Policy { return newPolicy(types.Forbid) }

// Annotate appends an annotation to the policy.
func (p *Policy) Annotate(key types.Ident, value types.String) *Policy {
	p.Annotations = append(p.Annotations, AnnotationType{Key: key, Value: value})
	return p
}

// When appends a `when` condition; the policy matches only if body evaluates
// to true.
func (p *Policy) When(body Node) *Policy {
	p.Conditions = append(p.Conditions, ConditionType{Condition: ConditionWhen, Body: body.v})
	return p
}

// Unless appends an `unless` condition; the policy matches only if body
// evaluates to false.
func (p *Policy) Unless(body Node) *Policy {
	p.Conditions = append(p.Conditions, ConditionType{Condition: ConditionUnless, Body: body.v})
	return p
}

// HasSlots returns true if the policy is a template, i.e. any scope names a
// slot.
func (p *Policy) HasSlots() bool {
	return scopeSlot(p.Principal) != "" || scopeSlot(p.Resource) != ""
}

func scopeSlot(s IsScopeNode) types.SlotID {
	var ref EntityReference
	switch sc := s.(type) {
	case ScopeTypeEq:
		ref = sc.Entity
	case ScopeTypeIn:
		ref = sc.Entity
	case ScopeTypeIsIn:
		ref = sc.Entity
	default:
		return ""
	}
	if slot, ok := ref.(SlotReference); ok {
		return slot.Slot
	}
	return ""
}

func (p *Policy) PrincipalEq(entity types.EntityUID) *Policy {
	p.Principal = ScopeTypeEq{Entity: UIDRef(entity)}
	return p
}

func (p *Policy) PrincipalIn(entity types.EntityUID) *Policy {
	p.Principal = ScopeTypeIn{Entity: UIDRef(entity)}
	return p
}

func (p *Policy) PrincipalIs(entityType types.EntityType) *Policy {
	p.Principal = ScopeTypeIs{Type: entityType}
	return p
}

func (p *Policy) PrincipalIsIn(entityType types.EntityType, entity types.EntityUID) *Policy {
	p.Principal = ScopeTypeIsIn{Type: entityType, Entity: UIDRef(entity)}
	return p
}

// PrincipalEqSlot makes the policy a template whose principal is filled at
// link time.
func (p *Policy) PrincipalEqSlot() *Policy {
	p.Principal = ScopeTypeEq{Entity: SlotReference{Slot: types.PrincipalSlot}}
	return p
}

// PrincipalInSlot makes the policy a template whose principal hierarchy
// constraint is filled at link time.
func (p *Policy) PrincipalInSlot() *Policy {
	p.Principal = ScopeTypeIn{Entity: SlotReference{Slot: types.PrincipalSlot}}
	return p
}

func (p *Policy) PrincipalIsInSlot(entityType types.EntityType) *Policy {
	p.Principal = ScopeTypeIsIn{Type: entityType, Entity: SlotReference{Slot: types.PrincipalSlot}}
	return p
}

func (p *Policy) ActionEq(entity types.EntityUID) *Policy {
	p.Action = ScopeTypeActionEq{Entity: entity}
	return p
}

func (p *Policy) ActionIn(entity types.EntityUID) *Policy {
	p.Action = ScopeTypeActionIn{Entity: entity}
	return p
}

func (p *Policy) ActionInSet(entities ...types.EntityUID) *Policy {
	p.Action = ScopeTypeActionInSet{Entities: entities}
	return p
}

func (p *Policy) ResourceEq(entity types.EntityUID) *Policy {
	p.Resource = ScopeTypeEq{Entity: UIDRef(entity)}
	return p
}

func (p *Policy) ResourceIn(entity types.EntityUID) *Policy {
	p.Resource = ScopeTypeIn{Entity: UIDRef(entity)}
	return p
}

func (p *Policy) ResourceIs(entityType types.EntityType) *Policy {
	p.Resource = ScopeTypeIs{Type: entityType}
	return p
}

func (p *Policy) ResourceIsIn(entityType types.EntityType, entity types.EntityUID) *Policy {
	p.Resource = ScopeTypeIsIn{Type: entityType, Entity: UIDRef(entity)}
	return p
}

// ResourceEqSlot makes the policy a template whose resource is filled at link
// time.
func (p *Policy) ResourceEqSlot() *Policy {
	p.Resource = ScopeTypeEq{Entity: SlotReference{Slot: types.ResourceSlot}}
	return p
}

// ResourceInSlot makes the policy a template whose resource hierarchy
// constraint is filled at link time.
func (p *Policy) ResourceInSlot() *Policy {
	p.Resource = ScopeTypeIn{Entity: SlotReference{Slot: types.ResourceSlot}}
	return p
}

func (p *Policy) ResourceIsInSlot(entityType types.EntityType) *Policy {
	p.Resource = ScopeTypeIsIn{Type: entityType, Entity: SlotReference{Slot: types.ResourceSlot}}
	return p
}
