package ast

import "github.com/strongdm/gavel/types"

// An EntityReference is either a concrete EntityUID or a template slot.
type EntityReference interface {
	isEntityReference()
}

// EntityUIDReference refers to a concrete entity.
type EntityUIDReference struct {
	UID types.EntityUID
}

func (EntityUIDReference) isEntityReference() {}

// SlotReference refers to a template slot to be filled at link time.
type SlotReference struct {
	Slot types.SlotID
}

func (SlotReference) isEntityReference() {}

// UIDRef wraps a concrete EntityUID as an EntityReference.
func UIDRef(uid types.EntityUID) EntityReference { return EntityUIDReference{UID: uid} }

// IsScopeNode is implemented by every scope constraint variant.
type IsScopeNode interface {
	isScope()
}

// IsPrincipalScopeNode is a scope variant legal in principal position.
type IsPrincipalScopeNode interface {
	IsScopeNode
	isPrincipalScope()
}

// IsActionScopeNode is a scope variant legal in action position.
type IsActionScopeNode interface {
	IsScopeNode
	isActionScope()
}

// IsResourceScopeNode is a scope variant legal in resource position.
type IsResourceScopeNode interface {
	IsScopeNode
	isResourceScope()
}

// ScopeNode is embedded by every scope variant.
type ScopeNode struct{}

func (ScopeNode) isScope() {}

// ScopeTypeAll matches any entity (principal, action, or resource).
type ScopeTypeAll struct {
	ScopeNode
}

func (ScopeTypeAll) isPrincipalScope() {}
func (ScopeTypeAll) isActionScope()    {}
func (ScopeTypeAll) isResourceScope()  {}

// ScopeTypeEq matches the exact entity.
type ScopeTypeEq struct {
	ScopeNode
	Entity EntityReference
}

func (ScopeTypeEq) isPrincipalScope() {}
func (ScopeTypeEq) isResourceScope()  {}

// ScopeTypeIn matches any entity in the hierarchy of the given entity.
type ScopeTypeIn struct {
	ScopeNode
	Entity EntityReference
}

func (ScopeTypeIn) isPrincipalScope() {}
func (ScopeTypeIn) isResourceScope()  {}

// ScopeTypeIs matches any entity of the given type.
type ScopeTypeIs struct {
	ScopeNode
	Type types.EntityType
}

func (ScopeTypeIs) isPrincipalScope() {}
func (ScopeTypeIs) isResourceScope()  {}

// ScopeTypeIsIn matches any entity of the given type in the hierarchy of the
// given entity.
type ScopeTypeIsIn struct {
	ScopeNode
	Type   types.EntityType
	Entity EntityReference
}

func (ScopeTypeIsIn) isPrincipalScope() {}
func (ScopeTypeIsIn) isResourceScope()  {}

// ScopeTypeActionEq matches the exact action.
type ScopeTypeActionEq struct {
	ScopeNode
	Entity types.EntityUID
}

func (ScopeTypeActionEq) isActionScope() {}

// ScopeTypeActionIn matches any action in the group of the given action.
type ScopeTypeActionIn struct {
	ScopeNode
	Entity types.EntityUID
}

func (ScopeTypeActionIn) isActionScope() {}

// ScopeTypeActionInSet matches any action in any of the given action groups.
type ScopeTypeActionInSet struct {
	ScopeNode
	Entities []types.EntityUID
}

func (ScopeTypeActionInSet) isActionScope() {}
