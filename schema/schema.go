// Package schema defines the typed schema model the validator consumes. It
// is the output contract of schema loading; this module does not parse schema
// source syntax.
package schema

import (
	"fmt"

	"github.com/strongdm/gavel/types"
)

// A Schema declares the entity types, enumerated entity types, and actions a
// policy set may reference, with their shapes and hierarchy constraints.
type Schema struct {
	Entities map[types.EntityType]Entity
	Enums    map[types.EntityType]Enum
	Actions  map[types.EntityUID]Action
}

// An Entity declares the attribute shape, allowed parent types, and tag type
// of an entity type. A nil Tags means the type does not support tags.
type Entity struct {
	ParentTypes []types.EntityType
	Shape       RecordType
	Tags        IsType
}

// An Enum declares an entity type with a fixed set of allowed UIDs and no
// attributes, parents, or tags.
type Enum struct {
	Values []types.EntityUID
}

// An Action declares which principal and resource types an action applies to,
// the context shape it requires, and its action-group parents.
type Action struct {
	Parents   []types.EntityUID
	AppliesTo *AppliesTo
}

// AppliesTo pairs the principal and resource types an action accepts with the
// context record it requires.
type AppliesTo struct {
	Principals []types.EntityType
	Resources  []types.EntityType
	Context    RecordType
}

// IsType is implemented by every schema type variant.
type IsType interface {
	isSchemaType()
}

// The primitive schema types.
type (
	BoolType   struct{}
	LongType   struct{}
	StringType struct{}
)

func (BoolType) isSchemaType()   {}
func (LongType) isSchemaType()   {}
func (StringType) isSchemaType() {}

// An EntityType is a reference to a declared entity type.
type EntityType types.EntityType

func (EntityType) isSchemaType() {}

// A SetType is a homogeneous set of the element type.
type SetType struct {
	Element IsType
}

func (SetType) isSchemaType() {}

// An Attribute pairs a type with whether the attribute may be absent.
type Attribute struct {
	Type     IsType
	Optional bool
}

// A RecordType maps attribute names to their declarations. Records are
// closed: attributes not named here are invalid.
type RecordType map[types.String]Attribute

func (RecordType) isSchemaType() {}

// An ExtensionType names an extension value type, e.g. `ipaddr`.
type ExtensionType types.Ident

func (ExtensionType) isSchemaType() {}

// Check verifies the schema's internal references: parent types, applies-to
// types, action parents, and attribute entity references must all be
// declared. This is fail-fast at construction, before any validation begins.
func (s *Schema) Check() error {
	for et, e := range s.Entities {
		for _, pt := range e.ParentTypes {
			if !s.HasEntityType(pt) {
				return fmt.Errorf("entity type %q: undeclared parent type %q", et, pt)
			}
		}
		if err := s.checkType(e.Shape); err != nil {
			return fmt.Errorf("entity type %q: %w", et, err)
		}
		if e.Tags != nil {
			if err := s.checkType(e.Tags); err != nil {
				return fmt.Errorf("entity type %q tags: %w", et, err)
			}
		}
	}
	for uid, a := range s.Actions {
		for _, p := range a.Parents {
			if _, ok := s.Actions[p]; !ok {
				return fmt.Errorf("action %s: undeclared parent action %s", uid, p)
			}
		}
		if a.AppliesTo == nil {
			continue
		}
		for _, pt := range a.AppliesTo.Principals {
			if !s.HasEntityType(pt) {
				return fmt.Errorf("action %s: undeclared principal type %q", uid, pt)
			}
		}
		for _, rt := range a.AppliesTo.Resources {
			if !s.HasEntityType(rt) {
				return fmt.Errorf("action %s: undeclared resource type %q", uid, rt)
			}
		}
		if err := s.checkType(a.AppliesTo.Context); err != nil {
			return fmt.Errorf("action %s context: %w", uid, err)
		}
	}
	return nil
}

// HasEntityType returns true if the type is declared as an entity or enum
// type.
func (s *Schema) HasEntityType(et types.EntityType) bool {
	if _, ok := s.Entities[et]; ok {
		return true
	}
	_, ok := s.Enums[et]
	return ok
}

func (s *Schema) checkType(t IsType) error {
	switch t := t.(type) {
	case EntityType:
		if !s.HasEntityType(types.EntityType(t)) {
			return fmt.Errorf("undeclared entity type %q", t)
		}
	case SetType:
		return s.checkType(t.Element)
	case RecordType:
		for name, attr := range t {
			if err := s.checkType(attr.Type); err != nil {
				return fmt.Errorf("attribute %q: %w", name, err)
			}
		}
	}
	return nil
}
