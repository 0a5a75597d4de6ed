package validate

import (
	"fmt"
	"slices"

	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

// cedarType is the sum type the checker infers over expressions. It is richer
// than the schema type language: booleans carry singleton true/false variants
// so short-circuit and dead-branch analysis stay precise, and entity types
// carry least-upper-bound sets.
type cedarType interface {
	isCedarType()
}

type typeNever struct{}                  // bottom type, subtype of all
type typeTrue struct{}                   // singleton bool true
type typeFalse struct{}                  // singleton bool false
type typeBool struct{}                   // Bool primitive
type typeLong struct{}                   // Long primitive
type typeString struct{}                 // String primitive
type typeSet struct{ element cedarType } // Set with element type
type typeRecord struct {                 // Record with attribute types
	attrs map[types.String]attributeType
}
type typeEntity struct{ lub entityLUB }       // Entity with LUB of types
type typeAnyEntity struct{}                   // Entity of statically unknown type
type typeExtension struct{ name types.Ident } // Extension type (ipaddr, decimal)

func (typeNever) isCedarType()     {}
func (typeTrue) isCedarType()      {}
func (typeFalse) isCedarType()     {}
func (typeBool) isCedarType()      {}
func (typeLong) isCedarType()      {}
func (typeString) isCedarType()    {}
func (typeSet) isCedarType()       {}
func (typeRecord) isCedarType()    {}
func (typeEntity) isCedarType()    {}
func (typeAnyEntity) isCedarType() {}
func (typeExtension) isCedarType() {}

type attributeType struct {
	typ      cedarType
	required bool
}

// entityLUB represents the least upper bound of a set of entity types.
type entityLUB struct {
	elements []types.EntityType // sorted, unique
}

func singleEntityLUB(et types.EntityType) entityLUB {
	return entityLUB{elements: []types.EntityType{et}}
}

// isSubtype returns true if a is a subtype of b. Strict mode requires entity
// LUBs to match exactly; permissive mode allows widening to a superset.
func (v *Validator) isSubtype(a, b cedarType) bool {
	if _, ok := a.(typeNever); ok {
		return true
	}
	switch bv := b.(type) {
	case typeNever:
		return false
	case typeTrue:
		_, ok := a.(typeTrue)
		return ok
	case typeFalse:
		_, ok := a.(typeFalse)
		return ok
	case typeBool:
		return isBoolType(a)
	case typeLong:
		_, ok := a.(typeLong)
		return ok
	case typeString:
		_, ok := a.(typeString)
		return ok
	case typeSet:
		av, ok := a.(typeSet)
		if !ok {
			return false
		}
		return v.isSubtype(av.element, bv.element)
	case typeRecord:
		av, ok := a.(typeRecord)
		if !ok {
			return false
		}
		return v.isSubtypeRecord(av, bv)
	case typeEntity:
		av, ok := a.(typeEntity)
		if !ok {
			return false
		}
		if v.strict {
			return equalLUB(av.lub, bv.lub)
		}
		return isSubsetLUB(av.lub, bv.lub)
	case typeAnyEntity:
		if v.strict {
			_, ok := a.(typeAnyEntity)
			return ok
		}
		return isEntityType(a)
	case typeExtension:
		av, ok := a.(typeExtension)
		if !ok {
			return false
		}
		return av.name == bv.name
	}
	return false
}

func (v *Validator) isSubtypeRecord(a, b typeRecord) bool {
	// Strict mode rejects width subtyping: a may not carry attributes b does
	// not declare.
	if v.strict {
		for k := range a.attrs {
			if _, ok := b.attrs[k]; !ok {
				return false
			}
		}
	}
	for k, bAttr := range b.attrs {
		aAttr, ok := a.attrs[k]
		if !ok {
			if bAttr.required {
				return false
			}
			continue
		}
		if !v.isSubtype(aAttr.typ, bAttr.typ) {
			return false
		}
		if v.strict {
			if aAttr.required != bAttr.required {
				return false
			}
		} else if bAttr.required && !aAttr.required {
			return false
		}
	}
	return true
}

func equalLUB(a, b entityLUB) bool {
	return slices.Equal(a.elements, b.elements)
}

func isSubsetLUB(a, b entityLUB) bool {
	for _, ae := range a.elements {
		if !slices.Contains(b.elements, ae) {
			return false
		}
	}
	return true
}

// leastUpperBound computes the LUB of two types, or fails if none exists.
func (v *Validator) leastUpperBound(a, b cedarType) (cedarType, error) {
	if _, ok := a.(typeNever); ok {
		return b, nil
	}
	if _, ok := b.(typeNever); ok {
		return a, nil
	}

	switch av := a.(type) {
	case typeTrue:
		switch b.(type) {
		case typeTrue:
			return typeTrue{}, nil
		case typeFalse, typeBool:
			return typeBool{}, nil
		}
	case typeFalse:
		switch b.(type) {
		case typeFalse:
			return typeFalse{}, nil
		case typeTrue, typeBool:
			return typeBool{}, nil
		}
	case typeBool:
		if isBoolType(b) {
			return typeBool{}, nil
		}
	case typeLong:
		if _, ok := b.(typeLong); ok {
			return typeLong{}, nil
		}
	case typeString:
		if _, ok := b.(typeString); ok {
			return typeString{}, nil
		}
	case typeSet:
		if bv, ok := b.(typeSet); ok {
			elem, err := v.leastUpperBound(av.element, bv.element)
			if err != nil {
				return nil, err
			}
			return typeSet{element: elem}, nil
		}
	case typeRecord:
		if bv, ok := b.(typeRecord); ok {
			return v.lubRecord(av, bv)
		}
	case typeEntity:
		switch bv := b.(type) {
		case typeEntity:
			return typeEntity{lub: unionLUB(av.lub, bv.lub)}, nil
		case typeAnyEntity:
			return typeAnyEntity{}, nil
		}
	case typeAnyEntity:
		if isEntityType(b) {
			return typeAnyEntity{}, nil
		}
	case typeExtension:
		if bv, ok := b.(typeExtension); ok && av.name == bv.name {
			return av, nil
		}
	}

	return nil, fmt.Errorf("incompatible types for least upper bound")
}

func (v *Validator) lubRecord(a, b typeRecord) (cedarType, error) {
	attrs := make(map[types.String]attributeType)
	for k, aAttr := range a.attrs {
		bAttr, ok := b.attrs[k]
		if !ok {
			if v.strict {
				return nil, fmt.Errorf("incompatible record types for least upper bound")
			}
			attrs[k] = attributeType{typ: aAttr.typ, required: false}
			continue
		}
		lub, err := v.leastUpperBound(aAttr.typ, bAttr.typ)
		if err != nil {
			return nil, err
		}
		if v.strict && aAttr.required != bAttr.required {
			return nil, fmt.Errorf("incompatible record types for least upper bound")
		}
		attrs[k] = attributeType{
			typ:      lub,
			required: aAttr.required && bAttr.required,
		}
	}
	for k, bAttr := range b.attrs {
		if _, ok := a.attrs[k]; !ok {
			if v.strict {
				return nil, fmt.Errorf("incompatible record types for least upper bound")
			}
			attrs[k] = attributeType{typ: bAttr.typ, required: false}
		}
	}
	return typeRecord{attrs: attrs}, nil
}

func unionLUB(a, b entityLUB) entityLUB {
	combined := append(slices.Clone(a.elements), b.elements...)
	slices.Sort(combined)
	combined = slices.Compact(combined)
	return entityLUB{elements: combined}
}

// schemaTypeToCedarType converts a schema type to a cedarType.
func schemaTypeToCedarType(t schema.IsType) cedarType {
	switch t := t.(type) {
	case schema.StringType:
		return typeString{}
	case schema.LongType:
		return typeLong{}
	case schema.BoolType:
		return typeBool{}
	case schema.ExtensionType:
		return typeExtension{name: types.Ident(t)}
	case schema.SetType:
		return typeSet{element: schemaTypeToCedarType(t.Element)}
	case schema.RecordType:
		return schemaRecordToCedarType(t)
	case schema.EntityType:
		return typeEntity{lub: singleEntityLUB(types.EntityType(t))}
	default:
		return typeNever{}
	}
}

func schemaRecordToCedarType(rec schema.RecordType) typeRecord {
	attrs := make(map[types.String]attributeType, len(rec))
	for name, attr := range rec {
		attrs[name] = attributeType{
			typ:      schemaTypeToCedarType(attr.Type),
			required: !attr.Optional,
		}
	}
	return typeRecord{attrs: attrs}
}

// lookupAttributeType looks up an attribute on a type using schema
// information.
func (v *Validator) lookupAttributeType(ty cedarType, attr types.String) *attributeType {
	switch tv := ty.(type) {
	case typeRecord:
		if a, ok := tv.attrs[attr]; ok {
			return &a
		}
		return nil
	case typeEntity:
		return v.lookupEntityAttr(tv.lub, attr)
	default:
		return nil
	}
}

func (v *Validator) lookupEntityAttr(lub entityLUB, attr types.String) *attributeType {
	if len(lub.elements) == 0 {
		return nil
	}
	var result *attributeType
	for _, et := range lub.elements {
		entity, ok := v.schema.Entities[et]
		if !ok {
			return nil
		}
		schemaAttr, ok := entity.Shape[attr]
		if !ok {
			return nil
		}
		at := &attributeType{
			typ:      schemaTypeToCedarType(schemaAttr.Type),
			required: !schemaAttr.Optional,
		}
		if result == nil {
			result = at
			continue
		}
		lubType, err := v.leastUpperBound(result.typ, at.typ)
		if err != nil {
			return nil
		}
		result = &attributeType{
			typ:      lubType,
			required: result.required && at.required,
		}
	}
	return result
}

// mayHaveAttr returns true if the type might have the given attribute.
func (v *Validator) mayHaveAttr(ty cedarType, attr types.String) bool {
	switch tv := ty.(type) {
	case typeRecord:
		_, ok := tv.attrs[attr]
		return ok
	case typeEntity:
		for _, et := range tv.lub.elements {
			entity, ok := v.schema.Entities[et]
			if !ok {
				continue
			}
			if _, ok := entity.Shape[attr]; ok {
				return true
			}
		}
		return false
	case typeAnyEntity:
		return true
	default:
		return false
	}
}

// entityHasTags returns true if every entity type in the LUB declares tags.
func (v *Validator) entityHasTags(lub entityLUB) bool {
	if len(lub.elements) == 0 {
		return false
	}
	for _, et := range lub.elements {
		entity, ok := v.schema.Entities[et]
		if !ok || entity.Tags == nil {
			return false
		}
	}
	return true
}

// entityTagType returns the LUB of the tag types across the entity LUB.
func (v *Validator) entityTagType(lub entityLUB) cedarType {
	var result cedarType = typeNever{}
	if len(lub.elements) == 0 {
		return result
	}
	for _, et := range lub.elements {
		entity, ok := v.schema.Entities[et]
		if !ok || entity.Tags == nil {
			return typeNever{}
		}
		tagLUB, err := v.leastUpperBound(result, schemaTypeToCedarType(entity.Tags))
		if err != nil {
			return typeNever{}
		}
		result = tagLUB
	}
	return result
}

// checkStrictEntityLUB rejects combining unrelated entity types in strict
// mode; permissive mode widens instead.
func (v *Validator) checkStrictEntityLUB(a, b cedarType) error {
	if !v.strict {
		return nil
	}
	ae, aOk := a.(typeEntity)
	be, bOk := b.(typeEntity)
	if !aOk || !bOk {
		return nil
	}
	if !v.entityLUBsRelated(ae.lub, be.lub) {
		return fmt.Errorf("entity types are incompatible in strict mode")
	}
	return nil
}

// entityLUBsRelated returns true if any entity type in LUB a is related to
// any entity type in LUB b: the same type, or an ancestor/descendant.
func (v *Validator) entityLUBsRelated(a, b entityLUB) bool {
	for _, at := range a.elements {
		for _, bt := range b.elements {
			if at == bt {
				return true
			}
			if v.isEntityDescendant(at, bt, nil) || v.isEntityDescendant(bt, at, nil) {
				return true
			}
		}
	}
	return false
}

// isEntityDescendant returns true if childType lists ancestorType, directly
// or transitively, in its ParentTypes. The seen set guards against cyclic
// parent declarations.
func (v *Validator) isEntityDescendant(childType, ancestorType types.EntityType, seen map[types.EntityType]bool) bool {
	if seen[childType] {
		return false
	}
	entity, ok := v.schema.Entities[childType]
	if !ok {
		return false
	}
	if seen == nil {
		seen = map[types.EntityType]bool{}
	}
	seen[childType] = true
	for _, parent := range entity.ParentTypes {
		if parent == ancestorType {
			return true
		}
		if v.isEntityDescendant(parent, ancestorType, seen) {
			return true
		}
	}
	return false
}
