package validate

import (
	"fmt"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// maxTypeDepth caps expression nesting during type checking, mirroring the
// evaluator's limit so adversarial policies fail cleanly in both places.
const maxTypeDepth = 256

// typeOfExpr infers the type of an expression under a request environment and
// a capability set. It returns the inferred type and the capabilities the
// expression establishes for whatever is conjoined after it.
func (v *Validator) typeOfExpr(env *requestEnv, expr ast.IsNode, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	if depth > maxTypeDepth {
		return nil, caps, fmt.Errorf("expression exceeds depth limit of %d", maxTypeDepth)
	}
	depth++

	switch n := expr.(type) {
	case ast.NodeValue:
		ty, err := v.typeOfValue(n.Value)
		return ty, caps, err

	case ast.NodeTypeVariable:
		return v.typeOfVariable(env, n.Name), caps, nil

	case ast.NodeTypeUnknown:
		return nil, caps, fmt.Errorf("cannot type check unknown `%s`", n.Name)

	case ast.NodeTypeAnd:
		return v.typeOfAnd(env, n, caps, depth)

	case ast.NodeTypeOr:
		return v.typeOfOr(env, n, caps, depth)

	case ast.NodeTypeNot:
		return v.typeOfNot(env, n, caps, depth)

	case ast.NodeTypeIfThenElse:
		return v.typeOfIfThenElse(env, n, caps, depth)

	case ast.NodeTypeEquals:
		return v.typeOfEquality(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeNotEquals:
		return v.typeOfEquality(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeLessThan:
		return v.typeOfComparison(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeLessThanOrEqual:
		return v.typeOfComparison(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeGreaterThan:
		return v.typeOfComparison(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeGreaterThanOrEqual:
		return v.typeOfComparison(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeAdd:
		return v.typeOfArith(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeSub:
		return v.typeOfArith(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeMult:
		return v.typeOfArith(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeNegate:
		return v.typeOfNegate(env, n, caps, depth)

	case ast.NodeTypeIn:
		return v.typeOfIn(env, n, caps, depth)

	case ast.NodeTypeContains:
		return v.typeOfContains(env, n, caps, depth)

	case ast.NodeTypeContainsAll:
		return v.typeOfContainsAllAny(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeContainsAny:
		return v.typeOfContainsAllAny(env, n.Left, n.Right, caps, depth)

	case ast.NodeTypeIsEmpty:
		return v.typeOfIsEmpty(env, n, caps, depth)

	case ast.NodeTypeLike:
		return v.typeOfLike(env, n, caps, depth)

	case ast.NodeTypeIs:
		return v.typeOfIs(env, n, caps, depth)

	case ast.NodeTypeIsIn:
		return v.typeOfIsIn(env, n, caps, depth)

	case ast.NodeTypeHas:
		return v.typeOfHas(env, n, caps, depth)

	case ast.NodeTypeAccess:
		return v.typeOfAccess(env, n, caps, depth)

	case ast.NodeTypeHasTag:
		return v.typeOfHasTag(env, n, caps, depth)

	case ast.NodeTypeGetTag:
		return v.typeOfGetTag(env, n, caps, depth)

	case ast.NodeTypeRecord:
		return v.typeOfRecord(env, n, caps, depth)

	case ast.NodeTypeSet:
		return v.typeOfSet(env, n, caps, depth)

	case ast.NodeTypeExtensionCall:
		return v.typeOfExtensionCall(env, n, caps, depth)

	default:
		return nil, caps, fmt.Errorf("unknown node type %T", expr)
	}
}

// typeOfValue infers the type of a literal. Entity UID literals must name a
// type the schema declares.
func (v *Validator) typeOfValue(val types.Value) (cedarType, error) {
	switch val := val.(type) {
	case types.Boolean:
		if val {
			return typeTrue{}, nil
		}
		return typeFalse{}, nil
	case types.Long:
		return typeLong{}, nil
	case types.String:
		return typeString{}, nil
	case types.EntityUID:
		return v.typeOfEntityUID(val)
	case types.Set:
		var elemType cedarType = typeNever{}
		for elem := range val.All() {
			et, err := v.typeOfValue(elem)
			if err != nil {
				return nil, err
			}
			lub, err := v.leastUpperBound(elemType, et)
			if err != nil {
				return typeSet{element: typeNever{}}, nil
			}
			elemType = lub
		}
		return typeSet{element: elemType}, nil
	case types.Record:
		attrs := make(map[types.String]attributeType)
		for k, av := range val.All() {
			vt, err := v.typeOfValue(av)
			if err != nil {
				return nil, err
			}
			attrs[k] = attributeType{typ: vt, required: true}
		}
		return typeRecord{attrs: attrs}, nil
	case types.IPAddr:
		return typeExtension{name: "ipaddr"}, nil
	case types.Decimal:
		return typeExtension{name: "decimal"}, nil
	default:
		return typeNever{}, nil
	}
}

// typeOfEntityUID checks the UID's type against the schema's entity, enum,
// and action declarations.
func (v *Validator) typeOfEntityUID(uid types.EntityUID) (cedarType, error) {
	et := uid.Type
	if v.schema.HasEntityType(et) {
		return typeEntity{lub: singleEntityLUB(et)}, nil
	}
	if et.IsAction() {
		if _, ok := v.schema.Actions[uid]; ok {
			return typeEntity{lub: singleEntityLUB(et)}, nil
		}
		for aUID := range v.schema.Actions {
			if aUID.Type == et {
				return typeEntity{lub: singleEntityLUB(et)}, nil
			}
		}
	}
	return nil, fmt.Errorf("entity type %q not found in schema", et)
}

func (v *Validator) typeOfVariable(env *requestEnv, name types.String) cedarType {
	switch name {
	case "principal":
		return typeEntity{lub: singleEntityLUB(env.principalType)}
	case "action":
		return typeEntity{lub: singleEntityLUB(env.actionUID.Type)}
	case "resource":
		return typeEntity{lub: singleEntityLUB(env.resourceType)}
	case "context":
		return env.contextType
	default:
		return typeNever{}
	}
}

func (v *Validator) typeOfAnd(env *requestEnv, n ast.NodeTypeAnd, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, lCaps, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(lt) {
		return nil, caps, fmt.Errorf("left operand of && must be boolean, got %T", lt)
	}

	// Short-circuit: false && _ is typeFalse. The dead right side still gets
	// its entity references checked.
	if _, ok := lt.(typeFalse); ok {
		if err := v.validateEntityRefs(n.Right); err != nil {
			return nil, caps, err
		}
		return typeFalse{}, caps, nil
	}

	// The right side runs only when the left is true, so it inherits the
	// left's capabilities.
	rt, rCaps, err := v.typeOfExpr(env, n.Right, caps.merge(lCaps), depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(rt) {
		return nil, caps, fmt.Errorf("right operand of && must be boolean, got %T", rt)
	}

	if _, ok := lt.(typeTrue); ok {
		return rt, rCaps, nil
	}
	if _, ok := rt.(typeFalse); ok {
		return typeFalse{}, rCaps, nil
	}

	return typeBool{}, rCaps, nil
}

func (v *Validator) typeOfOr(env *requestEnv, n ast.NodeTypeOr, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(lt) {
		return nil, caps, fmt.Errorf("left operand of || must be boolean, got %T", lt)
	}

	if _, ok := lt.(typeTrue); ok {
		if err := v.validateEntityRefs(n.Right); err != nil {
			return nil, caps, err
		}
		return typeTrue{}, caps, nil
	}

	// The right side runs only when the left is false, so the left's
	// capabilities do not carry over.
	rt, _, err := v.typeOfExpr(env, n.Right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(rt) {
		return nil, caps, fmt.Errorf("right operand of || must be boolean, got %T", rt)
	}

	return typeBool{}, caps, nil
}

func (v *Validator) typeOfNot(env *requestEnv, n ast.NodeTypeNot, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(t) {
		return nil, caps, fmt.Errorf("operand of ! must be boolean, got %T", t)
	}
	switch t.(type) {
	case typeTrue:
		return typeFalse{}, caps, nil
	case typeFalse:
		return typeTrue{}, caps, nil
	default:
		return typeBool{}, caps, nil
	}
}

func (v *Validator) typeOfIfThenElse(env *requestEnv, n ast.NodeTypeIfThenElse, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	condType, condCaps, err := v.typeOfExpr(env, n.If, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isBoolType(condType) {
		return nil, caps, fmt.Errorf("condition of if-then-else must be boolean, got %T", condType)
	}

	branchCaps := caps.merge(condCaps)

	// Constant condition: the dead branch still gets its entity references
	// checked, but not its types.
	if _, ok := condType.(typeFalse); ok {
		if err := v.validateEntityRefs(n.Then); err != nil {
			return nil, caps, err
		}
		return v.typeOfExpr(env, n.Else, branchCaps, depth)
	}
	if _, ok := condType.(typeTrue); ok {
		if err := v.validateEntityRefs(n.Else); err != nil {
			return nil, caps, err
		}
		return v.typeOfExpr(env, n.Then, branchCaps, depth)
	}

	thenType, _, err := v.typeOfExpr(env, n.Then, branchCaps, depth)
	if err != nil {
		return nil, caps, err
	}
	elseType, _, err := v.typeOfExpr(env, n.Else, caps, depth)
	if err != nil {
		return nil, caps, err
	}

	if err := v.checkStrictEntityLUB(thenType, elseType); err != nil {
		return nil, caps, fmt.Errorf("if-then-else branches have incompatible entity types")
	}
	result, err := v.leastUpperBound(thenType, elseType)
	if err != nil {
		return nil, caps, fmt.Errorf("if-then-else branches have incompatible types")
	}
	return result, caps, nil
}

func (v *Validator) typeOfEquality(env *requestEnv, left, right ast.IsNode, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	rt, _, err := v.typeOfExpr(env, right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, err := v.leastUpperBound(lt, rt); err != nil {
		return nil, caps, fmt.Errorf("equality comparison between incompatible types %T and %T", lt, rt)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfComparison(env *requestEnv, left, right ast.IsNode, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := lt.(typeLong); !ok {
		return nil, caps, fmt.Errorf("left operand of comparison must be Long, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := rt.(typeLong); !ok {
		return nil, caps, fmt.Errorf("right operand of comparison must be Long, got %T", rt)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfArith(env *requestEnv, left, right ast.IsNode, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := lt.(typeLong); !ok {
		return nil, caps, fmt.Errorf("left operand of arithmetic must be Long, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := rt.(typeLong); !ok {
		return nil, caps, fmt.Errorf("right operand of arithmetic must be Long, got %T", rt)
	}
	return typeLong{}, caps, nil
}

func (v *Validator) typeOfNegate(env *requestEnv, n ast.NodeTypeNegate, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := t.(typeLong); !ok {
		return nil, caps, fmt.Errorf("operand of negation must be Long, got %T", t)
	}
	return typeLong{}, caps, nil
}

func (v *Validator) typeOfIn(env *requestEnv, n ast.NodeTypeIn, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(lt) {
		return nil, caps, fmt.Errorf("left operand of 'in' must be entity, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, n.Right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityOrSetOfEntity(rt) {
		return nil, caps, fmt.Errorf("right operand of 'in' must be entity or set of entities, got %T", rt)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfContains(env *requestEnv, n ast.NodeTypeContains, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	st, ok := lt.(typeSet)
	if !ok {
		return nil, caps, fmt.Errorf("operand of contains must be Set, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, n.Right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, isNever := st.element.(typeNever); isNever {
		// An empty set literal can never contain anything.
		if _, argNever := rt.(typeNever); !argNever {
			return nil, caps, fmt.Errorf("contains: empty set can never contain element of type %T", rt)
		}
	} else {
		if _, err := v.leastUpperBound(st.element, rt); err != nil {
			return nil, caps, fmt.Errorf("contains: element type incompatible with set element type")
		}
		if err := v.checkStrictEntityLUB(st.element, rt); err != nil {
			return nil, caps, fmt.Errorf("contains: %w", err)
		}
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfContainsAllAny(env *requestEnv, left, right ast.IsNode, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := lt.(typeSet); !ok {
		return nil, caps, fmt.Errorf("left operand of containsAll/containsAny must be Set, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := rt.(typeSet); !ok {
		return nil, caps, fmt.Errorf("right operand of containsAll/containsAny must be Set, got %T", rt)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfIsEmpty(env *requestEnv, n ast.NodeTypeIsEmpty, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := t.(typeSet); !ok {
		return nil, caps, fmt.Errorf("operand of isEmpty must be Set, got %T", t)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfLike(env *requestEnv, n ast.NodeTypeLike, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := t.(typeString); !ok {
		return nil, caps, fmt.Errorf("operand of like must be String, got %T", t)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfIs(env *requestEnv, n ast.NodeTypeIs, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(t) {
		return nil, caps, fmt.Errorf("operand of is must be entity, got %T", t)
	}

	// A known LUB that excludes the tested type makes the test constant false.
	if et, ok := t.(typeEntity); ok {
		if !slices.Contains(et.lub.elements, n.EntityType) {
			return typeFalse{}, caps, nil
		}
	}

	return typeBool{}, caps, nil
}

func (v *Validator) typeOfIsIn(env *requestEnv, n ast.NodeTypeIsIn, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(lt) {
		return nil, caps, fmt.Errorf("left operand of is...in must be entity, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, n.Entity, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(rt) {
		return nil, caps, fmt.Errorf("right operand of is...in must be entity, got %T", rt)
	}
	return typeBool{}, caps, nil
}

func (v *Validator) typeOfHas(env *requestEnv, n ast.NodeTypeHas, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityOrRecordType(t) {
		return nil, caps, fmt.Errorf("operand of has must be entity or record, got %T", t)
	}

	resultType := v.hasResultType(t, n.Value)

	// A prior capability on the same access chain upgrades the check to
	// constant true.
	if _, isBool := resultType.(typeBool); isBool {
		if varName := exprVarName(n.Arg); varName != "" {
			if caps.has(capability{varName: varName, attr: n.Value}) {
				resultType = typeTrue{}
			}
		}
	}

	newCaps := caps
	if varName := exprVarName(n.Arg); varName != "" {
		newCaps = caps.add(capability{varName: varName, attr: n.Value})
	}

	return resultType, newCaps, nil
}

// hasResultType returns the precise bool type for a `has` check.
func (v *Validator) hasResultType(t cedarType, attr types.String) cedarType {
	switch tv := t.(type) {
	case typeRecord:
		a, ok := tv.attrs[attr]
		if !ok {
			return typeFalse{} // closed record, attr definitely absent
		}
		if a.required {
			return typeTrue{}
		}
		return typeBool{}
	case typeEntity:
		return v.hasResultTypeEntity(tv.lub, attr)
	default:
		return typeBool{}
	}
}

func (v *Validator) hasResultTypeEntity(lub entityLUB, attr types.String) cedarType {
	if len(lub.elements) == 0 {
		return typeBool{}
	}
	anyHas := false
	for _, et := range lub.elements {
		entity, ok := v.schema.Entities[et]
		if !ok {
			continue
		}
		if _, ok := entity.Shape[attr]; ok {
			anyHas = true
		}
	}
	if !anyHas {
		// Constant false only if every type in the LUB is declared and none
		// has the attribute.
		for _, et := range lub.elements {
			if !v.schema.HasEntityType(et) && !et.IsAction() {
				return typeBool{}
			}
		}
		return typeFalse{}
	}
	// Even a required attribute cannot upgrade to constant true: `has` on an
	// entity absent from the store is false at runtime.
	return typeBool{}
}

func (v *Validator) typeOfAccess(env *requestEnv, n ast.NodeTypeAccess, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	t, _, err := v.typeOfExpr(env, n.Arg, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityOrRecordType(t) {
		return nil, caps, fmt.Errorf("operand of attribute access must be entity or record, got %T", t)
	}

	attrType := v.lookupAttributeType(t, n.Value)
	if attrType == nil {
		if !v.mayHaveAttr(t, n.Value) {
			return nil, caps, fmt.Errorf("attribute %q not found on type", n.Value)
		}
		return typeNever{}, caps, nil
	}

	if !attrType.required {
		varName := exprVarName(n.Arg)
		if varName == "" || !caps.has(capability{varName: varName, attr: n.Value}) {
			return nil, caps, fmt.Errorf("attribute %q is optional and may not be present; use `has` to check first", n.Value)
		}
	}

	return attrType.typ, caps, nil
}

func (v *Validator) typeOfHasTag(env *requestEnv, n ast.NodeTypeHasTag, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(lt) {
		return nil, caps, fmt.Errorf("operand of hasTag must be entity, got %T", lt)
	}

	rt, _, err := v.typeOfExpr(env, n.Right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := rt.(typeString); !ok {
		return nil, caps, fmt.Errorf("hasTag key must be String, got %T", rt)
	}

	// A tagless entity type makes the test constant false, not an error.
	if et, ok := lt.(typeEntity); ok {
		if !v.entityHasTags(et.lub) {
			return typeFalse{}, caps, nil
		}
	}

	newCaps := caps
	if varName := exprVarName(n.Left); varName != "" {
		if tagKey := tagCapabilityKey(n.Right); tagKey != "" {
			newCaps = caps.add(capability{varName: varName, attr: "__tag:" + tagKey})
		}
	}

	return typeBool{}, newCaps, nil
}

func (v *Validator) typeOfGetTag(env *requestEnv, n ast.NodeTypeGetTag, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	lt, _, err := v.typeOfExpr(env, n.Left, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if !isEntityType(lt) {
		return nil, caps, fmt.Errorf("operand of getTag must be entity, got %T", lt)
	}
	rt, _, err := v.typeOfExpr(env, n.Right, caps, depth)
	if err != nil {
		return nil, caps, err
	}
	if _, ok := rt.(typeString); !ok {
		return nil, caps, fmt.Errorf("getTag key must be String, got %T", rt)
	}

	et, ok := lt.(typeEntity)
	if !ok {
		return typeNever{}, caps, nil
	}
	if !v.entityHasTags(et.lub) {
		return nil, caps, fmt.Errorf("entity type does not support tags")
	}

	varName := exprVarName(n.Left)
	tagKey := tagCapabilityKey(n.Right)
	if varName != "" && tagKey != "" {
		if !caps.has(capability{varName: varName, attr: "__tag:" + tagKey}) {
			return nil, caps, fmt.Errorf("tag access requires prior hasTag check")
		}
	}

	return v.entityTagType(et.lub), caps, nil
}

func (v *Validator) typeOfRecord(env *requestEnv, n ast.NodeTypeRecord, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	attrs := make(map[types.String]attributeType, len(n.Elements))
	for _, elem := range n.Elements {
		elemType, _, err := v.typeOfExpr(env, elem.Value, caps, depth)
		if err != nil {
			return nil, caps, err
		}
		attrs[elem.Key] = attributeType{typ: elemType, required: true}
	}
	return typeRecord{attrs: attrs}, caps, nil
}

func (v *Validator) typeOfSet(env *requestEnv, n ast.NodeTypeSet, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	var elemType cedarType = typeNever{}
	for _, elem := range n.Elements {
		et, _, err := v.typeOfExpr(env, elem, caps, depth)
		if err != nil {
			return nil, caps, err
		}
		if err := v.checkStrictEntityLUB(elemType, et); err != nil {
			return nil, caps, fmt.Errorf("set elements have incompatible entity types")
		}
		lub, err := v.leastUpperBound(elemType, et)
		if err != nil {
			return nil, caps, fmt.Errorf("set elements have incompatible types")
		}
		elemType = lub
	}
	return typeSet{element: elemType}, caps, nil
}

func (v *Validator) typeOfExtensionCall(env *requestEnv, n ast.NodeTypeExtensionCall, caps capabilitySet, depth int) (cedarType, capabilitySet, error) {
	sig, ok := extFuncTypes[n.Name]
	if !ok {
		return nil, caps, fmt.Errorf("unknown extension function %q", n.Name)
	}

	if len(n.Args) != len(sig.argTypes) {
		return nil, caps, fmt.Errorf("extension function %q expects %d arguments, got %d", n.Name, len(sig.argTypes), len(n.Args))
	}

	for i, arg := range n.Args {
		argType, _, err := v.typeOfExpr(env, arg, caps, depth)
		if err != nil {
			return nil, caps, err
		}
		if !v.isSubtype(argType, sig.argTypes[i]) {
			return nil, caps, fmt.Errorf("extension function %q argument %d: expected %T, got %T", n.Name, i, sig.argTypes[i], argType)
		}
	}

	return sig.returnType, caps, nil
}

func isBoolType(t cedarType) bool {
	switch t.(type) {
	case typeBool, typeTrue, typeFalse:
		return true
	}
	return false
}

func isEntityType(t cedarType) bool {
	switch t.(type) {
	case typeEntity, typeAnyEntity:
		return true
	}
	return false
}

func isEntityOrRecordType(t cedarType) bool {
	switch t.(type) {
	case typeEntity, typeAnyEntity, typeRecord:
		return true
	}
	return false
}

func isEntityOrSetOfEntity(t cedarType) bool {
	if isEntityType(t) {
		return true
	}
	if st, ok := t.(typeSet); ok {
		return isEntityType(st.element)
	}
	return false
}

// exprVarName extracts an identity string when the expression is a variable
// reference or a chain of accesses on one, for capability tracking.
func exprVarName(n ast.IsNode) types.String {
	switch v := n.(type) {
	case ast.NodeTypeVariable:
		return v.Name
	case ast.NodeTypeAccess:
		if parent := exprVarName(v.Arg); parent != "" {
			return parent + "." + v.Value
		}
	}
	return ""
}

// tagCapabilityKey extracts a literal key from a tag expression for
// capability tracking. Computed keys are not tracked.
func tagCapabilityKey(n ast.IsNode) types.String {
	if v, ok := n.(ast.NodeValue); ok {
		if s, ok := v.Value.(types.String); ok {
			return s
		}
	}
	return ""
}

// validateEntityRefs checks that every entity UID literal in a subtree names
// a schema-declared type. It runs on dead branches, where full type checking
// is skipped.
func (v *Validator) validateEntityRefs(n ast.IsNode) error {
	switch nd := n.(type) {
	case ast.NodeValue:
		return v.validateValueEntityRefs(nd.Value)
	case ast.NodeTypeVariable, ast.NodeTypeUnknown:
		return nil
	case ast.NodeTypeIfThenElse:
		if err := v.validateEntityRefs(nd.If); err != nil {
			return err
		}
		if err := v.validateEntityRefs(nd.Then); err != nil {
			return err
		}
		return v.validateEntityRefs(nd.Else)
	case ast.NodeTypeExtensionCall:
		for _, arg := range nd.Args {
			if err := v.validateEntityRefs(arg); err != nil {
				return err
			}
		}
	case ast.NodeTypeRecord:
		for _, elem := range nd.Elements {
			if err := v.validateEntityRefs(elem.Value); err != nil {
				return err
			}
		}
	case ast.NodeTypeSet:
		for _, elem := range nd.Elements {
			if err := v.validateEntityRefs(elem); err != nil {
				return err
			}
		}
	case ast.NodeTypeAnd:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeOr:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeEquals:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeNotEquals:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeLessThan:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeLessThanOrEqual:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeGreaterThan:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeGreaterThanOrEqual:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeAdd:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeSub:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeMult:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeIn:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeContains:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeContainsAll:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeContainsAny:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeHasTag:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeGetTag:
		return v.validateEntityRefsPair(nd.Left, nd.Right)
	case ast.NodeTypeNegate:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeNot:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeIsEmpty:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeHas:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeAccess:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeLike:
		return v.validateEntityRefs(nd.Arg)
	case ast.NodeTypeIs:
		return v.validateEntityRefs(nd.Left)
	case ast.NodeTypeIsIn:
		return v.validateEntityRefsPair(nd.Left, nd.Entity)
	}
	return nil
}

func (v *Validator) validateValueEntityRefs(val types.Value) error {
	switch val := val.(type) {
	case types.EntityUID:
		_, err := v.typeOfEntityUID(val)
		return err
	case types.Set:
		for elem := range val.All() {
			if err := v.validateValueEntityRefs(elem); err != nil {
				return err
			}
		}
	case types.Record:
		for _, elem := range val.All() {
			if err := v.validateValueEntityRefs(elem); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *Validator) validateEntityRefsPair(a, b ast.IsNode) error {
	if err := v.validateEntityRefs(a); err != nil {
		return err
	}
	return v.validateEntityRefs(b)
}
