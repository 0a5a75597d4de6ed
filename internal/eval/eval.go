// Package eval implements concrete and partial evaluation of policy
// expressions. Evaluation is pure: it reads the request environment and the
// entity store and performs no I/O and no mutation.
package eval

import (
	"fmt"
	"math"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/extensions"
	"github.com/strongdm/gavel/internal/mapset"
	"github.com/strongdm/gavel/types"
)

// maxDepth caps expression nesting. The limit is enforced with an explicit
// counter rather than the goroutine stack so that adversarial inputs fail
// with ErrRecursionLimit instead of crashing the host.
const maxDepth = 256

// An Env carries the request variables and entity store an expression is
// evaluated against. Each of Principal, Action, Resource, and Context is
// either a concrete Value or a Variable marker for partial evaluation.
type Env struct {
	Entities  types.EntityGetter
	Principal types.Value
	Action    types.Value
	Resource  types.Value
	Context   types.Value
}

// Eval evaluates an expression to a Value. Expressions containing unknowns
// fail with ErrNonValue; use PartialEval for those.
func Eval(n ast.IsNode, env Env) (types.Value, error) {
	return eval(n, env, 0)
}

// BoolEval evaluates an expression and requires a boolean result.
func BoolEval(n ast.IsNode, env Env) (bool, error) {
	v, err := eval(n, env, 0)
	if err != nil {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, typeError(v, "bool")
	}
	return bool(b), nil
}

func eval(n ast.IsNode, env Env, depth int) (types.Value, error) {
	if depth > maxDepth {
		return nil, ErrRecursionLimit
	}
	depth++

	switch n := n.(type) {
	case ast.NodeValue:
		if !isConcrete(n.Value) {
			return nil, fmt.Errorf("%w: literal contains unknown values", ErrNonValue)
		}
		return n.Value, nil

	case ast.NodeTypeVariable:
		return evalVariable(n.Name, env)

	case ast.NodeTypeUnknown:
		return nil, fmt.Errorf("%w: `%s`", ErrNonValue, n.Name)

	case ast.NodeTypeAnd:
		lhs, err := evalBool(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		if !lhs {
			return types.False, nil
		}
		rhs, err := evalBool(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(rhs), nil

	case ast.NodeTypeOr:
		lhs, err := evalBool(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		if lhs {
			return types.True, nil
		}
		rhs, err := evalBool(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(rhs), nil

	case ast.NodeTypeIfThenElse:
		cond, err := evalBool(n.If, env, depth)
		if err != nil {
			return nil, err
		}
		if cond {
			return eval(n.Then, env, depth)
		}
		return eval(n.Else, env, depth)

	case ast.NodeTypeNot:
		b, err := evalBool(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(!b), nil

	case ast.NodeTypeNegate:
		l, err := evalLong(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		if l == math.MinInt64 {
			return nil, overflowError("negate", l)
		}
		return -l, nil

	case ast.NodeTypeEquals:
		lhs, rhs, err := evalPair(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(lhs.Equal(rhs)), nil

	case ast.NodeTypeNotEquals:
		lhs, rhs, err := evalPair(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(!lhs.Equal(rhs)), nil

	case ast.NodeTypeLessThan:
		return evalComparison(n.Left, n.Right, env, depth, func(a, b types.Long) bool { return a < b })
	case ast.NodeTypeLessThanOrEqual:
		return evalComparison(n.Left, n.Right, env, depth, func(a, b types.Long) bool { return a <= b })
	case ast.NodeTypeGreaterThan:
		return evalComparison(n.Left, n.Right, env, depth, func(a, b types.Long) bool { return a > b })
	case ast.NodeTypeGreaterThanOrEqual:
		return evalComparison(n.Left, n.Right, env, depth, func(a, b types.Long) bool { return a >= b })

	case ast.NodeTypeAdd:
		return evalArith(n.Left, n.Right, env, depth, checkedAdd, "add")
	case ast.NodeTypeSub:
		return evalArith(n.Left, n.Right, env, depth, checkedSub, "subtract")
	case ast.NodeTypeMult:
		return evalArith(n.Left, n.Right, env, depth, checkedMult, "multiply")

	case ast.NodeTypeIn:
		lhs, err := evalEntity(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		rhs, err := eval(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return evalIn(env, lhs, rhs)

	case ast.NodeTypeIs:
		lhs, err := evalEntity(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(lhs.Type == n.EntityType), nil

	case ast.NodeTypeIsIn:
		lhs, err := evalEntity(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		if lhs.Type != n.EntityType {
			return types.False, nil
		}
		rhs, err := eval(n.Entity, env, depth)
		if err != nil {
			return nil, err
		}
		return evalIn(env, lhs, rhs)

	case ast.NodeTypeContains:
		lhs, err := evalSet(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		rhs, err := eval(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(lhs.Contains(rhs)), nil

	case ast.NodeTypeContainsAll:
		lhs, rhs, err := evalSetPair(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		all := true
		rhs.Iterate(func(v types.Value) bool {
			all = lhs.Contains(v)
			return all
		})
		return types.Boolean(all), nil

	case ast.NodeTypeContainsAny:
		lhs, rhs, err := evalSetPair(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		any := false
		rhs.Iterate(func(v types.Value) bool {
			any = lhs.Contains(v)
			return !any
		})
		return types.Boolean(any), nil

	case ast.NodeTypeIsEmpty:
		s, err := evalSet(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(s.Len() == 0), nil

	case ast.NodeTypeLike:
		v, err := evalString(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		return types.Boolean(n.Value.Match(string(v))), nil

	case ast.NodeTypeHas:
		return evalHas(n, env, depth)

	case ast.NodeTypeAccess:
		return evalAccess(n, env, depth)

	case ast.NodeTypeHasTag:
		uid, tag, err := evalTagOperands(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		ent, ok := storeGet(env, uid)
		if !ok {
			return types.False, nil
		}
		_, ok = ent.Tags.Get(tag)
		return types.Boolean(ok), nil

	case ast.NodeTypeGetTag:
		uid, tag, err := evalTagOperands(n.Left, n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		ent, ok := storeGet(env, uid)
		if !ok {
			return nil, entityNotExistError(uid)
		}
		v, ok := ent.Tags.Get(tag)
		if !ok {
			return nil, tagError(uid, tag)
		}
		return v, nil

	case ast.NodeTypeSet:
		vals := make([]types.Value, len(n.Elements))
		for i, e := range n.Elements {
			v, err := eval(e, env, depth)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return types.NewSet(vals), nil

	case ast.NodeTypeRecord:
		m := make(types.RecordMap, len(n.Elements))
		for _, e := range n.Elements {
			v, err := eval(e.Value, env, depth)
			if err != nil {
				return nil, err
			}
			m[e.Key] = v
		}
		return types.NewRecord(m), nil

	case ast.NodeTypeExtensionCall:
		return evalExtensionCall(n, env, depth)

	default:
		return nil, fmt.Errorf("%w: unexpected node %T", ErrType, n)
	}
}

func variableLookup(name types.String, env Env) (types.Value, error) {
	var v types.Value
	switch name {
	case "principal":
		v = env.Principal
	case "action":
		v = env.Action
	case "resource":
		v = env.Resource
	case "context":
		v = env.Context
	default:
		return nil, fmt.Errorf("%w: invalid variable `%s`", ErrType, name)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: variable `%s` is not set", ErrNonValue, name)
	}
	return v, nil
}

func evalVariable(name types.String, env Env) (types.Value, error) {
	v, err := variableLookup(name, env)
	if err != nil {
		return nil, err
	}
	if vr, ok := v.(variableValue); ok {
		return nil, fmt.Errorf("%w: `%s`", ErrNonValue, vr.name)
	}
	if !isConcrete(v) {
		return nil, fmt.Errorf("%w: `%s` contains unknown values", ErrNonValue, name)
	}
	return v, nil
}

func evalBool(n ast.IsNode, env Env, depth int) (bool, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, typeError(v, "bool")
	}
	return bool(b), nil
}

func evalLong(n ast.IsNode, env Env, depth int) (types.Long, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return 0, err
	}
	l, ok := v.(types.Long)
	if !ok {
		return 0, typeError(v, "long")
	}
	return l, nil
}

func evalString(n ast.IsNode, env Env, depth int) (types.String, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return "", err
	}
	s, ok := v.(types.String)
	if !ok {
		return "", typeError(v, "string")
	}
	return s, nil
}

func evalSet(n ast.IsNode, env Env, depth int) (types.Set, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return types.Set{}, err
	}
	s, ok := v.(types.Set)
	if !ok {
		return types.Set{}, typeError(v, "set")
	}
	return s, nil
}

func evalEntity(n ast.IsNode, env Env, depth int) (types.EntityUID, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return types.EntityUID{}, err
	}
	uid, ok := v.(types.EntityUID)
	if !ok {
		return types.EntityUID{}, typeError(v, "entity")
	}
	return uid, nil
}

func evalPair(l, r ast.IsNode, env Env, depth int) (types.Value, types.Value, error) {
	lhs, err := eval(l, env, depth)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := eval(r, env, depth)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func evalSetPair(l, r ast.IsNode, env Env, depth int) (types.Set, types.Set, error) {
	lhs, err := evalSet(l, env, depth)
	if err != nil {
		return types.Set{}, types.Set{}, err
	}
	rhs, err := evalSet(r, env, depth)
	if err != nil {
		return types.Set{}, types.Set{}, err
	}
	return lhs, rhs, nil
}

func evalComparison(l, r ast.IsNode, env Env, depth int, test func(a, b types.Long) bool) (types.Value, error) {
	lhs, err := evalLong(l, env, depth)
	if err != nil {
		return nil, err
	}
	rhs, err := evalLong(r, env, depth)
	if err != nil {
		return nil, err
	}
	return types.Boolean(test(lhs, rhs)), nil
}

func evalArith(l, r ast.IsNode, env Env, depth int, op func(a, b types.Long) (types.Long, bool), name string) (types.Value, error) {
	lhs, err := evalLong(l, env, depth)
	if err != nil {
		return nil, err
	}
	rhs, err := evalLong(r, env, depth)
	if err != nil {
		return nil, err
	}
	res, ok := op(lhs, rhs)
	if !ok {
		return nil, overflowError(name, lhs, rhs)
	}
	return res, nil
}

func checkedAdd(a, b types.Long) (types.Long, bool) {
	sum := a + b
	if (sum > a) == (b > 0) {
		return sum, true
	}
	return 0, false
}

func checkedSub(a, b types.Long) (types.Long, bool) {
	diff := a - b
	if (diff < a) == (b > 0) {
		return diff, true
	}
	return 0, false
}

func checkedMult(a, b types.Long) (types.Long, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	prod := a * b
	if prod/b == a && !(a == -1 && b == math.MinInt64) && !(b == -1 && a == math.MinInt64) {
		return prod, true
	}
	return 0, false
}

// storeGet looks up an entity, treating a nil store as empty.
func storeGet(env Env, uid types.EntityUID) (types.Entity, bool) {
	if env.Entities == nil {
		return types.Entity{}, false
	}
	return env.Entities.Get(uid)
}

// storeAncestors returns the materialized ancestor set of uid, treating a nil
// store as empty.
func storeAncestors(env Env, uid types.EntityUID) *mapset.Set[types.EntityUID] {
	if env.Entities == nil {
		return nil
	}
	return env.Entities.Ancestors(uid)
}

// evalIn tests hierarchy membership of lhs in rhs, where rhs is an entity or
// a set of entities. An entity is always in its own hierarchy.
func evalIn(env Env, lhs types.EntityUID, rhs types.Value) (types.Value, error) {
	ancestors := storeAncestors(env, lhs)
	switch rhs := rhs.(type) {
	case types.EntityUID:
		return types.Boolean(lhs == rhs || ancestors.Contains(rhs)), nil
	case types.Set:
		found := false
		var badElem types.Value
		rhs.Iterate(func(v types.Value) bool {
			uid, ok := v.(types.EntityUID)
			if !ok {
				badElem = v
				return false
			}
			found = lhs == uid || ancestors.Contains(uid)
			return !found
		})
		if badElem != nil {
			return nil, typeError(badElem, "entity")
		}
		return types.Boolean(found), nil
	default:
		return nil, typeError(rhs, "entity or set of entities")
	}
}

func evalHas(n ast.NodeTypeHas, env Env, depth int) (types.Value, error) {
	v, err := eval(n.Arg, env, depth)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case types.EntityUID:
		// `has` on an entity absent from the store is false, not an error.
		ent, ok := storeGet(env, v)
		if !ok {
			return types.False, nil
		}
		_, ok = ent.Attributes.Get(n.Value)
		return types.Boolean(ok), nil
	case types.Record:
		_, ok := v.Get(n.Value)
		return types.Boolean(ok), nil
	default:
		return nil, typeError(v, "entity or record")
	}
}

func evalAccess(n ast.NodeTypeAccess, env Env, depth int) (types.Value, error) {
	v, err := eval(n.Arg, env, depth)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case types.EntityUID:
		ent, ok := storeGet(env, v)
		if !ok {
			return nil, entityNotExistError(v)
		}
		attr, ok := ent.Attributes.Get(n.Value)
		if !ok {
			return nil, attrError(v, n.Value)
		}
		return attr, nil
	case types.Record:
		attr, ok := v.Get(n.Value)
		if !ok {
			return nil, attrError(v, n.Value)
		}
		return attr, nil
	default:
		return nil, typeError(v, "entity or record")
	}
}

func evalTagOperands(l, r ast.IsNode, env Env, depth int) (types.EntityUID, types.String, error) {
	uid, err := evalEntity(l, env, depth)
	if err != nil {
		return types.EntityUID{}, "", err
	}
	tag, err := evalString(r, env, depth)
	if err != nil {
		return types.EntityUID{}, "", err
	}
	return uid, tag, nil
}

func evalExtensionCall(n ast.NodeTypeExtensionCall, env Env, depth int) (types.Value, error) {
	fn, ok := extensions.Registry[n.Name]
	if !ok {
		return nil, fmt.Errorf("%w: `%s`", ErrUnknownExtensionFunction, n.Name)
	}
	if len(n.Args) != len(fn.Args) {
		return nil, fmt.Errorf("%w: `%s` expects %d arguments, got %d",
			ErrType, n.Name, len(fn.Args), len(n.Args))
	}
	args := make([]types.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := eval(a, env, depth)
		if err != nil {
			return nil, err
		}
		if !extensions.MatchesType(v, fn.Args[i]) {
			return nil, typeError(v, extensions.TypeString(fn.Args[i]))
		}
		args[i] = v
	}
	res, err := fn.Impl(args)
	if err != nil {
		return nil, fmt.Errorf("%w: `%s`: %v", ErrExtension, n.Name, err)
	}
	return res, nil
}
