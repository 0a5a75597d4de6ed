package eval

import (
	"fmt"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// variableValue marks a request value as unavailable. It satisfies
// types.Value so callers can place it anywhere a concrete value would go,
// including inside context records, but concrete evaluation refuses it with
// ErrNonValue.
type variableValue struct {
	name types.String
}

func (v variableValue) String() string       { return "variable(" + string(v.name) + ")" }
func (v variableValue) MarshalCedar() []byte { return []byte(v.String()) }
func (v variableValue) Hash() uint64         { return v.name.Hash() }
func (v variableValue) Equal(o types.Value) bool {
	ov, ok := o.(variableValue)
	return ok && v.name == ov.name
}

// Variable returns a named placeholder value for partial evaluation.
func Variable(name types.String) types.Value { return variableValue{name: name} }

// IsVariable reports whether v is a placeholder produced by Variable.
func IsVariable(v types.Value) bool {
	_, ok := v.(variableValue)
	return ok
}

// isConcrete reports whether v contains no Variable placeholders, recursing
// through sets and records.
func isConcrete(v types.Value) bool {
	switch t := v.(type) {
	case variableValue:
		return false
	case types.Set:
		for e := range t.All() {
			if !isConcrete(e) {
				return false
			}
		}
		return true
	case types.Record:
		for _, e := range t.All() {
			if !isConcrete(e) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// PartialEval rewrites an expression against a partially-known environment.
// Subexpressions that do not depend on a placeholder fold to literal values;
// the rest are left symbolic. An error is returned only when evaluation would
// fail for every substitution of the placeholders, so replacing every
// placeholder with a concrete value and evaluating the residual gives the
// same result as evaluating the original expression in the completed
// environment.
func PartialEval(n ast.IsNode, env Env) (ast.IsNode, error) {
	return partial(n, env, 0)
}

// nodeValue extracts the literal from a fully-folded node.
func nodeValue(n ast.IsNode) (types.Value, bool) {
	nv, ok := n.(ast.NodeValue)
	if !ok {
		return nil, false
	}
	return nv.Value, true
}

// fold evaluates a node whose operands are all literals and wraps the result.
func fold(n ast.IsNode, env Env, depth int) (ast.IsNode, error) {
	v, err := eval(n, env, depth)
	if err != nil {
		return nil, err
	}
	return ast.NodeValue{Value: v}, nil
}

// partialOrKeep rewrites a branch that may never be taken. A definite error
// in such a branch must stay latent, so the original node is kept instead of
// propagating the error.
func partialOrKeep(n ast.IsNode, env Env, depth int) ast.IsNode {
	p, err := partial(n, env, depth)
	if err != nil {
		return n
	}
	return p
}

func partial(n ast.IsNode, env Env, depth int) (ast.IsNode, error) {
	if depth > maxDepth {
		return nil, ErrRecursionLimit
	}
	depth++

	switch n := n.(type) {
	case ast.NodeValue:
		return n, nil

	case ast.NodeTypeUnknown:
		return n, nil

	case ast.NodeTypeVariable:
		v, err := variableLookup(n.Name, env)
		if err != nil {
			return nil, err
		}
		if !isConcrete(v) {
			return n, nil
		}
		return ast.NodeValue{Value: v}, nil

	case ast.NodeTypeAnd:
		return partialAnd(n, env, depth)

	case ast.NodeTypeOr:
		return partialOr(n, env, depth)

	case ast.NodeTypeIfThenElse:
		return partialIf(n, env, depth)

	case ast.NodeTypeNot:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeNot{UnaryNode: ast.UnaryNode{Arg: arg}}
		if _, ok := nodeValue(arg); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeNegate:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeNegate{UnaryNode: ast.UnaryNode{Arg: arg}}
		if _, ok := nodeValue(arg); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeIsEmpty:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeIsEmpty{UnaryNode: ast.UnaryNode{Arg: arg}}
		if _, ok := nodeValue(arg); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeEquals:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeEquals{BinaryNode: b}
		})
	case ast.NodeTypeNotEquals:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeNotEquals{BinaryNode: b}
		})
	case ast.NodeTypeLessThan:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeLessThan{BinaryNode: b}
		})
	case ast.NodeTypeLessThanOrEqual:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeLessThanOrEqual{BinaryNode: b}
		})
	case ast.NodeTypeGreaterThan:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeGreaterThan{BinaryNode: b}
		})
	case ast.NodeTypeGreaterThanOrEqual:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeGreaterThanOrEqual{BinaryNode: b}
		})
	case ast.NodeTypeAdd:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeAdd{BinaryNode: b}
		})
	case ast.NodeTypeSub:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeSub{BinaryNode: b}
		})
	case ast.NodeTypeMult:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeMult{BinaryNode: b}
		})
	case ast.NodeTypeIn:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeIn{BinaryNode: b}
		})
	case ast.NodeTypeContains:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeContains{BinaryNode: b}
		})
	case ast.NodeTypeContainsAll:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeContainsAll{BinaryNode: b}
		})
	case ast.NodeTypeContainsAny:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeContainsAny{BinaryNode: b}
		})
	case ast.NodeTypeHasTag:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeHasTag{BinaryNode: b}
		})
	case ast.NodeTypeGetTag:
		return partialBinary(n.BinaryNode, env, depth, func(b ast.BinaryNode) ast.IsNode {
			return ast.NodeTypeGetTag{BinaryNode: b}
		})

	case ast.NodeTypeIs:
		left, err := partial(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeIs{Left: left, EntityType: n.EntityType}
		if _, ok := nodeValue(left); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeIsIn:
		left, err := partial(n.Left, env, depth)
		if err != nil {
			return nil, err
		}
		entity, err := partial(n.Entity, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeIsIn{Left: left, EntityType: n.EntityType, Entity: entity}
		_, lok := nodeValue(left)
		_, eok := nodeValue(entity)
		if lok && eok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeLike:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeLike{Arg: arg, Value: n.Value}
		if _, ok := nodeValue(arg); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeHas:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeHas{StrOpNode: ast.StrOpNode{Arg: arg, Value: n.Value}}
		if _, ok := nodeValue(arg); ok {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeAccess:
		arg, err := partial(n.Arg, env, depth)
		if err != nil {
			return nil, err
		}
		out := ast.NodeTypeAccess{StrOpNode: ast.StrOpNode{Arg: arg, Value: n.Value}}
		if v, ok := nodeValue(arg); ok {
			// A record attribute may itself hold a placeholder; the access
			// stays symbolic in that case.
			if r, isRecord := v.(types.Record); isRecord {
				if av, present := r.Get(n.Value); present && !isConcrete(av) {
					return out, nil
				}
			}
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeSet:
		elements := make([]ast.IsNode, len(n.Elements))
		allValues := true
		for i, e := range n.Elements {
			p, err := partial(e, env, depth)
			if err != nil {
				return nil, err
			}
			if _, ok := nodeValue(p); !ok {
				allValues = false
			}
			elements[i] = p
		}
		out := ast.NodeTypeSet{Elements: elements}
		if allValues {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeRecord:
		elements := make([]ast.RecordElementNode, len(n.Elements))
		allValues := true
		for i, e := range n.Elements {
			p, err := partial(e.Value, env, depth)
			if err != nil {
				return nil, err
			}
			if _, ok := nodeValue(p); !ok {
				allValues = false
			}
			elements[i] = ast.RecordElementNode{Key: e.Key, Value: p}
		}
		out := ast.NodeTypeRecord{Elements: elements}
		if allValues {
			return fold(out, env, depth)
		}
		return out, nil

	case ast.NodeTypeExtensionCall:
		args := make([]ast.IsNode, len(n.Args))
		allValues := true
		for i, a := range n.Args {
			p, err := partial(a, env, depth)
			if err != nil {
				return nil, err
			}
			if _, ok := nodeValue(p); !ok {
				allValues = false
			}
			args[i] = p
		}
		out := ast.NodeTypeExtensionCall{Name: n.Name, Args: args}
		if allValues {
			return fold(out, env, depth)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unexpected node %T", ErrType, n)
	}
}

// partialBinary rewrites a strict binary operator: both operands are always
// evaluated, so operand errors are definite and propagate.
func partialBinary(b ast.BinaryNode, env Env, depth int, rebuild func(ast.BinaryNode) ast.IsNode) (ast.IsNode, error) {
	left, err := partial(b.Left, env, depth)
	if err != nil {
		return nil, err
	}
	right, err := partial(b.Right, env, depth)
	if err != nil {
		return nil, err
	}
	out := rebuild(ast.BinaryNode{Left: left, Right: right})
	_, lok := nodeValue(left)
	_, rok := nodeValue(right)
	if lok && rok {
		return fold(out, env, depth)
	}
	return out, nil
}

func partialAnd(n ast.NodeTypeAnd, env Env, depth int) (ast.IsNode, error) {
	left, err := partial(n.Left, env, depth)
	if err != nil {
		return nil, err
	}
	if lv, ok := nodeValue(left); ok {
		lb, ok := lv.(types.Boolean)
		if !ok {
			return nil, typeError(lv, "bool")
		}
		if !bool(lb) {
			return ast.NodeValue{Value: types.False}, nil
		}
		right, err := partial(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		if rv, ok := nodeValue(right); ok {
			if _, ok := rv.(types.Boolean); !ok {
				return nil, typeError(rv, "bool")
			}
			return right, nil
		}
		return ast.NodeTypeAnd{BinaryNode: ast.BinaryNode{Left: left, Right: right}}, nil
	}
	right := partialOrKeep(n.Right, env, depth)
	if rv, ok := nodeValue(right); ok {
		if rb, isBool := rv.(types.Boolean); isBool {
			if !bool(rb) {
				return ast.NodeValue{Value: types.False}, nil
			}
			return left, nil
		}
	}
	return ast.NodeTypeAnd{BinaryNode: ast.BinaryNode{Left: left, Right: right}}, nil
}

func partialOr(n ast.NodeTypeOr, env Env, depth int) (ast.IsNode, error) {
	left, err := partial(n.Left, env, depth)
	if err != nil {
		return nil, err
	}
	if lv, ok := nodeValue(left); ok {
		lb, ok := lv.(types.Boolean)
		if !ok {
			return nil, typeError(lv, "bool")
		}
		if bool(lb) {
			return ast.NodeValue{Value: types.True}, nil
		}
		right, err := partial(n.Right, env, depth)
		if err != nil {
			return nil, err
		}
		if rv, ok := nodeValue(right); ok {
			if _, ok := rv.(types.Boolean); !ok {
				return nil, typeError(rv, "bool")
			}
			return right, nil
		}
		return ast.NodeTypeOr{BinaryNode: ast.BinaryNode{Left: left, Right: right}}, nil
	}
	right := partialOrKeep(n.Right, env, depth)
	if rv, ok := nodeValue(right); ok {
		if rb, isBool := rv.(types.Boolean); isBool {
			if bool(rb) {
				return ast.NodeValue{Value: types.True}, nil
			}
			return left, nil
		}
	}
	return ast.NodeTypeOr{BinaryNode: ast.BinaryNode{Left: left, Right: right}}, nil
}

func partialIf(n ast.NodeTypeIfThenElse, env Env, depth int) (ast.IsNode, error) {
	cond, err := partial(n.If, env, depth)
	if err != nil {
		return nil, err
	}
	if cv, ok := nodeValue(cond); ok {
		cb, ok := cv.(types.Boolean)
		if !ok {
			return nil, typeError(cv, "bool")
		}
		if bool(cb) {
			return partial(n.Then, env, depth)
		}
		return partial(n.Else, env, depth)
	}
	return ast.NodeTypeIfThenElse{
		If:   cond,
		Then: partialOrKeep(n.Then, env, depth),
		Else: partialOrKeep(n.Else, env, depth),
	}, nil
}

// Variables returns the sorted, deduplicated names of request variables and
// unknowns a residual expression still depends on.
func Variables(n ast.IsNode) []types.String {
	seen := map[types.String]struct{}{}
	collectVariables(n, seen)
	out := make([]types.String, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func collectVariables(n ast.IsNode, seen map[types.String]struct{}) {
	switch n := n.(type) {
	case ast.NodeValue:
	case ast.NodeTypeVariable:
		seen[n.Name] = struct{}{}
	case ast.NodeTypeUnknown:
		seen[n.Name] = struct{}{}
	case ast.NodeTypeIfThenElse:
		collectVariables(n.If, seen)
		collectVariables(n.Then, seen)
		collectVariables(n.Else, seen)
	case ast.NodeTypeAnd:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeOr:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeNot:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeNegate:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeIsEmpty:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeEquals:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeNotEquals:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeLessThan:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeLessThanOrEqual:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeGreaterThan:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeGreaterThanOrEqual:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeAdd:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeSub:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeMult:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeIn:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeIs:
		collectVariables(n.Left, seen)
	case ast.NodeTypeIsIn:
		collectVariables(n.Left, seen)
		collectVariables(n.Entity, seen)
	case ast.NodeTypeContains:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeContainsAll:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeContainsAny:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeLike:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeHas:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeAccess:
		collectVariables(n.Arg, seen)
	case ast.NodeTypeHasTag:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeGetTag:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	case ast.NodeTypeSet:
		for _, e := range n.Elements {
			collectVariables(e, seen)
		}
	case ast.NodeTypeRecord:
		for _, e := range n.Elements {
			collectVariables(e.Value, seen)
		}
	case ast.NodeTypeExtensionCall:
		for _, a := range n.Args {
			collectVariables(a, seen)
		}
	}
}
