package ast

import "github.com/strongdm/gavel/types"

// A Node wraps an expression node and carries the fluent builder methods.
type Node struct {
	v IsNode
}

// NewNode wraps a raw IsNode in a builder Node.
func NewNode(v IsNode) Node { return Node{v: v} }

// AsIsNode returns the raw expression node.
func (n Node) AsIsNode() IsNode { return n.v }

// Literal constructors.

func Boolean(b types.Boolean) Node { return NewNode(NodeValue{Value: b}) }
func True() Node                   { return Boolean(true) }
func False() Node                  { return Boolean(false) }
func Long(l types.Long) Node       { return NewNode(NodeValue{Value: l}) }
func String(s types.String) Node   { return NewNode(NodeValue{Value: s}) }
func EntityUID(typ types.EntityType, id types.String) Node {
	return Value(types.NewEntityUID(typ, id))
}

// Value wraps any Value as a literal node.
func Value(v types.Value) Node { return NewNode(NodeValue{Value: v}) }

// Set constructs a set from element expressions.
func Set(nodes ...Node) Node {
	elements := make([]IsNode, len(nodes))
	for i, n := range nodes {
		elements[i] = n.v
	}
	return NewNode(NodeTypeSet{Elements: elements})
}

// Pair is one key-value element of a record constructor.
type Pair struct {
	Key   types.String
	Value Node
}

// Pairs is the ordered element list of a record constructor.
type Pairs []Pair

// Record constructs a record from key-value pairs.
func Record(elements Pairs) Node {
	nodes := make([]RecordElementNode, len(elements))
	for i, e := range elements {
		nodes[i] = RecordElementNode{Key: e.Key, Value: e.Value.v}
	}
	return NewNode(NodeTypeRecord{Elements: nodes})
}

// Request variable references.

func Principal() Node { return NewNode(NodeTypeVariable{Name: "principal"}) }
func Action() Node    { return NewNode(NodeTypeVariable{Name: "action"}) }
func Resource() Node  { return NewNode(NodeTypeVariable{Name: "resource"}) }
func Context() Node   { return NewNode(NodeTypeVariable{Name: "context"}) }

// Unknown is a named placeholder for partial evaluation.
func Unknown(name types.String) Node { return NewNode(NodeTypeUnknown{Name: name}) }

// ExtensionCall applies a function from the extension registry.
func ExtensionCall(name types.Path, args ...Node) Node {
	nodes := make([]IsNode, len(args))
	for i, a := range args {
		nodes[i] = a.v
	}
	return NewNode(NodeTypeExtensionCall{Name: name, Args: nodes})
}

// IfThenElse evaluates the condition and exactly one branch.
func IfThenElse(condition, thenNode, elseNode Node) Node {
	return NewNode(NodeTypeIfThenElse{If: condition.v, Then: thenNode.v, Else: elseNode.v})
}

// Not is boolean negation.
func Not(n Node) Node {
	return NewNode(NodeTypeNot{UnaryNode{Arg: n.v}})
}

// Negate is arithmetic negation.
func Negate(n Node) Node {
	return NewNode(NodeTypeNegate{UnaryNode{Arg: n.v}})
}

func binary(left, right Node) BinaryNode { return BinaryNode{Left: left.v, Right: right.v} }

func (lhs Node) And(rhs Node) Node {
	return NewNode(NodeTypeAnd{binary(lhs, rhs)})
}

func (lhs Node) Or(rhs Node) Node {
	return NewNode(NodeTypeOr{binary(lhs, rhs)})
}

func (lhs Node) Equal(rhs Node) Node {
	return NewNode(NodeTypeEquals{binary(lhs, rhs)})
}

func (lhs Node) NotEqual(rhs Node) Node {
	return NewNode(NodeTypeNotEquals{binary(lhs, rhs)})
}

func (lhs Node) LessThan(rhs Node) Node {
	return NewNode(NodeTypeLessThan{binary(lhs, rhs)})
}

func (lhs Node) LessThanOrEqual(rhs Node) Node {
	return NewNode(NodeTypeLessThanOrEqual{binary(lhs, rhs)})
}

func (lhs Node) GreaterThan(rhs Node) Node {
	return NewNode(NodeTypeGreaterThan{binary(lhs, rhs)})
}

func (lhs Node) GreaterThanOrEqual(rhs Node) Node {
	return NewNode(NodeTypeGreaterThanOrEqual{binary(lhs, rhs)})
}

func (lhs Node) Add(rhs Node) Node {
	return NewNode(NodeTypeAdd{binary(lhs, rhs)})
}

func (lhs Node) Subtract(rhs Node) Node {
	return NewNode(NodeTypeSub{binary(lhs, rhs)})
}

func (lhs Node) Multiply(rhs Node) Node {
	return NewNode(NodeTypeMult{binary(lhs, rhs)})
}

// In tests hierarchy membership of an entity in an entity or set of entities.
func (lhs Node) In(rhs Node) Node {
	return NewNode(NodeTypeIn{binary(lhs, rhs)})
}

// Is tests whether an entity has the given type.
func (lhs Node) Is(entityType types.EntityType) Node {
	return NewNode(NodeTypeIs{Left: lhs.v, EntityType: entityType})
}

// IsIn combines a type test with a hierarchy membership test.
func (lhs Node) IsIn(entityType types.EntityType, rhs Node) Node {
	return NewNode(NodeTypeIsIn{Left: lhs.v, EntityType: entityType, Entity: rhs.v})
}

func (lhs Node) Contains(rhs Node) Node {
	return NewNode(NodeTypeContains{binary(lhs, rhs)})
}

func (lhs Node) ContainsAll(rhs Node) Node {
	return NewNode(NodeTypeContainsAll{binary(lhs, rhs)})
}

func (lhs Node) ContainsAny(rhs Node) Node {
	return NewNode(NodeTypeContainsAny{binary(lhs, rhs)})
}

func (lhs Node) IsEmpty() Node {
	return NewNode(NodeTypeIsEmpty{UnaryNode{Arg: lhs.v}})
}

// Like matches a string against a wildcard pattern.
func (lhs Node) Like(pattern types.Pattern) Node {
	return NewNode(NodeTypeLike{Arg: lhs.v, Value: pattern})
}

// Has tests whether an entity or record has an attribute.
func (lhs Node) Has(attr types.String) Node {
	return NewNode(NodeTypeHas{StrOpNode{Arg: lhs.v, Value: attr}})
}

// Access retrieves an attribute from an entity or record.
func (lhs Node) Access(attr types.String) Node {
	return NewNode(NodeTypeAccess{StrOpNode{Arg: lhs.v, Value: attr}})
}

// HasTag tests whether an entity carries the given tag.
func (lhs Node) HasTag(rhs Node) Node {
	return NewNode(NodeTypeHasTag{binary(lhs, rhs)})
}

// GetTag retrieves a tag value from an entity.
func (lhs Node) GetTag(rhs Node) Node {
	return NewNode(NodeTypeGetTag{binary(lhs, rhs)})
}
