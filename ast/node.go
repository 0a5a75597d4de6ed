// Package ast defines the abstract syntax shared by the evaluator and the
// validator: expression nodes, policy scopes, and the fluent builders the
// parsing front end (or an embedding application) uses to produce them.
package ast

import "github.com/strongdm/gavel/types"

// IsNode is implemented by every expression node. The node set is closed;
// consumers traverse it with exhaustive type switches.
type IsNode interface {
	isNode()
}

// UnaryNode is embedded by nodes with a single operand.
type UnaryNode struct {
	Arg IsNode
}

func (UnaryNode) isNode() {}

// BinaryNode is embedded by nodes with two operands.
type BinaryNode struct {
	Left, Right IsNode
}

func (BinaryNode) isNode() {}

// StrOpNode is embedded by nodes pairing an operand with an attribute name.
type StrOpNode struct {
	Arg   IsNode
	Value types.String
}

func (StrOpNode) isNode() {}

// NodeValue is a literal value.
type NodeValue struct {
	Value types.Value
}

func (NodeValue) isNode() {}

// NodeTypeVariable is a reference to one of the four request variables:
// principal, action, resource, or context.
type NodeTypeVariable struct {
	Name types.String
}

func (NodeTypeVariable) isNode() {}

// NodeTypeUnknown is a named placeholder for a value unavailable during
// partial evaluation.
type NodeTypeUnknown struct {
	Name types.String
}

func (NodeTypeUnknown) isNode() {}

// NodeTypeIfThenElse evaluates If and takes exactly one branch.
type NodeTypeIfThenElse struct {
	If, Then, Else IsNode
}

func (NodeTypeIfThenElse) isNode() {}

// NodeTypeAnd is short-circuiting conjunction.
type NodeTypeAnd struct{ BinaryNode }

// NodeTypeOr is short-circuiting disjunction.
type NodeTypeOr struct{ BinaryNode }

// NodeTypeNot is boolean negation.
type NodeTypeNot struct{ UnaryNode }

// NodeTypeNegate is arithmetic negation.
type NodeTypeNegate struct{ UnaryNode }

// NodeTypeEquals and NodeTypeNotEquals compare any two values structurally.
type (
	NodeTypeEquals    struct{ BinaryNode }
	NodeTypeNotEquals struct{ BinaryNode }
)

// Integer comparison nodes.
type (
	NodeTypeLessThan           struct{ BinaryNode }
	NodeTypeLessThanOrEqual    struct{ BinaryNode }
	NodeTypeGreaterThan        struct{ BinaryNode }
	NodeTypeGreaterThanOrEqual struct{ BinaryNode }
)

// Checked 64-bit integer arithmetic nodes.
type (
	NodeTypeAdd  struct{ BinaryNode }
	NodeTypeSub  struct{ BinaryNode }
	NodeTypeMult struct{ BinaryNode }
)

// NodeTypeIn tests hierarchy membership: entity in entity-or-set.
type NodeTypeIn struct{ BinaryNode }

// NodeTypeIs tests whether an entity has the given type.
type NodeTypeIs struct {
	Left       IsNode
	EntityType types.EntityType
}

func (NodeTypeIs) isNode() {}

// NodeTypeIsIn combines a type test with a hierarchy membership test.
type NodeTypeIsIn struct {
	Left       IsNode
	EntityType types.EntityType
	Entity     IsNode
}

func (NodeTypeIsIn) isNode() {}

// Set membership nodes.
type (
	NodeTypeContains    struct{ BinaryNode }
	NodeTypeContainsAll struct{ BinaryNode }
	NodeTypeContainsAny struct{ BinaryNode }
)

// NodeTypeIsEmpty tests whether a set has no elements.
type NodeTypeIsEmpty struct{ UnaryNode }

// NodeTypeLike matches a string against a wildcard pattern.
type NodeTypeLike struct {
	Arg   IsNode
	Value types.Pattern
}

func (NodeTypeLike) isNode() {}

// NodeTypeHas tests whether an entity or record has an attribute.
type NodeTypeHas struct{ StrOpNode }

// NodeTypeAccess retrieves an attribute from an entity or record.
type NodeTypeAccess struct{ StrOpNode }

// Entity tag nodes. The tag key is an arbitrary string expression.
type (
	NodeTypeHasTag struct{ BinaryNode }
	NodeTypeGetTag struct{ BinaryNode }
)

// NodeTypeSet constructs a set from element expressions.
type NodeTypeSet struct {
	Elements []IsNode
}

func (NodeTypeSet) isNode() {}

// RecordElementNode is one key-value pair of a record constructor.
type RecordElementNode struct {
	Key   types.String
	Value IsNode
}

// NodeTypeRecord constructs a record from key-value pairs.
type NodeTypeRecord struct {
	Elements []RecordElementNode
}

func (NodeTypeRecord) isNode() {}

// NodeTypeExtensionCall applies a function from the extension registry.
type NodeTypeExtensionCall struct {
	Name types.Path
	Args []IsNode
}

func (NodeTypeExtensionCall) isNode() {}
