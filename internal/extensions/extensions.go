// Package extensions holds the fixed registry of extension functions. The
// evaluator applies the implementations and the validator reads the static
// signatures, so the two can never disagree about an extension's semantics.
package extensions

import (
	"fmt"

	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

// Version identifies the registry revision. Adding a function family bumps
// the version; existing signatures never change.
const Version = 1

// A Function pairs an extension function's static signature with its
// implementation. Implementations receive arguments already checked against
// Args and return only domain errors.
type Function struct {
	Args   []schema.IsType
	Return schema.IsType
	Impl   func(args []types.Value) (types.Value, error)
}

var (
	boolType    = schema.BoolType{}
	stringType  = schema.StringType{}
	ipaddrType  = schema.ExtensionType("ipaddr")
	decimalType = schema.ExtensionType("decimal")
)

// Registry is the full extension function table. It is never mutated after
// package initialization.
var Registry = map[types.Path]Function{
	"ip": {
		Args:   []schema.IsType{stringType},
		Return: ipaddrType,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.ParseIPAddr(string(args[0].(types.String)))
		},
	},
	"decimal": {
		Args:   []schema.IsType{stringType},
		Return: decimalType,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.ParseDecimal(string(args[0].(types.String)))
		},
	},

	"lessThan":           decimalCompare(func(c int) bool { return c < 0 }),
	"lessThanOrEqual":    decimalCompare(func(c int) bool { return c <= 0 }),
	"greaterThan":        decimalCompare(func(c int) bool { return c > 0 }),
	"greaterThanOrEqual": decimalCompare(func(c int) bool { return c >= 0 }),

	"isIpv4":      ipPredicate(types.IPAddr.IsIPv4),
	"isIpv6":      ipPredicate(types.IPAddr.IsIPv6),
	"isLoopback":  ipPredicate(types.IPAddr.IsLoopback),
	"isMulticast": ipPredicate(types.IPAddr.IsMulticast),
	"isInRange": {
		Args:   []schema.IsType{ipaddrType, ipaddrType},
		Return: boolType,
		Impl: func(args []types.Value) (types.Value, error) {
			rng := args[1].(types.IPAddr)
			return types.Boolean(rng.Contains(args[0].(types.IPAddr))), nil
		},
	},
}

func decimalCompare(test func(int) bool) Function {
	return Function{
		Args:   []schema.IsType{decimalType, decimalType},
		Return: boolType,
		Impl: func(args []types.Value) (types.Value, error) {
			c := args[0].(types.Decimal).Cmp(args[1].(types.Decimal))
			return types.Boolean(test(c)), nil
		},
	}
}

func ipPredicate(test func(types.IPAddr) bool) Function {
	return Function{
		Args:   []schema.IsType{ipaddrType},
		Return: boolType,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.Boolean(test(args[0].(types.IPAddr))), nil
		},
	}
}

// MatchesType reports whether a runtime value inhabits a schema type. It is
// used to check extension arguments before an implementation runs.
func MatchesType(v types.Value, t schema.IsType) bool {
	switch t := t.(type) {
	case schema.BoolType:
		_, ok := v.(types.Boolean)
		return ok
	case schema.LongType:
		_, ok := v.(types.Long)
		return ok
	case schema.StringType:
		_, ok := v.(types.String)
		return ok
	case schema.EntityType:
		uid, ok := v.(types.EntityUID)
		return ok && uid.Type == types.EntityType(t)
	case schema.ExtensionType:
		switch types.Ident(t) {
		case "ipaddr":
			_, ok := v.(types.IPAddr)
			return ok
		case "decimal":
			_, ok := v.(types.Decimal)
			return ok
		}
		return false
	case schema.SetType:
		set, ok := v.(types.Set)
		if !ok {
			return false
		}
		match := true
		set.Iterate(func(e types.Value) bool {
			match = MatchesType(e, t.Element)
			return match
		})
		return match
	case schema.RecordType:
		_, ok := v.(types.Record)
		return ok
	default:
		return false
	}
}

// TypeString renders a schema type the way diagnostics name it.
func TypeString(t schema.IsType) string {
	switch t := t.(type) {
	case schema.BoolType:
		return "bool"
	case schema.LongType:
		return "long"
	case schema.StringType:
		return "string"
	case schema.EntityType:
		return string(t)
	case schema.ExtensionType:
		return string(t)
	case schema.SetType:
		return "set"
	case schema.RecordType:
		return "record"
	default:
		return fmt.Sprintf("%T", t)
	}
}
