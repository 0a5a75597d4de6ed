// Package types defines the runtime value universe of the policy language and
// the entity data model consumed by the evaluator and the validator.
package types

import "hash/fnv"

// Value defines the interface implemented by every member of the value
// universe: booleans, longs, strings, entity UIDs, sets, records, and
// extension values.
type Value interface {
	// String produces a string representation of the Value.
	String() string
	// MarshalCedar produces a valid MarshalCedar language representation of
	// the Value.
	MarshalCedar() []byte
	// Equal returns true if the Values are equal.
	Equal(Value) bool
	// Hash returns a stable uint64 hash of the Value, consistent with Equal.
	Hash() uint64
}

// TypeName returns the user-visible name of a Value's type, as it appears in
// diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case Boolean:
		return "bool"
	case Long:
		return "long"
	case String:
		return "string"
	case EntityUID:
		return "entity"
	case Set:
		return "set"
	case Record:
		return "record"
	case IPAddr:
		return "ipaddr"
	case Decimal:
		return "decimal"
	default:
		return "unknown"
	}
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func hashTagged(tag string, content uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(content >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}
