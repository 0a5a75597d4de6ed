package types

import (
	"bytes"

	"github.com/strongdm/gavel/internal/sets"
)

// A Set is an immutable collection of elements that can be of the same or
// different types. Duplicates are collapsed and order is not preserved.
type Set struct {
	sets.ImmutableHashSet[Value]
	hashVal uint64
}

// NewSet returns an immutable Set given a Go slice of Values. Duplicates are
// removed and order is not preserved.
func NewSet(v []Value) Set {
	set := sets.NewImmutableHashSet(v)

	// The hash of a set is the sum of its element hashes, which keeps it
	// independent of iteration order and makes Set{} and NewSet(nil) agree.
	var hashVal uint64
	set.Iterate(func(v Value) bool {
		hashVal += v.Hash()
		return true
	})

	return Set{ImmutableHashSet: set, hashVal: hashVal}
}

// Equal returns true if the sets are Equal.
func (as Set) Equal(bi Value) bool {
	bs, ok := bi.(Set)
	if !ok {
		return false
	}

	return as.ImmutableHashSet.Equal(bs.ImmutableHashSet)
}

// String produces a string representation of the Set, e.g. `[1, 2, 3]`.
func (v Set) String() string { return string(v.MarshalCedar()) }

// MarshalCedar produces a valid MarshalCedar language representation of the
// Set, e.g. `[1, 2, 3]`. Set elements are rendered in a non-deterministic
// order.
func (v Set) MarshalCedar() []byte {
	var sb bytes.Buffer
	sb.WriteRune('[')
	var i int
	v.Iterate(func(vv Value) bool {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.Write(vv.MarshalCedar())
		i++
		return true
	})
	sb.WriteRune(']')
	return sb.Bytes()
}

func (v Set) Hash() uint64 {
	return v.hashVal
}
