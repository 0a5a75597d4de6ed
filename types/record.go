package types

import (
	"bytes"
	"iter"
	"slices"
	"strconv"

	"golang.org/x/exp/maps"
)

// A Record is an immutable collection of attributes, mapping attribute names
// to Values. Keys are unique.
type Record struct {
	m       map[String]Value
	hashVal uint64
}

// A RecordMap is a map of attribute names to Values used to construct a
// Record.
type RecordMap map[String]Value

// NewRecord returns an immutable Record given a RecordMap. The input map is
// copied.
func NewRecord(r RecordMap) Record {
	var m map[String]Value
	if len(r) > 0 {
		m = maps.Clone(r)
	}

	// Key-order independent hash, same construction as Set.
	var hashVal uint64
	for k, v := range m {
		hashVal += hashTagged(string(k), v.Hash())
	}

	return Record{m: m, hashVal: hashVal}
}

// Len returns the number of attributes in the Record.
func (r Record) Len() int { return len(r.m) }

// Get returns the Value stored under the given attribute name. The second
// return distinguishes "absent" from "present": it is false if and only if
// the attribute does not exist.
func (r Record) Get(key String) (Value, bool) {
	v, ok := r.m[key]
	return v, ok
}

// All returns an iterator over the (key, value) pairs of the Record in
// non-deterministic order.
func (r Record) All() iter.Seq2[String, Value] {
	return func(yield func(String, Value) bool) {
		for k, v := range r.m {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys returns the attribute names of the Record sorted lexicographically.
func (r Record) Keys() []String {
	keys := maps.Keys(r.m)
	slices.Sort(keys)
	return keys
}

// Equal returns true if the records have the same attributes with equal
// values.
func (r Record) Equal(bi Value) bool {
	o, ok := bi.(Record)
	if !ok || len(r.m) != len(o.m) {
		return false
	}
	for k, v := range r.m {
		ov, ok := o.m[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String produces a string representation of the Record, e.g.
// `{"age":21,"name":"alice"}`.
func (r Record) String() string { return string(r.MarshalCedar()) }

// MarshalCedar produces a valid MarshalCedar language representation of the
// Record. Attributes are rendered in sorted key order.
func (r Record) MarshalCedar() []byte {
	var sb bytes.Buffer
	sb.WriteRune('{')
	for i, k := range r.Keys() {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(string(k)))
		sb.WriteString(": ")
		sb.Write(r.m[k].MarshalCedar())
	}
	sb.WriteRune('}')
	return sb.Bytes()
}

func (r Record) Hash() uint64 { return r.hashVal }
