package sets

import (
	"iter"

	"golang.org/x/exp/maps"
)

type item[T any] interface {
	Equal(T) bool
	Hash() uint64
}

// An ImmutableHashSet is an immutable collection of hashable elements that are
// themselves immutable.
type ImmutableHashSet[T item[T]] struct {
	s map[uint64]T
}

// NewImmutableHashSet returns an ImmutableHashSet given a Go slice of values.
// Duplicates are removed and order is not preserved.
func NewImmutableHashSet[T item[T]](i []T) ImmutableHashSet[T] {
	var set map[uint64]T
	if len(i) > 0 {
		set = make(map[uint64]T, len(i))
	}
	for _, ii := range i {
		hash := ii.Hash()

		// Deal with collisions via open addressing by incrementing the hash
		// value. This is safe so long as the set is immutable because nothing
		// can be removed from the map.
		for {
			existing, ok := set[hash]
			if !ok {
				set[hash] = ii
				break
			} else if ii.Equal(existing) {
				// duplicate in the input slice
				break
			}
			hash++
		}
	}

	return ImmutableHashSet[T]{s: set}
}

// Len returns the number of unique items in the set.
func (s ImmutableHashSet[T]) Len() int {
	return len(s.s)
}

// All returns an iterator over the items in the set. Iteration order is
// non-deterministic.
func (s ImmutableHashSet[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range s.s {
			if !yield(v) {
				return
			}
		}
	}
}

// Iterate calls iter for each item in the set. Returning false from the iter
// function causes iteration to cease. Iteration order is non-deterministic.
func (s ImmutableHashSet[T]) Iterate(iter func(i T) bool) {
	for _, v := range s.s {
		if !iter(v) {
			break
		}
	}
}

// Contains returns true if the item i is present in the set.
func (s ImmutableHashSet[T]) Contains(i item[T]) bool {
	hash := i.Hash()

	for {
		existing, ok := s.s[hash]
		if !ok {
			return false
		} else if i.Equal(existing) {
			return true
		}
		hash++
	}
}

// Slice returns a slice of the items in the set which is safe to mutate. The
// order of the values is non-deterministic.
func (s ImmutableHashSet[T]) Slice() []T {
	if s.s == nil {
		return nil
	}
	return maps.Values(s.s)
}

// Equal returns true if the sets contain the same items.
func (as ImmutableHashSet[T]) Equal(bs ImmutableHashSet[T]) bool {
	if len(as.s) != len(bs.s) {
		return false
	}

	for _, v := range as.s {
		if !bs.Contains(v) {
			return false
		}
	}
	return true
}
