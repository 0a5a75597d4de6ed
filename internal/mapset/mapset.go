// Package mapset provides a small set type for comparable elements, used for
// entity parent and ancestor relations.
package mapset

import (
	"iter"

	"golang.org/x/exp/maps"
)

// Set is a mutable set of comparable elements. The zero value is an empty set
// that is safe to read but not to add to; use Make or FromSlice to build one.
type Set[T comparable] struct {
	m map[T]struct{}
}

// Make returns an empty set with capacity for the given number of elements.
func Make[T comparable](size ...int) *Set[T] {
	if len(size) > 0 {
		return &Set[T]{m: make(map[T]struct{}, size[0])}
	}
	return &Set[T]{m: make(map[T]struct{})}
}

// FromSlice returns a set containing the elements of the slice.
func FromSlice[T comparable](items []T) *Set[T] {
	s := Make[T](len(items))
	for _, i := range items {
		s.Add(i)
	}
	return s
}

// Add adds the item to the set, returning true if it was not already present.
func (s *Set[T]) Add(item T) bool {
	if s.m == nil {
		s.m = make(map[T]struct{})
	}
	_, ok := s.m[item]
	s.m[item] = struct{}{}
	return !ok
}

// Contains returns true if the item is present in the set.
func (s *Set[T]) Contains(item T) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[item]
	return ok
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// All returns an iterator over the elements of the set in non-deterministic
// order.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if s == nil {
			return
		}
		for k := range s.m {
			if !yield(k) {
				return
			}
		}
	}
}

// Slice returns the elements of the set as a slice that is safe to mutate.
// The order of the elements is non-deterministic.
func (s *Set[T]) Slice() []T {
	if s == nil || s.m == nil {
		return nil
	}
	return maps.Keys(s.m)
}

// Clone returns an independent copy of the set.
func (s *Set[T]) Clone() *Set[T] {
	out := Make[T](s.Len())
	for k := range s.All() {
		out.Add(k)
	}
	return out
}

// Equal returns true if both sets contain exactly the same elements.
func (s *Set[T]) Equal(o *Set[T]) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.All() {
		if !o.Contains(k) {
			return false
		}
	}
	return true
}
