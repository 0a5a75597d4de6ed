package types

import (
	"fmt"

	"github.com/strongdm/gavel/internal/mapset"
)

// An EntityGetter is the interface through which the evaluator looks up
// entities and their materialized ancestor sets.
type EntityGetter interface {
	// Get returns the entity with the given UID, or false if no such entity
	// exists.
	Get(uid EntityUID) (Entity, bool)
	// Ancestors returns the set of all entities reachable from uid through
	// the parent relation. The set includes uid itself only if the graph is
	// cyclic.
	Ancestors(uid EntityUID) *mapset.Set[EntityUID]
}

// An EntityStore is an immutable collection of entities with their ancestor
// reachability materialized. It is built once per call and is safe for
// concurrent readers.
//
// The parent relation is a general directed graph and may contain cycles in
// malformed input; reachability is computed with a cycle-safe traversal at
// construction so membership queries always terminate in O(1) expected time.
type EntityStore struct {
	entities  map[EntityUID]Entity
	ancestors map[EntityUID]*mapset.Set[EntityUID]
}

// NewEntityStore builds an EntityStore from a slice of entities. A duplicate
// EntityUID is a construction-time error.
func NewEntityStore(entities []Entity) (*EntityStore, error) {
	s := &EntityStore{
		entities:  make(map[EntityUID]Entity, len(entities)),
		ancestors: make(map[EntityUID]*mapset.Set[EntityUID], len(entities)),
	}
	for _, e := range entities {
		if _, ok := s.entities[e.UID]; ok {
			return nil, fmt.Errorf("duplicate entity %s", e.UID)
		}
		s.entities[e.UID] = e
	}
	for uid := range s.entities {
		s.ancestors[uid] = s.reach(uid)
	}
	return s, nil
}

// reach computes the set of entities reachable from uid through parent edges,
// excluding uid itself unless it participates in a cycle.
func (s *EntityStore) reach(uid EntityUID) *mapset.Set[EntityUID] {
	out := mapset.Make[EntityUID]()
	frontier := []EntityUID{uid}
	for len(frontier) > 0 {
		next := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		e, ok := s.entities[next]
		if !ok {
			// parents may reference entities absent from the store
			continue
		}
		for p := range e.Parents.All() {
			if out.Add(p) {
				frontier = append(frontier, p)
			}
		}
	}
	return out
}

// Get returns the entity with the given UID.
func (s *EntityStore) Get(uid EntityUID) (Entity, bool) {
	e, ok := s.entities[uid]
	return e, ok
}

// Ancestors returns the materialized ancestor set of uid. Unknown UIDs have
// an empty ancestor set.
func (s *EntityStore) Ancestors(uid EntityUID) *mapset.Set[EntityUID] {
	return s.ancestors[uid]
}

// Len returns the number of entities in the store.
func (s *EntityStore) Len() int { return len(s.entities) }

// All calls f for every entity in the store in non-deterministic order,
// stopping if f returns false.
func (s *EntityStore) All(f func(Entity) bool) {
	for _, e := range s.entities {
		if !f(e) {
			return
		}
	}
}
