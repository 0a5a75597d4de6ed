package types

import "github.com/strongdm/gavel/internal/mapset"

// An Entity defines the parents, attributes, and tags of an EntityUID.
// Parents holds the entity's direct parents; transitive reachability is
// materialized by the EntityStore at construction time.
type Entity struct {
	UID        EntityUID
	Parents    *mapset.Set[EntityUID]
	Attributes Record
	Tags       Record
}

// NewEntity returns an Entity with the given UID, direct parents, and
// attributes, and no tags.
func NewEntity(uid EntityUID, parents []EntityUID, attrs RecordMap) Entity {
	return Entity{
		UID:        uid,
		Parents:    mapset.FromSlice(parents),
		Attributes: NewRecord(attrs),
	}
}
