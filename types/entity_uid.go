package types

import (
	"strconv"
	"strings"
)

// An Ident is a single unqualified identifier, e.g. `User`.
type Ident string

// A Path is a series of idents separated by `::`, e.g. `Namespace::User`. It
// also names extension functions, e.g. `ip` or `decimal`.
type Path string

// An EntityType is a Path that names a type of entity, e.g. `Photo` or
// `Namespace::Album`.
type EntityType string

// IsAction returns true if the entity type is an action type (`Action` or
// `*::Action`).
func (e EntityType) IsAction() bool {
	s := string(e)
	return s == "Action" || strings.HasSuffix(s, "::Action")
}

// An EntityUID is the identifier of a specific entity: its type paired with a
// unique identifier string, e.g. `User::"alice"`. EntityUIDs are immutable,
// comparable, and totally ordered so iteration over them can be made
// deterministic.
type EntityUID struct {
	Type EntityType
	ID   String
}

// NewEntityUID returns an EntityUID given an EntityType and identifier.
func NewEntityUID(typ EntityType, id String) EntityUID {
	return EntityUID{Type: typ, ID: id}
}

// IsZero returns true if the EntityUID has an empty Type and ID.
func (a EntityUID) IsZero() bool {
	return a.Type == "" && a.ID == ""
}

// Equal returns true if the input represents the same entity.
func (a EntityUID) Equal(b Value) bool {
	o, ok := b.(EntityUID)
	return ok && a == o
}

// Compare orders EntityUIDs lexicographically by (Type, ID), returning -1, 0,
// or 1.
func (a EntityUID) Compare(b EntityUID) int {
	if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
		return c
	}
	return strings.Compare(string(a.ID), string(b.ID))
}

// String produces a string representation of the EntityUID, e.g.
// `User::"alice"`.
func (a EntityUID) String() string {
	return string(a.Type) + "::" + strconv.Quote(string(a.ID))
}

// MarshalCedar produces a valid MarshalCedar language representation of the
// EntityUID, e.g. `User::"alice"`.
func (a EntityUID) MarshalCedar() []byte { return []byte(a.String()) }

func (a EntityUID) Hash() uint64 {
	return hashTagged("entity", hashTagged(string(a.Type), hashString(string(a.ID))))
}
