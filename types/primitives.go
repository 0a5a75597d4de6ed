package types

import "strconv"

// A Boolean is a value that is either true or false.
type Boolean bool

// The two Boolean constants.
const (
	True  = Boolean(true)
	False = Boolean(false)
)

// Equal returns true if the input represents the same boolean.
func (v Boolean) Equal(b Value) bool {
	o, ok := b.(Boolean)
	return ok && v == o
}

// String produces a string representation of the Boolean, e.g. `true`.
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

// MarshalCedar produces a valid MarshalCedar language representation of the
// Boolean, e.g. `true`.
func (v Boolean) MarshalCedar() []byte { return []byte(v.String()) }

func (v Boolean) Hash() uint64 {
	if v {
		return hashTagged("bool", 1)
	}
	return hashTagged("bool", 0)
}

// A Long is a signed 64 bit integer.
type Long int64

// Equal returns true if the input represents the same integer.
func (v Long) Equal(b Value) bool {
	o, ok := b.(Long)
	return ok && v == o
}

// String produces a string representation of the Long, e.g. `42`.
func (v Long) String() string { return strconv.FormatInt(int64(v), 10) }

// MarshalCedar produces a valid MarshalCedar language representation of the
// Long, e.g. `42`.
func (v Long) MarshalCedar() []byte { return []byte(v.String()) }

func (v Long) Hash() uint64 { return hashTagged("long", uint64(v)) }

// A String is a sequence of characters consisting of letters, numbers, or
// symbols.
type String string

// Equal returns true if the input represents the same string.
func (v String) Equal(b Value) bool {
	o, ok := b.(String)
	return ok && v == o
}

// String produces an unquoted string representation of the String, e.g.
// `hello`.
func (v String) String() string { return string(v) }

// MarshalCedar produces a valid MarshalCedar language representation of the
// String, e.g. `"hello"`.
func (v String) MarshalCedar() []byte { return []byte(strconv.Quote(string(v))) }

func (v String) Hash() uint64 { return hashTagged("string", hashString(string(v))) }
