package types

import "fmt"

// A Position describes a location within source text, as reported by the
// parsing front end alongside the syntax tree it produces.
type Position struct {
	// Filename is the name of the source file, if known.
	Filename string
	// Offset is the byte offset, starting at 0.
	Offset int
	// Line is the line number, starting at 1.
	Line int
	// Column is the column number, starting at 1.
	Column int
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
