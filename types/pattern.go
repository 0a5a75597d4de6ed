package types

import (
	"bytes"
	"slices"
	"strings"
)

// A Pattern is a sequence of literal chunks and `*` wildcards used by the
// `like` operator. A wildcard matches any sequence of characters, including
// the empty sequence.
type Pattern struct {
	comps []patternComponent
}

// A patternComponent is an optional wildcard followed by a literal chunk.
// Literals merge into the preceding component, so only the first component
// can be starless and only the last can carry an empty chunk.
type patternComponent struct {
	star  bool
	chunk string
}

// NewPattern builds a Pattern from literal strings and Wildcard markers.
func NewPattern(components ...any) Pattern {
	var p Pattern
	for _, c := range components {
		switch c := c.(type) {
		case string:
			p = p.addLiteral(c)
		case String:
			p = p.addLiteral(string(c))
		case wildcard:
			p = p.addWildcard()
		default:
			panic("pattern components must be strings or Wildcard")
		}
	}
	return p
}

type wildcard struct{}

// Wildcard marks a `*` component in NewPattern.
var Wildcard = wildcard{}

func (p Pattern) addLiteral(s string) Pattern {
	comps := slices.Clone(p.comps)
	if len(comps) == 0 {
		comps = []patternComponent{{}}
	}
	comps[len(comps)-1].chunk += s
	return Pattern{comps: comps}
}

func (p Pattern) addWildcard() Pattern {
	comps := p.comps
	if len(comps) > 0 && comps[len(comps)-1].star && comps[len(comps)-1].chunk == "" {
		return p
	}
	comps = append(comps[:len(comps):len(comps)], patternComponent{star: true})
	return Pattern{comps: comps}
}

// Match returns true if the string matches the pattern. Each wildcard commits
// to the leftmost position where its trailing chunk matches, which is
// complete for this pattern language and keeps matching polynomial in the
// input rather than backtracking across wildcards.
func (p Pattern) Match(s string) bool {
Comps:
	for i, c := range p.comps {
		last := i == len(p.comps)-1
		if c.star && c.chunk == "" {
			if last {
				return true
			}
			continue
		}
		if rest, ok := strings.CutPrefix(s, c.chunk); ok && (!last || rest == "") {
			s = rest
			continue
		}
		if c.star {
			for j := 1; j <= len(s); j++ {
				if rest, ok := strings.CutPrefix(s[j:], c.chunk); ok {
					// the final chunk must land at the end of the input
					if last && rest != "" {
						continue
					}
					s = rest
					continue Comps
				}
			}
		}
		return false
	}
	return s == ""
}

// String produces the pattern's source form, e.g. `"a*b"` without quotes.
func (p Pattern) String() string {
	var sb bytes.Buffer
	for _, c := range p.comps {
		if c.star {
			sb.WriteRune('*')
		}
		sb.WriteString(strings.ReplaceAll(c.chunk, "*", `\*`))
	}
	return sb.String()
}
