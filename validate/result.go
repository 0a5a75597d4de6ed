package validate

import (
	"maps"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/types"
)

// A Diagnostic is one validation failure, attributed to a policy and its
// source position.
type Diagnostic struct {
	PolicyID types.PolicyID
	Position types.Position
	Message  string
}

// A Result is the outcome of validating a policy set.
type Result struct {
	Errors []Diagnostic
}

// Valid reports whether validation found no errors.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// PolicySet validates every policy in the set and collects diagnostics,
// ordered by policy ID. Validating one policy never masks failures in
// another.
func (v *Validator) PolicySet(policies map[types.PolicyID]*ast.Policy) Result {
	var out Result
	for _, id := range slices.Sorted(maps.Keys(policies)) {
		p := policies[id]
		err := v.Policy(p)
		if err == nil {
			continue
		}
		for _, e := range flatten(err) {
			out.Errors = append(out.Errors, Diagnostic{
				PolicyID: id,
				Position: p.Position,
				Message:  e.Error(),
			})
		}
	}
	return out
}

// flatten splits an error produced by errors.Join into its parts.
func flatten(err error) []error {
	if m, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range m.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
