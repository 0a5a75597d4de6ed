package eval

import (
	"errors"
	"fmt"

	"github.com/strongdm/gavel/types"
)

// The evaluation error kinds. Every error returned by Eval wraps exactly one
// of these sentinels, so callers can classify failures with errors.Is.
var (
	// ErrType is an operation applied to values of the wrong type.
	ErrType = errors.New("type error")
	// ErrAttributeAccess is an access to an attribute or tag that is not
	// present.
	ErrAttributeAccess = errors.New("attribute access error")
	// ErrEntityNotExist is an attribute access on an entity not present in
	// the store.
	ErrEntityNotExist = errors.New("entity does not exist")
	// ErrUnknownExtensionFunction is a call to a function not in the
	// extension registry.
	ErrUnknownExtensionFunction = errors.New("unknown extension function")
	// ErrExtension is a domain error reported by an extension function.
	ErrExtension = errors.New("extension error")
	// ErrOverflow is 64-bit integer arithmetic leaving the representable
	// range. Arithmetic fails rather than wrapping.
	ErrOverflow = errors.New("integer overflow")
	// ErrUnlinkedSlot is evaluation of a template whose slots were never
	// filled.
	ErrUnlinkedSlot = errors.New("template slot was not linked")
	// ErrRecursionLimit is an expression nested beyond the evaluator's
	// depth cap.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrNonValue is concrete evaluation of an expression that contains
	// unknowns; use partial evaluation instead.
	ErrNonValue = errors.New("expression contains unknowns")
)

func typeError(got types.Value, expected string) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrType, expected, types.TypeName(got))
}

func overflowError(op string, args ...types.Value) error {
	switch len(args) {
	case 1:
		return fmt.Errorf("%w while attempting to %s the value `%s`", ErrOverflow, op, args[0])
	default:
		return fmt.Errorf("%w while attempting to %s the values `%s` and `%s`", ErrOverflow, op, args[0], args[1])
	}
}

func entityNotExistError(uid types.EntityUID) error {
	return fmt.Errorf("%w: `%s`", ErrEntityNotExist, uid)
}

func attrError(on fmt.Stringer, attr types.String) error {
	return fmt.Errorf("%w: `%s` does not have the attribute `%s`", ErrAttributeAccess, on, attr)
}

func tagError(uid types.EntityUID, tag types.String) error {
	return fmt.Errorf("%w: `%s` does not have the tag `%s`", ErrAttributeAccess, uid, tag)
}
