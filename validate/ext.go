package validate

import (
	"github.com/strongdm/gavel/internal/extensions"
	"github.com/strongdm/gavel/types"
)

type extFuncSig struct {
	argTypes   []cedarType
	returnType cedarType
}

// extFuncTypes is derived from the extension registry, so the checker and the
// evaluator always agree on each function's signature.
var extFuncTypes = buildExtFuncTypes()

func buildExtFuncTypes() map[types.Path]extFuncSig {
	out := make(map[types.Path]extFuncSig, len(extensions.Registry))
	for name, fn := range extensions.Registry {
		sig := extFuncSig{
			argTypes:   make([]cedarType, len(fn.Args)),
			returnType: schemaTypeToCedarType(fn.Return),
		}
		for i, at := range fn.Args {
			sig.argTypes[i] = schemaTypeToCedarType(at)
		}
		out[name] = sig
	}
	return out
}
