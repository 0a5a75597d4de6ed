package validate

import (
	"fmt"

	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

// checkValue validates that a runtime value matches the expected schema type.
func checkValue(v types.Value, expected schema.IsType) error {
	switch expected := expected.(type) {
	case schema.StringType:
		if _, ok := v.(types.String); !ok {
			return fmt.Errorf("expected String, got %s", types.TypeName(v))
		}
	case schema.LongType:
		if _, ok := v.(types.Long); !ok {
			return fmt.Errorf("expected Long, got %s", types.TypeName(v))
		}
	case schema.BoolType:
		if _, ok := v.(types.Boolean); !ok {
			return fmt.Errorf("expected Boolean, got %s", types.TypeName(v))
		}
	case schema.EntityType:
		uid, ok := v.(types.EntityUID)
		if !ok {
			return fmt.Errorf("expected EntityUID, got %s", types.TypeName(v))
		}
		if uid.Type != types.EntityType(expected) {
			return fmt.Errorf("expected entity type %q, got %q", expected, uid.Type)
		}
	case schema.SetType:
		set, ok := v.(types.Set)
		if !ok {
			return fmt.Errorf("expected Set, got %s", types.TypeName(v))
		}
		for elem := range set.All() {
			if err := checkValue(elem, expected.Element); err != nil {
				return fmt.Errorf("set element: %w", err)
			}
		}
	case schema.RecordType:
		rec, ok := v.(types.Record)
		if !ok {
			return fmt.Errorf("expected Record, got %s", types.TypeName(v))
		}
		return checkRecord(rec, expected)
	case schema.ExtensionType:
		return checkExtensionValue(v, expected)
	default:
		return fmt.Errorf("unknown schema type %T", expected)
	}
	return nil
}

// checkRecord validates a record against a record schema type. Records are
// closed: attributes the schema does not declare are rejected.
func checkRecord(rec types.Record, expected schema.RecordType) error {
	for name, attr := range expected {
		v, ok := rec.Get(name)
		if !ok {
			if !attr.Optional {
				return fmt.Errorf("missing required attribute %q", name)
			}
			continue
		}
		if err := checkValue(v, attr.Type); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}

	for k := range rec.All() {
		if _, ok := expected[k]; !ok {
			return fmt.Errorf("unexpected attribute %q", k)
		}
	}
	return nil
}

func checkExtensionValue(v types.Value, expected schema.ExtensionType) error {
	switch types.Ident(expected) {
	case "ipaddr":
		if _, ok := v.(types.IPAddr); !ok {
			return fmt.Errorf("expected IPAddr, got %s", types.TypeName(v))
		}
	case "decimal":
		if _, ok := v.(types.Decimal); !ok {
			return fmt.Errorf("expected Decimal, got %s", types.TypeName(v))
		}
	default:
		return fmt.Errorf("unknown extension type %q", expected)
	}
	return nil
}
