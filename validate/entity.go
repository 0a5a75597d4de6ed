package validate

import (
	"fmt"
	"slices"

	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

// Entity validates a single entity's parents, attributes, and tags against
// the schema.
func (v *Validator) Entity(entity types.Entity) error {
	et := entity.UID.Type

	if et.IsAction() {
		return v.validateActionEntity(entity)
	}

	if schemaEntity, ok := v.schema.Entities[et]; ok {
		return v.validateEntity(entity, schemaEntity)
	}

	if schemaEnum, ok := v.schema.Enums[et]; ok {
		return validateEnumEntity(entity, schemaEnum)
	}

	return fmt.Errorf("entity type %q not found in schema", et)
}

// Entities validates every entity in the store against the schema.
func (v *Validator) Entities(store *types.EntityStore) error {
	var err error
	store.All(func(entity types.Entity) bool {
		if e := v.Entity(entity); e != nil {
			err = fmt.Errorf("entity %s: %w", entity.UID, e)
			return false
		}
		return true
	})
	return err
}

func (v *Validator) validateActionEntity(entity types.Entity) error {
	action, ok := v.schema.Actions[entity.UID]
	if !ok {
		return fmt.Errorf("action %s not found in schema", entity.UID)
	}

	// The entity's parents must match the schema's action groups exactly.
	for parent := range entity.Parents.All() {
		if !slices.Contains(action.Parents, parent) {
			return fmt.Errorf("action %s has unexpected parent %s", entity.UID, parent)
		}
	}
	for _, parent := range action.Parents {
		if !entity.Parents.Contains(parent) {
			return fmt.Errorf("action %s missing expected parent %s", entity.UID, parent)
		}
	}

	return nil
}

func (v *Validator) validateEntity(entity types.Entity, schemaEntity schema.Entity) error {
	for parent := range entity.Parents.All() {
		if !slices.Contains(schemaEntity.ParentTypes, parent.Type) {
			return fmt.Errorf("invalid parent type %q for entity type %q", parent.Type, entity.UID.Type)
		}
		if schemaEnum, ok := v.schema.Enums[parent.Type]; ok {
			if !slices.Contains(schemaEnum.Values, parent) {
				return fmt.Errorf("invalid enum ID %q for enum type %q", parent.ID, parent.Type)
			}
		}
	}

	if err := checkRecord(entity.Attributes, schemaEntity.Shape); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}

	if schemaEntity.Tags == nil {
		if entity.Tags.Len() > 0 {
			return fmt.Errorf("entity type %q does not allow tags", entity.UID.Type)
		}
		return nil
	}
	for _, tagVal := range entity.Tags.All() {
		if err := checkValue(tagVal, schemaEntity.Tags); err != nil {
			return fmt.Errorf("tag value: %w", err)
		}
	}

	return nil
}

func validateEnumEntity(entity types.Entity, schemaEnum schema.Enum) error {
	if !slices.Contains(schemaEnum.Values, entity.UID) {
		return fmt.Errorf("invalid enum value %q for enum type %q", entity.UID.ID, entity.UID.Type)
	}

	if entity.Parents.Len() > 0 {
		return fmt.Errorf("enum entity %s should not have parents", entity.UID)
	}
	if entity.Attributes.Len() > 0 {
		return fmt.Errorf("enum entity %s should not have attributes", entity.UID)
	}
	if entity.Tags.Len() > 0 {
		return fmt.Errorf("enum entity %s should not have tags", entity.UID)
	}

	return nil
}
