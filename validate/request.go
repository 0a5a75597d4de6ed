package validate

import (
	"fmt"
	"slices"

	"github.com/strongdm/gavel/types"
)

// Request validates a concrete request against the schema: the action must be
// declared, the principal and resource types must be ones the action applies
// to, and the context must match the action's declared context shape.
func (v *Validator) Request(req types.Request) error {
	action, ok := v.schema.Actions[req.Action]
	if !ok {
		return fmt.Errorf("action %s not found in schema", req.Action)
	}

	if action.AppliesTo == nil {
		return fmt.Errorf("action %s has no appliesTo", req.Action)
	}

	if err := v.validateRequestEntityType(req.Principal, "principal"); err != nil {
		return err
	}
	if !slices.Contains(action.AppliesTo.Principals, req.Principal.Type) {
		return fmt.Errorf("principal type %q not valid for action %s", req.Principal.Type, req.Action)
	}

	if err := v.validateRequestEntityType(req.Resource, "resource"); err != nil {
		return err
	}
	if !slices.Contains(action.AppliesTo.Resources, req.Resource.Type) {
		return fmt.Errorf("resource type %q not valid for action %s", req.Resource.Type, req.Action)
	}

	if schemaEnum, ok := v.schema.Enums[req.Principal.Type]; ok {
		if !slices.Contains(schemaEnum.Values, req.Principal) {
			return fmt.Errorf("invalid enum ID %q for principal type %q", req.Principal.ID, req.Principal.Type)
		}
	}
	if schemaEnum, ok := v.schema.Enums[req.Resource.Type]; ok {
		if !slices.Contains(schemaEnum.Values, req.Resource) {
			return fmt.Errorf("invalid enum ID %q for resource type %q", req.Resource.ID, req.Resource.Type)
		}
	}

	if err := checkRecord(req.Context, action.AppliesTo.Context); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (v *Validator) validateRequestEntityType(uid types.EntityUID, role string) error {
	if v.schema.HasEntityType(uid.Type) {
		return nil
	}
	return fmt.Errorf("%s type %q not found in schema", role, uid.Type)
}
