package validate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

// Policy validates a policy against the schema: scope constraints must name
// declared entities and actions, some action must actually apply to the
// scope's principal and resource types, and every condition must type-check
// to boolean under every request environment the scope admits.
func (v *Validator) Policy(policy *ast.Policy) error {
	var errs []error

	principalTypes, err := v.validatePrincipalScope(policy.Principal)
	if err != nil {
		errs = append(errs, fmt.Errorf("principal scope: %w", err))
	}

	actionUIDs, err := v.validateActionScope(policy.Action)
	if err != nil {
		errs = append(errs, fmt.Errorf("action scope: %w", err))
	}

	resourceTypes, err := v.validateResourceScope(policy.Resource)
	if err != nil {
		errs = append(errs, fmt.Errorf("resource scope: %w", err))
	}

	if len(errs) == 0 {
		if err := v.validateActionApplication(principalTypes, resourceTypes, actionUIDs); err != nil {
			errs = append(errs, err)
		}
	}

	envs := v.filterEnvsForPolicy(v.generateRequestEnvs(), principalTypes, resourceTypes, actionUIDs)
	if len(envs) > 0 && len(policy.Conditions) > 0 {
		if err := v.typecheckConditions(envs, policy.Conditions); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// scopeRef splits an EntityReference into its concrete UID, if any. Slots
// are legal in templates; their filler is unknown until link time, so they
// constrain nothing here.
func scopeRef(ref ast.EntityReference) (types.EntityUID, bool) {
	if r, ok := ref.(ast.EntityUIDReference); ok {
		return r.UID, true
	}
	return types.EntityUID{}, false
}

// validatePrincipalScope validates the principal scope and returns the
// entity types it constrains to. nil means unconstrained.
func (v *Validator) validatePrincipalScope(scope ast.IsPrincipalScopeNode) ([]types.EntityType, error) {
	return v.validateEntityScope(scope)
}

// validateResourceScope validates the resource scope and returns the entity
// types it constrains to. nil means unconstrained.
func (v *Validator) validateResourceScope(scope ast.IsResourceScopeNode) ([]types.EntityType, error) {
	return v.validateEntityScope(scope)
}

func (v *Validator) validateEntityScope(scope ast.IsScopeNode) ([]types.EntityType, error) {
	switch sc := scope.(type) {
	case ast.ScopeTypeAll:
		return nil, nil
	case ast.ScopeTypeEq:
		uid, ok := scopeRef(sc.Entity)
		if !ok {
			return nil, nil
		}
		return v.validateScopeEntity(uid)
	case ast.ScopeTypeIn:
		uid, ok := scopeRef(sc.Entity)
		if !ok {
			return nil, nil
		}
		if _, err := v.validateScopeEntity(uid); err != nil {
			return nil, err
		}
		return v.entityTypesIn(uid.Type), nil
	case ast.ScopeTypeIs:
		return v.validateScopeType(sc.Type)
	case ast.ScopeTypeIsIn:
		scopeTypes, err := v.validateScopeType(sc.Type)
		if err != nil {
			return nil, err
		}
		uid, ok := scopeRef(sc.Entity)
		if !ok {
			return scopeTypes, nil
		}
		if _, err := v.validateScopeEntity(uid); err != nil {
			return nil, err
		}
		if !slices.Contains(v.entityTypesIn(uid.Type), sc.Type) {
			return nil, fmt.Errorf("entity type %q can never be a member of entity type %q", sc.Type, uid.Type)
		}
		return scopeTypes, nil
	default:
		return nil, fmt.Errorf("unknown scope type %T", scope)
	}
}

// validateActionScope validates the action scope and returns the action UIDs
// it constrains to. nil means unconstrained.
func (v *Validator) validateActionScope(scope ast.IsActionScopeNode) ([]types.EntityUID, error) {
	checkAction := func(uid types.EntityUID) error {
		if _, ok := v.schema.Actions[uid]; !ok {
			return fmt.Errorf("action %s not found in schema", uid)
		}
		return nil
	}
	switch sc := scope.(type) {
	case ast.ScopeTypeAll:
		return nil, nil
	case ast.ScopeTypeActionEq:
		if err := checkAction(sc.Entity); err != nil {
			return nil, err
		}
		return []types.EntityUID{sc.Entity}, nil
	case ast.ScopeTypeActionIn:
		if err := checkAction(sc.Entity); err != nil {
			return nil, err
		}
		return []types.EntityUID{sc.Entity}, nil
	case ast.ScopeTypeActionInSet:
		uids := make([]types.EntityUID, 0, len(sc.Entities))
		for _, uid := range sc.Entities {
			if err := checkAction(uid); err != nil {
				return nil, err
			}
			uids = append(uids, uid)
		}
		return uids, nil
	default:
		return nil, fmt.Errorf("unknown action scope type %T", scope)
	}
}

func (v *Validator) validateScopeEntity(uid types.EntityUID) ([]types.EntityType, error) {
	et := uid.Type
	if _, ok := v.schema.Entities[et]; ok {
		return []types.EntityType{et}, nil
	}
	if schemaEnum, ok := v.schema.Enums[et]; ok {
		if !slices.Contains(schemaEnum.Values, uid) {
			return nil, fmt.Errorf("invalid enum value %q for type %q", uid.ID, et)
		}
		return []types.EntityType{et}, nil
	}
	if et.IsAction() {
		if _, ok := v.schema.Actions[uid]; ok {
			return []types.EntityType{et}, nil
		}
	}
	return nil, fmt.Errorf("entity type %q not found in schema", et)
}

func (v *Validator) validateScopeType(et types.EntityType) ([]types.EntityType, error) {
	if v.schema.HasEntityType(et) {
		return []types.EntityType{et}, nil
	}
	return nil, fmt.Errorf("entity type %q not found in schema", et)
}

// validateActionApplication checks that at least one action in scope applies
// to some principal and resource type the scope admits.
func (v *Validator) validateActionApplication(principalTypes, resourceTypes []types.EntityType, actionUIDs []types.EntityUID) error {
	if principalTypes == nil && resourceTypes == nil && actionUIDs == nil {
		return nil
	}

	var actions []schema.Action
	if actionUIDs == nil {
		for _, a := range v.schema.Actions {
			actions = append(actions, a)
		}
	} else {
		for _, uid := range actionUIDs {
			if a, ok := v.schema.Actions[uid]; ok {
				actions = append(actions, a)
			}
			for aUID, a := range v.schema.Actions {
				if aUID != uid && v.isActionDescendant(aUID, uid, nil) {
					actions = append(actions, a)
				}
			}
		}
	}

	for _, action := range actions {
		if action.AppliesTo == nil {
			continue
		}
		principalMatch := principalTypes == nil
		for _, pt := range principalTypes {
			if slices.Contains(action.AppliesTo.Principals, pt) {
				principalMatch = true
				break
			}
		}
		resourceMatch := resourceTypes == nil
		for _, rt := range resourceTypes {
			if slices.Contains(action.AppliesTo.Resources, rt) {
				resourceMatch = true
				break
			}
		}
		if principalMatch && resourceMatch {
			return nil
		}
	}

	return fmt.Errorf("no action applies to the given principal and resource type constraints")
}

// entityTypesIn returns every entity type whose members can be in the
// hierarchy of the given type, including the type itself.
func (v *Validator) entityTypesIn(target types.EntityType) []types.EntityType {
	result := []types.EntityType{target}
	changed := true
	for changed {
		changed = false
		for name, entity := range v.schema.Entities {
			if slices.Contains(result, name) {
				continue
			}
			for _, parent := range entity.ParentTypes {
				if slices.Contains(result, parent) {
					result = append(result, name)
					changed = true
					break
				}
			}
		}
	}
	return result
}

func (v *Validator) typecheckConditions(envs []requestEnv, conditions []ast.ConditionType) error {
	var errs []error
	for _, env := range envs {
		for i, cond := range conditions {
			t, _, err := v.typeOfExpr(&env, cond.Body, newCapabilitySet(), 0)
			if err != nil {
				errs = append(errs, fmt.Errorf("condition %d: %w", i, err))
				continue
			}
			if !isBoolType(t) {
				errs = append(errs, fmt.Errorf("condition %d: expected boolean type, got %T", i, t))
			}
		}
	}
	return errors.Join(errs...)
}
