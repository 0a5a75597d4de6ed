package validate

import (
	"slices"

	"github.com/strongdm/gavel/types"
)

// requestEnv is one (principal type, action, resource type, context type)
// combination a policy may be evaluated under. A policy type-checks only if
// it checks under every environment its scope admits.
type requestEnv struct {
	principalType types.EntityType
	actionUID     types.EntityUID
	resourceType  types.EntityType
	contextType   typeRecord
}

// generateRequestEnvs builds every request environment the schema's actions
// admit. Actions with no AppliesTo admit none.
func (v *Validator) generateRequestEnvs() []requestEnv {
	var envs []requestEnv
	for uid, action := range v.schema.Actions {
		if action.AppliesTo == nil {
			continue
		}
		ctx := schemaRecordToCedarType(action.AppliesTo.Context)
		for _, pt := range action.AppliesTo.Principals {
			for _, rt := range action.AppliesTo.Resources {
				envs = append(envs, requestEnv{
					principalType: pt,
					actionUID:     uid,
					resourceType:  rt,
					contextType:   ctx,
				})
			}
		}
	}
	return envs
}

// filterEnvsForPolicy keeps only the environments the policy's scope admits.
// A nil constraint slice means the scope is unconstrained.
func (v *Validator) filterEnvsForPolicy(envs []requestEnv, principalTypes, resourceTypes []types.EntityType, actionUIDs []types.EntityUID) []requestEnv {
	var filtered []requestEnv
	for _, env := range envs {
		if !matchesTypeConstraint(env.principalType, principalTypes) {
			continue
		}
		if !matchesTypeConstraint(env.resourceType, resourceTypes) {
			continue
		}
		if !v.matchesActionConstraint(env.actionUID, actionUIDs) {
			continue
		}
		filtered = append(filtered, env)
	}
	return filtered
}

func matchesTypeConstraint(et types.EntityType, constraints []types.EntityType) bool {
	if constraints == nil {
		return true
	}
	return slices.Contains(constraints, et)
}

func (v *Validator) matchesActionConstraint(actionUID types.EntityUID, constraints []types.EntityUID) bool {
	if constraints == nil {
		return true
	}
	for _, c := range constraints {
		if actionUID == c {
			return true
		}
		if v.isActionDescendant(actionUID, c, nil) {
			return true
		}
	}
	return false
}

// isActionDescendant returns true if actionUID lists ancestorUID, directly or
// transitively, among its action-group parents.
func (v *Validator) isActionDescendant(actionUID, ancestorUID types.EntityUID, seen map[types.EntityUID]bool) bool {
	if seen[actionUID] {
		return false
	}
	action, ok := v.schema.Actions[actionUID]
	if !ok {
		return false
	}
	if seen == nil {
		seen = map[types.EntityUID]bool{}
	}
	seen[actionUID] = true
	for _, parent := range action.Parents {
		if parent == ancestorUID {
			return true
		}
		if v.isActionDescendant(parent, ancestorUID, seen) {
			return true
		}
	}
	return false
}
