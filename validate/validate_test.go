package validate

import (
	"testing"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/testutil"
	"github.com/strongdm/gavel/schema"
	"github.com/strongdm/gavel/types"
)

var (
	viewAction  = types.NewEntityUID("Action", "view")
	editAction  = types.NewEntityUID("Action", "edit")
	adminAction = types.NewEntityUID("Action", "admin")
)

func photoAppSchema() *schema.Schema {
	appliesTo := &schema.AppliesTo{
		Principals: []types.EntityType{"User"},
		Resources:  []types.EntityType{"Photo"},
		Context: schema.RecordType{
			"authenticated": {Type: schema.BoolType{}},
			"mfa":           {Type: schema.BoolType{}, Optional: true},
		},
	}
	return &schema.Schema{
		Entities: map[types.EntityType]schema.Entity{
			"User": {
				ParentTypes: []types.EntityType{"Group"},
				Shape: schema.RecordType{
					"name":     {Type: schema.StringType{}},
					"age":      {Type: schema.LongType{}},
					"nickname": {Type: schema.StringType{}, Optional: true},
				},
				Tags: schema.StringType{},
			},
			"Group": {},
			"Photo": {
				ParentTypes: []types.EntityType{"Album"},
				Shape: schema.RecordType{
					"owner":   {Type: schema.EntityType("User")},
					"private": {Type: schema.BoolType{}},
					"caption": {Type: schema.StringType{}, Optional: true},
				},
			},
			"Album": {},
		},
		Enums: map[types.EntityType]schema.Enum{
			"Visibility": {Values: []types.EntityUID{
				types.NewEntityUID("Visibility", "public"),
				types.NewEntityUID("Visibility", "private"),
			}},
		},
		Actions: map[types.EntityUID]schema.Action{
			viewAction:  {AppliesTo: appliesTo},
			adminAction: {},
			editAction: {
				Parents:   []types.EntityUID{adminAction},
				AppliesTo: appliesTo,
			},
		},
	}
}

func TestSchemaCheck(t *testing.T) {
	t.Parallel()
	testutil.OK(t, photoAppSchema().Check())

	bad := photoAppSchema()
	bad.Entities["Orphan"] = schema.Entity{ParentTypes: []types.EntityType{"Nowhere"}}
	testutil.Error(t, bad.Check())
}

func TestValidatePolicyScopes(t *testing.T) {
	t.Parallel()

	alice := types.NewEntityUID("User", "alice")
	admins := types.NewEntityUID("Group", "admins")

	tests := []struct {
		name   string
		policy *ast.Policy
		valid  bool
	}{
		{"allScopes", ast.Permit(), true},
		{"knownPrincipal", ast.Permit().PrincipalEq(alice).ActionEq(viewAction).ResourceIs("Photo"), true},
		{"principalInGroup", ast.Permit().PrincipalIn(admins), true},
		{"principalIsUser", ast.Permit().PrincipalIs("User"), true},
		{"resourceIsInAlbum", ast.Permit().ResourceIsIn("Photo", types.NewEntityUID("Album", "summer")), true},
		{"actionInGroup", ast.Permit().ActionIn(adminAction), true},
		{"actionInSet", ast.Permit().ActionInSet(viewAction, editAction), true},
		{"enumScopeValue", ast.Permit().PrincipalIs("Visibility"), false}, // view/edit only apply to User

		{"unknownPrincipalType", ast.Permit().PrincipalIs("Robot"), false},
		{"unknownPrincipalEntity", ast.Permit().PrincipalEq(types.NewEntityUID("Robot", "r2")), false},
		{"unknownAction", ast.Permit().ActionEq(types.NewEntityUID("Action", "destroy")), false},
		{"unknownResourceType", ast.Permit().ResourceIs("Document"), false},
		{"invalidEnumID", ast.Permit().PrincipalEq(types.NewEntityUID("Visibility", "hidden")), false},
		{"infeasibleIsIn", ast.Permit().PrincipalIsIn("User", types.NewEntityUID("Photo", "p")), false},
		{"noActionApplies", ast.Permit().PrincipalIs("Group"), false},

		{"templatePrincipalSlot", ast.Permit().PrincipalEqSlot().ActionEq(viewAction), true},
		{"templateResourceSlot", ast.Permit().ResourceInSlot(), true},
	}

	v := New(photoAppSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Policy(tt.policy)
			if tt.valid {
				testutil.OK(t, err)
			} else {
				testutil.Error(t, err)
			}
		})
	}
}

func TestValidateConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  ast.Node
		valid bool
	}{
		{"contextBool", ast.Context().Access("authenticated"), true},
		{"contextBoolEquality", ast.Context().Access("authenticated").Equal(ast.True()), true},
		{"longComparison", ast.Principal().Access("age").GreaterThan(ast.Long(21)), true},
		{"stringLike", ast.Principal().Access("name").Like(types.NewPattern("Al", types.Wildcard)), true},
		{"entityAttrChain", ast.Resource().Access("owner").Equal(ast.Principal()), true},
		{"hierarchyIn", ast.Principal().In(ast.EntityUID("Group", "admins")), true},
		{"isCheck", ast.Principal().Is("User"), true},
		{"notCondition", ast.Not(ast.Context().Access("authenticated")), true},

		{"guardedOptionalContext", ast.Context().Has("mfa").And(ast.Context().Access("mfa")), true},
		{"guardedOptionalAttr", ast.Principal().Has("nickname").And(
			ast.Principal().Access("nickname").Equal(ast.String("Al"))), true},
		{"unguardedOptionalContext", ast.Context().Access("mfa"), false},
		{"unguardedOptionalAttr", ast.Principal().Access("nickname").Equal(ast.String("Al")), false},
		{"orDoesNotGuard", ast.Context().Has("mfa").Or(ast.Context().Access("mfa")), false},
		{"guardedThenBranch", ast.IfThenElse(
			ast.Principal().Has("nickname"),
			ast.Principal().Access("nickname").Equal(ast.String("Al")),
			ast.False()), true},

		{"unknownAttr", ast.Principal().Access("height").GreaterThan(ast.Long(1)), false},
		{"unknownContextAttr", ast.Context().Access("bogus"), false},
		{"nonBoolCondition", ast.Principal().Access("age"), false},
		{"incompatibleEquality", ast.Principal().Access("age").Equal(ast.String("old")), false},
		{"comparisonOnString", ast.Principal().Access("name").LessThan(ast.Long(1)), false},
		{"arithOnBool", ast.Context().Access("authenticated").Add(ast.Long(1)), false},
		{"likeOnLong", ast.Principal().Access("age").Like(types.NewPattern(types.Wildcard)), false},
		{"inOnNonEntity", ast.Long(1).In(ast.Principal()), false},

		{"hasTagDeclared", ast.Principal().HasTag(ast.String("team")), true},
		{"guardedGetTag", ast.Principal().HasTag(ast.String("team")).And(
			ast.Principal().GetTag(ast.String("team")).Equal(ast.String("blue"))), true},
		{"unguardedGetTag", ast.Principal().GetTag(ast.String("team")).Equal(ast.String("blue")), false},
		{"hasTagOnTaglessType", ast.Resource().HasTag(ast.String("x")).Or(ast.True()), true},

		{"deadBranchBadEntityRef", ast.False().And(
			ast.Principal().Equal(ast.EntityUID("Ghost", "g"))), false},
		{"deadBranchGoodEntityRef", ast.False().And(
			ast.Principal().Equal(ast.EntityUID("User", "alice"))), true},

		{"extensionDecimalCompare", ast.ExtensionCall("lessThan",
			ast.ExtensionCall("decimal", ast.String("1.0")),
			ast.ExtensionCall("decimal", ast.String("2.0"))), true},
		{"extensionIPRange", ast.ExtensionCall("isInRange",
			ast.ExtensionCall("ip", ast.String("10.0.0.1")),
			ast.ExtensionCall("ip", ast.String("10.0.0.0/8"))), true},
		{"extensionBadArgType", ast.ExtensionCall("lessThan",
			ast.Long(1),
			ast.ExtensionCall("decimal", ast.String("2.0"))), false},
		{"extensionBadArity", ast.ExtensionCall("ip").Equal(ast.ExtensionCall("ip", ast.String("10.0.0.1"))), false},
		{"extensionUnknown", ast.ExtensionCall("frobnicate", ast.Long(1)), false},

		{"setMembership", ast.Set(ast.Long(1), ast.Long(2)).Contains(ast.Principal().Access("age")), true},
		{"emptySetContains", ast.Set().Contains(ast.Long(1)), false},
		{"heterogeneousSet", ast.Set(ast.Long(1), ast.String("a")).IsEmpty(), false},
	}

	v := New(photoAppSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Policy(ast.Permit().When(tt.body))
			if tt.valid {
				testutil.OK(t, err)
			} else {
				testutil.Error(t, err)
			}
		})
	}
}

func TestStrictVersusPermissive(t *testing.T) {
	t.Parallel()

	// A set mixing unrelated entity types is rejected in strict mode and
	// widened in permissive mode.
	policy := ast.Permit().When(
		ast.Set(ast.EntityUID("User", "a"), ast.EntityUID("Photo", "p")).
			Contains(ast.Principal()),
	)

	testutil.Error(t, New(photoAppSchema()).Policy(policy))
	testutil.OK(t, New(photoAppSchema(), WithPermissive()).Policy(policy))

	// WithStrict restores the default.
	testutil.Error(t, New(photoAppSchema(), WithPermissive(), WithStrict()).Policy(policy))
}

func TestValidatePolicySet(t *testing.T) {
	t.Parallel()

	v := New(photoAppSchema())
	pos := types.Position{Filename: "policies.cedar", Line: 7, Column: 1}
	broken := ast.Permit().PrincipalIs("Robot")
	broken.Position = pos

	res := v.PolicySet(map[types.PolicyID]*ast.Policy{
		"good":   ast.Permit().PrincipalIs("User"),
		"broken": broken,
	})
	testutil.Equals(t, res.Valid(), false)
	testutil.Equals(t, len(res.Errors), 1)
	testutil.Equals(t, res.Errors[0].PolicyID, types.PolicyID("broken"))
	testutil.Equals(t, res.Errors[0].Position, pos)

	ok := v.PolicySet(map[types.PolicyID]*ast.Policy{
		"good": ast.Permit().PrincipalIs("User"),
	})
	testutil.Equals(t, ok.Valid(), true)
}

// Multiple scope and condition problems in one policy surface as separate
// diagnostics.
func TestValidatePolicySetCollectsAll(t *testing.T) {
	t.Parallel()

	v := New(photoAppSchema())
	res := v.PolicySet(map[types.PolicyID]*ast.Policy{
		"doubly-broken": ast.Permit().
			PrincipalIs("Robot").
			ResourceIs("Document"),
	})
	testutil.Equals(t, res.Valid(), false)
	testutil.Equals(t, len(res.Errors), 2)
}

func TestValidateEntity(t *testing.T) {
	t.Parallel()

	alice := types.NewEntityUID("User", "alice")
	admins := types.NewEntityUID("Group", "admins")

	user := func(parents []types.EntityUID, attrs types.RecordMap) types.Entity {
		return types.NewEntity(alice, parents, attrs)
	}
	goodAttrs := types.RecordMap{"name": types.String("Alice"), "age": types.Long(34)}

	tests := []struct {
		name   string
		entity types.Entity
		valid  bool
	}{
		{"valid", user([]types.EntityUID{admins}, goodAttrs), true},
		{"validWithOptional", user(nil, types.RecordMap{
			"name": types.String("Alice"), "age": types.Long(34), "nickname": types.String("Al"),
		}), true},
		{"missingRequiredAttr", user(nil, types.RecordMap{"name": types.String("Alice")}), false},
		{"wrongAttrType", user(nil, types.RecordMap{
			"name": types.String("Alice"), "age": types.String("old"),
		}), false},
		{"unexpectedAttr", user(nil, types.RecordMap{
			"name": types.String("Alice"), "age": types.Long(34), "height": types.Long(170),
		}), false},
		{"wrongParentType", user([]types.EntityUID{types.NewEntityUID("Album", "x")}, goodAttrs), false},
		{"undeclaredType", types.NewEntity(types.NewEntityUID("Robot", "r2"), nil, nil), false},

		{"enumValid", types.NewEntity(types.NewEntityUID("Visibility", "public"), nil, nil), true},
		{"enumBadValue", types.NewEntity(types.NewEntityUID("Visibility", "hidden"), nil, nil), false},
		{"enumWithParents", types.NewEntity(types.NewEntityUID("Visibility", "public"),
			[]types.EntityUID{admins}, nil), false},

		{"actionValid", types.NewEntity(editAction, []types.EntityUID{adminAction}, nil), true},
		{"actionMissingParent", types.NewEntity(editAction, nil, nil), false},
		{"actionExtraParent", types.NewEntity(viewAction, []types.EntityUID{adminAction}, nil), false},
		{"actionUndeclared", types.NewEntity(types.NewEntityUID("Action", "destroy"), nil, nil), false},
	}

	v := New(photoAppSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Entity(tt.entity)
			if tt.valid {
				testutil.OK(t, err)
			} else {
				testutil.Error(t, err)
			}
		})
	}
}

func TestValidateEntityTags(t *testing.T) {
	t.Parallel()

	v := New(photoAppSchema())

	tagged := types.NewEntity(types.NewEntityUID("User", "alice"), nil, types.RecordMap{
		"name": types.String("Alice"), "age": types.Long(34),
	})
	tagged.Tags = types.NewRecord(types.RecordMap{"team": types.String("blue")})
	testutil.OK(t, v.Entity(tagged))

	badTag := tagged
	badTag.Tags = types.NewRecord(types.RecordMap{"team": types.Long(1)})
	testutil.Error(t, v.Entity(badTag))

	photoTagged := types.NewEntity(types.NewEntityUID("Photo", "p"), nil, types.RecordMap{
		"owner": types.NewEntityUID("User", "alice"), "private": types.False,
	})
	photoTagged.Tags = types.NewRecord(types.RecordMap{"x": types.String("y")})
	testutil.Error(t, v.Entity(photoTagged))
}

func TestValidateEntities(t *testing.T) {
	t.Parallel()

	v := New(photoAppSchema())
	good, err := types.NewEntityStore([]types.Entity{
		types.NewEntity(types.NewEntityUID("User", "alice"),
			[]types.EntityUID{types.NewEntityUID("Group", "admins")},
			types.RecordMap{"name": types.String("Alice"), "age": types.Long(34)}),
		types.NewEntity(types.NewEntityUID("Group", "admins"), nil, nil),
	})
	testutil.OK(t, err)
	testutil.OK(t, v.Entities(good))

	bad, err := types.NewEntityStore([]types.Entity{
		types.NewEntity(types.NewEntityUID("Robot", "r2"), nil, nil),
	})
	testutil.OK(t, err)
	testutil.Error(t, v.Entities(bad))
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	alice := types.NewEntityUID("User", "alice")
	photo := types.NewEntityUID("Photo", "p")
	ctx := types.NewRecord(types.RecordMap{"authenticated": types.True})

	tests := []struct {
		name  string
		req   types.Request
		valid bool
	}{
		{"valid", types.Request{Principal: alice, Action: viewAction, Resource: photo, Context: ctx}, true},
		{"validWithOptionalContext", types.Request{Principal: alice, Action: viewAction, Resource: photo,
			Context: types.NewRecord(types.RecordMap{"authenticated": types.True, "mfa": types.False})}, true},
		{"unknownAction", types.Request{Principal: alice, Action: types.NewEntityUID("Action", "destroy"),
			Resource: photo, Context: ctx}, false},
		{"actionWithoutAppliesTo", types.Request{Principal: alice, Action: adminAction,
			Resource: photo, Context: ctx}, false},
		{"wrongPrincipalType", types.Request{Principal: types.NewEntityUID("Group", "admins"),
			Action: viewAction, Resource: photo, Context: ctx}, false},
		{"wrongResourceType", types.Request{Principal: alice, Action: viewAction,
			Resource: types.NewEntityUID("Album", "a"), Context: ctx}, false},
		{"undeclaredPrincipalType", types.Request{Principal: types.NewEntityUID("Robot", "r2"),
			Action: viewAction, Resource: photo, Context: ctx}, false},
		{"missingContextAttr", types.Request{Principal: alice, Action: viewAction, Resource: photo,
			Context: types.Record{}}, false},
		{"unexpectedContextAttr", types.Request{Principal: alice, Action: viewAction, Resource: photo,
			Context: types.NewRecord(types.RecordMap{"authenticated": types.True, "extra": types.Long(1)})}, false},
		{"wrongContextAttrType", types.Request{Principal: alice, Action: viewAction, Resource: photo,
			Context: types.NewRecord(types.RecordMap{"authenticated": types.Long(1)})}, false},
	}

	v := New(photoAppSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Request(tt.req)
			if tt.valid {
				testutil.OK(t, err)
			} else {
				testutil.Error(t, err)
			}
		})
	}
}
