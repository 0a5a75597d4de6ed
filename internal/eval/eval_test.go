package eval

import (
	"math"
	"testing"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/testutil"
	"github.com/strongdm/gavel/types"
)

var (
	alice  = types.NewEntityUID("User", "alice")
	bob    = types.NewEntityUID("User", "bob")
	admins = types.NewEntityUID("Group", "admins")
	staff  = types.NewEntityUID("Group", "staff")
	view   = types.NewEntityUID("Action", "view")
	photo  = types.NewEntityUID("Photo", "pic.jpg")
)

func testEnv(t testing.TB) Env {
	t.Helper()
	docs := types.NewEntityUID("Folder", "docs")
	aliceEnt := types.NewEntity(alice, []types.EntityUID{admins}, types.RecordMap{
		"age":  types.Long(34),
		"name": types.String("Alice"),
	})
	aliceEnt.Tags = types.NewRecord(types.RecordMap{"team": types.String("blue")})
	store, err := types.NewEntityStore([]types.Entity{
		aliceEnt,
		types.NewEntity(bob, nil, nil),
		types.NewEntity(admins, []types.EntityUID{staff}, nil),
		types.NewEntity(staff, nil, nil),
		types.NewEntity(photo, []types.EntityUID{docs}, nil),
		types.NewEntity(docs, nil, nil),
	})
	testutil.OK(t, err)
	return Env{
		Entities:  store,
		Principal: alice,
		Action:    view,
		Resource:  photo,
		Context: types.NewRecord(types.RecordMap{
			"authenticated": types.True,
			"count":         types.Long(3),
		}),
	}
}

func TestEvalOperators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr ast.Node
		want types.Value
	}{
		{"literal", ast.Long(42), types.Long(42)},
		{"principalVariable", ast.Principal(), alice},
		{"contextAccess", ast.Context().Access("count"), types.Long(3)},

		{"andTrue", ast.True().And(ast.True()), types.True},
		{"andFalse", ast.True().And(ast.False()), types.False},
		{"orTrue", ast.False().Or(ast.True()), types.True},
		{"notTrue", ast.Not(ast.True()), types.False},
		{"ifThen", ast.IfThenElse(ast.True(), ast.Long(1), ast.Long(2)), types.Long(1)},
		{"ifElse", ast.IfThenElse(ast.False(), ast.Long(1), ast.Long(2)), types.Long(2)},

		{"equalsTrue", ast.Long(1).Equal(ast.Long(1)), types.True},
		{"equalsCrossType", ast.Long(1).Equal(ast.String("1")), types.False},
		{"notEquals", ast.Long(1).NotEqual(ast.Long(2)), types.True},
		{"lessThan", ast.Long(1).LessThan(ast.Long(2)), types.True},
		{"lessThanOrEqual", ast.Long(2).LessThanOrEqual(ast.Long(2)), types.True},
		{"greaterThan", ast.Long(1).GreaterThan(ast.Long(2)), types.False},
		{"greaterThanOrEqual", ast.Long(2).GreaterThanOrEqual(ast.Long(3)), types.False},

		{"add", ast.Long(1).Add(ast.Long(2)), types.Long(3)},
		{"subtract", ast.Long(1).Subtract(ast.Long(2)), types.Long(-1)},
		{"multiply", ast.Long(3).Multiply(ast.Long(4)), types.Long(12)},
		{"negate", ast.Negate(ast.Long(5)), types.Long(-5)},

		{"inSelf", ast.Principal().In(ast.EntityUID("User", "alice")), types.True},
		{"inDirectParent", ast.Principal().In(ast.EntityUID("Group", "admins")), types.True},
		{"inTransitiveParent", ast.Principal().In(ast.EntityUID("Group", "staff")), types.True},
		{"notIn", ast.Value(bob).In(ast.EntityUID("Group", "admins")), types.False},
		{"inSet", ast.Principal().In(ast.Set(ast.EntityUID("Group", "admins"), ast.EntityUID("Group", "other"))), types.True},
		{"inAbsentEntity", ast.Value(types.NewEntityUID("User", "ghost")).In(ast.EntityUID("Group", "admins")), types.False},

		{"isMatch", ast.Principal().Is("User"), types.True},
		{"isMismatch", ast.Principal().Is("Group"), types.False},
		{"isInMatch", ast.Principal().IsIn("User", ast.EntityUID("Group", "admins")), types.True},
		{"isInTypeMismatch", ast.Principal().IsIn("Group", ast.EntityUID("Group", "admins")), types.False},

		{"contains", ast.Set(ast.Long(1), ast.Long(2)).Contains(ast.Long(2)), types.True},
		{"containsAll", ast.Set(ast.Long(1), ast.Long(2), ast.Long(3)).ContainsAll(ast.Set(ast.Long(1), ast.Long(3))), types.True},
		{"containsAllMissing", ast.Set(ast.Long(1)).ContainsAll(ast.Set(ast.Long(1), ast.Long(3))), types.False},
		{"containsAny", ast.Set(ast.Long(1)).ContainsAny(ast.Set(ast.Long(1), ast.Long(3))), types.True},
		{"containsAnyNone", ast.Set(ast.Long(1)).ContainsAny(ast.Set(ast.Long(2))), types.False},
		{"isEmptyTrue", ast.Set().IsEmpty(), types.True},
		{"isEmptyFalse", ast.Set(ast.Long(1)).IsEmpty(), types.False},

		{"likeMatch", ast.String("photo.jpg").Like(types.NewPattern(types.Wildcard, ".jpg")), types.True},
		{"likeMismatch", ast.String("photo.png").Like(types.NewPattern(types.Wildcard, ".jpg")), types.False},
		{"likeLiteralStar", ast.String("a*b").Like(types.NewPattern("a", types.Wildcard, "b")), types.True},

		{"hasEntityAttr", ast.Principal().Has("age"), types.True},
		{"hasEntityAttrMissing", ast.Principal().Has("height"), types.False},
		{"hasAbsentEntity", ast.Value(types.NewEntityUID("User", "ghost")).Has("age"), types.False},
		{"hasRecordAttr", ast.Context().Has("authenticated"), types.True},
		{"accessEntityAttr", ast.Principal().Access("name"), types.String("Alice")},

		{"hasTagTrue", ast.Principal().HasTag(ast.String("team")), types.True},
		{"hasTagFalse", ast.Principal().HasTag(ast.String("org")), types.False},
		{"hasTagAbsentEntity", ast.Value(types.NewEntityUID("User", "ghost")).HasTag(ast.String("team")), types.False},
		{"getTag", ast.Principal().GetTag(ast.String("team")), types.String("blue")},

		{"setLiteral", ast.Set(ast.Long(1), ast.Long(2)), types.NewSet([]types.Value{types.Long(1), types.Long(2)})},
		{"recordLiteral", ast.Record(ast.Pairs{{Key: "a", Value: ast.Long(1)}}), types.NewRecord(types.RecordMap{"a": types.Long(1)})},
	}

	env := testEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Eval(tt.expr.AsIsNode(), env)
			testutil.OK(t, err)
			testutil.FatalIf(t, !v.Equal(tt.want), "got %v want %v", v, tt.want)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr ast.Node
		want error
	}{
		{"andNonBool", ast.Long(1).And(ast.True()), ErrType},
		{"notNonBool", ast.Not(ast.Long(1)), ErrType},
		{"compareNonLong", ast.String("a").LessThan(ast.Long(1)), ErrType},
		{"addNonLong", ast.Long(1).Add(ast.String("a")), ErrType},
		{"inNonEntity", ast.Long(1).In(ast.Long(2)), ErrType},
		{"inSetNonEntity", ast.Principal().In(ast.Set(ast.Long(1))), ErrType},
		{"containsNonSet", ast.Long(1).Contains(ast.Long(1)), ErrType},
		{"likeNonString", ast.Long(1).Like(types.NewPattern(types.Wildcard)), ErrType},
		{"hasNonEntity", ast.Long(1).Has("a"), ErrType},

		{"addOverflow", ast.Long(math.MaxInt64).Add(ast.Long(1)), ErrOverflow},
		{"subOverflow", ast.Long(math.MinInt64).Subtract(ast.Long(1)), ErrOverflow},
		{"multOverflow", ast.Long(math.MaxInt64).Multiply(ast.Long(2)), ErrOverflow},
		{"negateOverflow", ast.Negate(ast.Long(math.MinInt64)), ErrOverflow},

		{"accessMissingAttr", ast.Principal().Access("height"), ErrAttributeAccess},
		{"accessAbsentEntity", ast.Value(types.NewEntityUID("User", "ghost")).Access("age"), ErrEntityNotExist},
		{"getTagMissing", ast.Principal().GetTag(ast.String("org")), ErrAttributeAccess},
		{"getTagAbsentEntity", ast.Value(types.NewEntityUID("User", "ghost")).GetTag(ast.String("team")), ErrEntityNotExist},

		{"unknownExtension", ast.ExtensionCall("frobnicate", ast.Long(1)), ErrUnknownExtensionFunction},
		{"extensionArity", ast.ExtensionCall("ip"), ErrType},
		{"extensionArgType", ast.ExtensionCall("ip", ast.Long(1)), ErrType},
		{"extensionDomain", ast.ExtensionCall("ip", ast.String("not an ip")), ErrExtension},

		{"unknownNode", ast.Unknown("u"), ErrNonValue},
	}

	env := testEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Eval(tt.expr.AsIsNode(), env)
			testutil.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvalShortCircuit(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	erroring := ast.Long(1).Add(ast.String("boom")).Equal(ast.Long(2))

	tests := []struct {
		name string
		expr ast.Node
		want types.Value
	}{
		{"andFalseSkipsRHS", ast.False().And(erroring), types.False},
		{"orTrueSkipsRHS", ast.True().Or(erroring), types.True},
		{"ifSkipsUntakenThen", ast.IfThenElse(ast.False(), erroring, ast.Long(2)), types.Long(2)},
		{"ifSkipsUntakenElse", ast.IfThenElse(ast.True(), ast.Long(2), erroring), types.Long(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Eval(tt.expr.AsIsNode(), env)
			testutil.OK(t, err)
			testutil.FatalIf(t, !v.Equal(tt.want), "got %v want %v", v, tt.want)
		})
	}
}

func TestEvalRecursionLimit(t *testing.T) {
	t.Parallel()

	expr := ast.Long(0)
	for range maxDepth + 1 {
		expr = ast.Negate(expr)
	}
	_, err := Eval(expr.AsIsNode(), testEnv(t))
	testutil.ErrorIs(t, err, ErrRecursionLimit)
}

func TestEvalExtensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr ast.Node
		want types.Value
	}{
		{"decimalLessThan", ast.ExtensionCall("lessThan",
			ast.ExtensionCall("decimal", ast.String("1.25")),
			ast.ExtensionCall("decimal", ast.String("2.5"))), types.True},
		{"decimalGreaterThanOrEqual", ast.ExtensionCall("greaterThanOrEqual",
			ast.ExtensionCall("decimal", ast.String("2.50")),
			ast.ExtensionCall("decimal", ast.String("2.5"))), types.True},
		{"decimalEquality", ast.ExtensionCall("decimal", ast.String("1.20")).
			Equal(ast.ExtensionCall("decimal", ast.String("1.2"))), types.True},
		{"ipIsLoopback", ast.ExtensionCall("isLoopback",
			ast.ExtensionCall("ip", ast.String("127.0.0.1"))), types.True},
		{"ipIsIpv4", ast.ExtensionCall("isIpv4",
			ast.ExtensionCall("ip", ast.String("192.168.0.1"))), types.True},
		{"ipInRange", ast.ExtensionCall("isInRange",
			ast.ExtensionCall("ip", ast.String("192.168.0.42")),
			ast.ExtensionCall("ip", ast.String("192.168.0.0/24"))), types.True},
		{"ipNotInRange", ast.ExtensionCall("isInRange",
			ast.ExtensionCall("ip", ast.String("10.0.0.1")),
			ast.ExtensionCall("ip", ast.String("192.168.0.0/24"))), types.False},
	}

	env := testEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Eval(tt.expr.AsIsNode(), env)
			testutil.OK(t, err)
			testutil.FatalIf(t, !v.Equal(tt.want), "got %v want %v", v, tt.want)
		})
	}
}

func TestEvalNilStore(t *testing.T) {
	t.Parallel()

	env := Env{Principal: alice, Action: view, Resource: photo, Context: types.Record{}}

	v, err := Eval(ast.Principal().In(ast.EntityUID("Group", "admins")).AsIsNode(), env)
	testutil.OK(t, err)
	testutil.Equals(t, v, types.Value(types.False))

	v, err = Eval(ast.Principal().Has("age").AsIsNode(), env)
	testutil.OK(t, err)
	testutil.Equals(t, v, types.Value(types.False))

	_, err = Eval(ast.Principal().Access("age").AsIsNode(), env)
	testutil.ErrorIs(t, err, ErrEntityNotExist)
}

func TestEvalNonConcreteEnv(t *testing.T) {
	t.Parallel()

	base := Env{Principal: alice, Action: view, Resource: photo, Context: types.Record{}}

	env := base
	env.Context = types.NewRecord(types.RecordMap{"a": Variable("x")})
	_, err := Eval(ast.Context().Access("a").Equal(ast.True()).AsIsNode(), env)
	testutil.ErrorIs(t, err, ErrNonValue)

	env = base
	env.Context = types.NewRecord(types.RecordMap{
		"tags": types.NewSet([]types.Value{Variable("x")}),
	})
	_, err = Eval(ast.Context().Has("a").AsIsNode(), env)
	testutil.ErrorIs(t, err, ErrNonValue)

	env = base
	env.Principal = Variable("principal")
	_, err = Eval(ast.Principal().AsIsNode(), env)
	testutil.ErrorIs(t, err, ErrNonValue)

	_, err = Eval(ast.Value(Variable("x")).Equal(ast.True()).AsIsNode(), base)
	testutil.ErrorIs(t, err, ErrNonValue)
}

func TestBoolEval(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	b, err := BoolEval(ast.True().AsIsNode(), env)
	testutil.OK(t, err)
	testutil.Equals(t, b, true)

	_, err = BoolEval(ast.Long(1).AsIsNode(), env)
	testutil.ErrorIs(t, err, ErrType)
}
