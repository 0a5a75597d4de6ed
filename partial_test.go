package gavel

import (
	"testing"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/testutil"
	"github.com/strongdm/gavel/types"
)

func TestPartialAuthorize(t *testing.T) {
	t.Parallel()

	store := mustStore(t, nil)

	t.Run("decidedWithoutUnknowns", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitAlice", NewPolicy(ast.Permit().PrincipalEq(alice))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: alice,
			Action:    Variable("action"),
			Resource:  Variable("resource"),
			Context:   Variable("context"),
		})
		testutil.Equals(t, res.MustDecide(), true)
		testutil.Equals(t, res.Decision(), types.Allow)
		testutil.Equals(t, len(res.TruePermits()), 1)
		testutil.Equals(t, len(res.AllVariables()), 0)
	})

	t.Run("falseWithoutUnknowns", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitAlice", NewPolicy(ast.Permit().PrincipalEq(alice))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: bob,
			Action:    Variable("action"),
			Resource:  Variable("resource"),
			Context:   Variable("context"),
		})
		testutil.Equals(t, res.MustDecide(), false)
		testutil.Equals(t, res.Decision(), types.Deny)
		testutil.Equals(t, res.Permits[0].Kind, ResidualFalse)
	})

	t.Run("residualDependsOnResource", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitPhoto", NewPolicy(
			ast.Permit().PrincipalEq(alice).ResourceEq(vacation),
		)))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: alice,
			Action:    viewPhoto,
			Resource:  Variable("resource"),
			Context:   types.Record{},
		})
		testutil.Equals(t, res.MustDecide(), false)
		testutil.Equals(t, res.Permits[0].Kind, ResidualVariable)
		testutil.Equals(t, res.AllVariables(), []types.String{"resource"})
	})

	t.Run("trueForbidForcesDeny", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitAll", NewPolicy(ast.Permit())))
		testutil.OK(t, ps.Add("forbidAlice", NewPolicy(ast.Forbid().PrincipalEq(alice))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: alice,
			Action:    Variable("action"),
			Resource:  Variable("resource"),
			Context:   Variable("context"),
		})
		testutil.Equals(t, res.MustDecide(), true)
		testutil.Equals(t, res.Decision(), types.Deny)
	})

	t.Run("variableForbidBlocksDecision", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitAll", NewPolicy(ast.Permit())))
		testutil.OK(t, ps.Add("forbidPrivate", NewPolicy(ast.Forbid().When(
			ast.Context().Access("private").Equal(ast.True()),
		))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: alice,
			Action:    viewPhoto,
			Resource:  vacation,
			Context:   Variable("context"),
		})
		testutil.Equals(t, res.MustDecide(), false)
		testutil.Equals(t, len(res.TruePermits()), 1)
		testutil.Equals(t, len(res.VariableForbids()), 1)
	})

	t.Run("erroringPolicyNeverBlocks", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitAll", NewPolicy(ast.Permit())))
		testutil.OK(t, ps.Add("brokenForbid", NewPolicy(ast.Forbid().When(
			ast.Long(1).Add(ast.String("hi")).Equal(ast.Long(2)),
		))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: Variable("principal"),
			Action:    viewPhoto,
			Resource:  vacation,
			Context:   types.Record{},
		})
		testutil.Equals(t, res.MustDecide(), true)
		testutil.Equals(t, res.Decision(), types.Allow)
		testutil.Equals(t, res.Forbids[0].Kind, ResidualError)
		testutil.Error(t, res.Forbids[0].Err)
	})

	t.Run("unknownInsideContextRecord", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("permitConfirmed", NewPolicy(ast.Permit().When(
			ast.Context().Access("confirmed").Equal(ast.True()),
		))))

		res := PartialAuthorize(ps, store, PartialRequest{
			Principal: alice,
			Action:    viewPhoto,
			Resource:  vacation,
			Context: types.NewRecord(types.RecordMap{
				"confirmed": Variable("confirmed"),
			}),
		})
		testutil.Equals(t, res.MustDecide(), false)
		testutil.Equals(t, res.Permits[0].Kind, ResidualVariable)
		testutil.Equals(t, res.AllVariables(), []types.String{"context"})
	})
}

func TestPartialEvalExpression(t *testing.T) {
	t.Parallel()

	store := mustStore(t, nil)

	t.Run("foldsToLiteral", func(t *testing.T) {
		t.Parallel()
		res, err := PartialEval(ast.Long(1).Add(ast.Long(2)), store, PartialRequest{})
		testutil.OK(t, err)
		v, err := Eval(res, store, types.Request{})
		testutil.OK(t, err)
		testutil.Equals(t, v, types.Value(types.Long(3)))
	})

	t.Run("residualThenSubstitute", func(t *testing.T) {
		t.Parallel()
		expr := ast.Principal().Equal(ast.EntityUID("User", "alice")).And(ast.True())
		res, err := PartialEval(expr, store, PartialRequest{
			Principal: Variable("principal"),
			Action:    viewPhoto,
			Resource:  vacation,
			Context:   types.Record{},
		})
		testutil.OK(t, err)

		v, err := Eval(res, store, types.Request{Principal: alice, Action: viewPhoto, Resource: vacation})
		testutil.OK(t, err)
		testutil.Equals(t, v, types.Value(types.Boolean(true)))

		v, err = Eval(res, store, types.Request{Principal: bob, Action: viewPhoto, Resource: vacation})
		testutil.OK(t, err)
		testutil.Equals(t, v, types.Value(types.Boolean(false)))
	})
}
