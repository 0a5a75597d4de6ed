package gavel

import (
	"testing"

	"github.com/strongdm/gavel/ast"
	"github.com/strongdm/gavel/internal/testutil"
	"github.com/strongdm/gavel/types"
)

func TestPolicySetAdd(t *testing.T) {
	t.Parallel()

	t.Run("duplicateID", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("p0", NewPolicy(ast.Permit())))
		testutil.Error(t, ps.Add("p0", NewPolicy(ast.Forbid())))
	})

	t.Run("templateRejected", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.Error(t, ps.Add("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
	})

	t.Run("concreteRejectedAsTemplate", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.Error(t, ps.AddTemplate("t0", NewPolicy(ast.Permit())))
	})

	t.Run("getAndRemove", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("p0", NewPolicy(ast.Permit())))
		_, ok := ps.Get("p0")
		testutil.Equals(t, ok, true)
		ps.Remove("p0")
		_, ok = ps.Get("p0")
		testutil.Equals(t, ok, false)
		testutil.Equals(t, ps.Len(), 0)
	})
}

func TestPolicySetAllSorted(t *testing.T) {
	t.Parallel()
	ps := NewPolicySet()
	testutil.OK(t, ps.Add("c", NewPolicy(ast.Permit())))
	testutil.OK(t, ps.Add("a", NewPolicy(ast.Permit())))
	testutil.OK(t, ps.Add("b", NewPolicy(ast.Permit())))
	var ids []types.PolicyID
	for id := range ps.All() {
		ids = append(ids, id)
	}
	testutil.Equals(t, ids, []types.PolicyID{"a", "b", "c"})
}

func TestLinkTemplate(t *testing.T) {
	t.Parallel()

	doc := types.NewEntityUID("Document", "plan")

	t.Run("fillsBothSlots", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		tmpl := ast.Permit().PrincipalEqSlot().ResourceInSlot()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(tmpl)))
		testutil.OK(t, ps.LinkTemplate("t0", "t0-alice", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
			types.ResourceSlot:  doc,
		}))

		linked, ok := ps.Get("t0-alice")
		testutil.Equals(t, ok, true)
		testutil.Equals(t, linked.IsTemplate(), false)
		testutil.Equals(t, linked.AST().Principal.(ast.ScopeTypeEq).Entity, ast.UIDRef(alice))
		testutil.Equals(t, linked.AST().Resource.(ast.ScopeTypeIn).Entity, ast.UIDRef(doc))

		// the template itself is untouched
		tmplP, ok := ps.GetTemplate("t0")
		testutil.Equals(t, ok, true)
		testutil.Equals(t, tmplP.IsTemplate(), true)
	})

	t.Run("recordsProvenance", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
		testutil.OK(t, ps.Add("plain", NewPolicy(ast.Permit())))
		testutil.OK(t, ps.LinkTemplate("t0", "t0-bob", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: bob,
		}))
		testutil.OK(t, ps.LinkTemplate("t0", "t0-alice", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
		}))

		linked, _ := ps.Get("t0-alice")
		from, ok := linked.Template()
		testutil.Equals(t, ok, true)
		testutil.Equals(t, from, types.PolicyID("t0"))
		testutil.Equals(t, linked.SlotEnv(), map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
		})

		// mutating the returned env does not reach the stored link
		env := linked.SlotEnv()
		env[types.PrincipalSlot] = bob
		testutil.Equals(t, linked.SlotEnv()[types.PrincipalSlot], alice)

		plain, _ := ps.Get("plain")
		_, ok = plain.Template()
		testutil.Equals(t, ok, false)
		testutil.Equals(t, plain.SlotEnv() == nil, true)

		testutil.Equals(t, ps.TemplateLinks("t0"), []types.PolicyID{"t0-alice", "t0-bob"})
		testutil.Equals(t, len(ps.TemplateLinks("other")), 0)
	})

	t.Run("missingSlot", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot().ResourceEqSlot())))
		testutil.Error(t, ps.LinkTemplate("t0", "link", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
		}))
	})

	t.Run("undeclaredSlot", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
		testutil.Error(t, ps.LinkTemplate("t0", "link", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
			types.ResourceSlot:  doc,
		}))
	})

	t.Run("unknownSlotID", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
		testutil.Error(t, ps.LinkTemplate("t0", "link", map[types.SlotID]types.EntityUID{
			"?bogus": alice,
		}))
	})

	t.Run("unknownTemplate", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.Error(t, ps.LinkTemplate("nope", "link", nil))
	})

	t.Run("linkIDCollision", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.Add("taken", NewPolicy(ast.Permit())))
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
		testutil.Error(t, ps.LinkTemplate("t0", "taken", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
		}))
	})

	t.Run("linkedPolicyAuthorizes", func(t *testing.T) {
		t.Parallel()
		ps := NewPolicySet()
		testutil.OK(t, ps.AddTemplate("t0", NewPolicy(ast.Permit().PrincipalEqSlot())))
		testutil.OK(t, ps.LinkTemplate("t0", "t0-alice", map[types.SlotID]types.EntityUID{
			types.PrincipalSlot: alice,
		}))

		store := mustStore(t, nil)
		decision, _ := Authorize(ps, store, types.Request{Principal: alice, Action: viewPhoto, Resource: vacation})
		testutil.Equals(t, decision, types.Allow)
		decision, _ = Authorize(ps, store, types.Request{Principal: bob, Action: viewPhoto, Resource: vacation})
		testutil.Equals(t, decision, types.Deny)
	})
}
