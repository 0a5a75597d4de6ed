package types

// A Decision is the outcome of authorizing a request against a policy set.
type Decision bool

// Each authorization results in one of these Decisions.
const (
	// Allow is returned when at least one permit policy is satisfied and no
	// forbid policy is satisfied.
	Allow = Decision(true)
	// Deny is returned otherwise.
	Deny = Decision(false)
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// An Effect is whether a policy permits or forbids the requests it matches.
type Effect bool

// Each policy has a Permit or Forbid effect.
const (
	Permit = Effect(true)
	Forbid = Effect(false)
)

func (e Effect) String() string {
	if e == Permit {
		return "permit"
	}
	return "forbid"
}

// A PolicyID is a unique identifier for a policy within a PolicySet.
type PolicyID string

// A SlotID identifies a template slot, e.g. `?principal`.
type SlotID string

// The two slots a template may declare.
const (
	PrincipalSlot = SlotID("?principal")
	ResourceSlot  = SlotID("?resource")
)

// An Annotations map holds the key-value annotations attached to a policy.
type Annotations map[Ident]String
