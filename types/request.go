package types

// A Request is the concrete question posed to the authorizer: may this
// principal perform this action on this resource, given this context.
type Request struct {
	Principal EntityUID `json:"principal"`
	Action    EntityUID `json:"action"`
	Resource  EntityUID `json:"resource"`
	Context   Record    `json:"context"`
}
