// Package validate implements the schema-driven static type checker. A policy
// set that passes strict validation cannot produce a type error at evaluation
// time for any request conforming to the schema.
package validate

import "github.com/strongdm/gavel/schema"

// Validator validates policies, entities, and requests against a schema.
type Validator struct {
	schema *schema.Schema
	strict bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithStrict returns an Option that enables strict validation mode (default).
func WithStrict() Option { return func(v *Validator) { v.strict = true } }

// WithPermissive returns an Option that enables permissive validation mode.
func WithPermissive() Option { return func(v *Validator) { v.strict = false } }

// New creates a Validator for the given schema. By default, strict mode is
// enabled.
func New(s *schema.Schema, opts ...Option) *Validator {
	v := &Validator{schema: s, strict: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}
