package store

import "hubjs.dev/hub/kvo"

// Schema collects the Attribute descriptors for one record type, so every
// Record of that type gets the same computed properties defined on
// construction.
type Schema struct {
	attributes map[string]kvo.Property
}

// NewSchema returns an empty schema ready for Define calls.
func NewSchema() *Schema {
	return &Schema{attributes: make(map[string]kvo.Property)}
}

// Define adds an attribute and returns the schema for chaining.
func (s *Schema) Define(name string, kind AttributeKind, opts ...AttrOption) *Schema {
	s.attributes[name] = Attribute(name, kind, opts...)
	return s
}
