package resolver

import "github.com/aff4-go/aff4/aff4/rdfvalue"

// Value is a triple's object: either another URN (a reference to
// another AFF4 object, e.g. aff4:stored) or a typed Literal (e.g.
// aff4:size, aff4:hash).
type Value struct {
	urn     rdfvalue.URN
	literal rdfvalue.Literal
	isURN   bool
}

// URNValue wraps a URN object.
func URNValue(u rdfvalue.URN) Value {
	return Value{urn: u, isURN: true}
}

// LiteralValue wraps a typed literal object.
func LiteralValue(l rdfvalue.Literal) Value {
	return Value{literal: l, isURN: false}
}

// IsURN reports whether v holds a URN rather than a literal.
func (v Value) IsURN() bool { return v.isURN }

// URN returns the wrapped URN. Valid only when IsURN() is true.
func (v Value) URN() rdfvalue.URN { return v.urn }

// Literal returns the wrapped literal. Valid only when IsURN() is false.
func (v Value) Literal() rdfvalue.Literal { return v.literal }

// String renders v the way it appears in a Turtle object position.
func (v Value) String() string {
	if v.isURN {
		return "<" + v.urn.String() + ">"
	}
	return v.literal.Serialize()
}
