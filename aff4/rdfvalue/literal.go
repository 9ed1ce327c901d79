package rdfvalue

import (
	"encoding/hex"
	"strconv"

	"github.com/pkg/errors"
)

// XSDType names the datatype URN a literal is tagged with in a
// container's Turtle metadata, mirroring the small subset of XSD and
// AFF4-specific datatypes pyaff4's rdfvalue module round-trips.
type XSDType int

const (
	XSDString XSDType = iota
	XSDInteger
	XSDHexBinary
	XSDBoolean
)

// Literal is a typed value read from, or to be written into, a
// container's Turtle metadata. Exactly one of the typed accessors
// below is meaningful, selected by Type.
type Literal struct {
	Type    XSDType
	str     string
	integer int64
	bytes   []byte
	boolean bool
}

// NewStringLiteral wraps a plain UTF-8 string.
func NewStringLiteral(s string) Literal {
	return Literal{Type: XSDString, str: s}
}

// NewIntegerLiteral wraps an integer.
func NewIntegerLiteral(v int64) Literal {
	return Literal{Type: XSDInteger, integer: v}
}

// NewBytesLiteral wraps a byte string, serialized as xsd:hexBinary.
func NewBytesLiteral(b []byte) Literal {
	return Literal{Type: XSDHexBinary, bytes: append([]byte(nil), b...)}
}

// NewBooleanLiteral wraps a boolean.
func NewBooleanLiteral(v bool) Literal {
	return Literal{Type: XSDBoolean, boolean: v}
}

// String returns the literal's string value. Valid only when
// Type == XSDString.
func (l Literal) String() string { return l.str }

// Integer returns the literal's integer value. Valid only when
// Type == XSDInteger.
func (l Literal) Integer() int64 { return l.integer }

// Bytes returns the literal's byte value. Valid only when
// Type == XSDHexBinary.
func (l Literal) Bytes() []byte { return append([]byte(nil), l.bytes...) }

// Boolean returns the literal's boolean value. Valid only when
// Type == XSDBoolean.
func (l Literal) Boolean() bool { return l.boolean }

// Serialize renders the literal the way it appears inside a Turtle
// object position: a quoted string for XSDString, a bare decimal for
// XSDInteger, "true"/"false" for XSDBoolean, and lowercase hex for
// XSDHexBinary.
func (l Literal) Serialize() string {
	switch l.Type {
	case XSDString:
		return turtleQuote(l.str)
	case XSDInteger:
		return strconv.FormatInt(l.integer, 10)
	case XSDBoolean:
		if l.boolean {
			return "true"
		}
		return "false"
	case XSDHexBinary:
		return hex.EncodeToString(l.bytes)
	default:
		return ""
	}
}

// ParseLiteral is the inverse of Serialize for a given type, used when
// loading a container's Turtle metadata back into typed values.
func ParseLiteral(t XSDType, raw string) (Literal, error) {
	switch t {
	case XSDString:
		s, err := turtleUnquote(raw)
		if err != nil {
			return Literal{}, err
		}
		return NewStringLiteral(s), nil
	case XSDInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Literal{}, errors.Wrapf(err, "rdfvalue: parsing integer literal %q", raw)
		}
		return NewIntegerLiteral(v), nil
	case XSDBoolean:
		switch raw {
		case "true", "1":
			return NewBooleanLiteral(true), nil
		case "false", "0":
			return NewBooleanLiteral(false), nil
		}
		return Literal{}, errors.Errorf("rdfvalue: invalid boolean literal %q", raw)
	case XSDHexBinary:
		b, err := hex.DecodeString(raw)
		if err != nil {
			return Literal{}, errors.Wrapf(err, "rdfvalue: parsing hex literal %q", raw)
		}
		return NewBytesLiteral(b), nil
	default:
		return Literal{}, errors.Errorf("rdfvalue: unknown literal type %d", t)
	}
}
