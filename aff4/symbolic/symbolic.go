// Package symbolic implements the small set of pattern-recognized URNs
// that open to infinite, read-only, seekable pseudo-streams (spec
// §4.H), grounded on original_source's stream_factory.py
// StreamFactory.fixedSymbolics/createSymbolic.
package symbolic

import (
	"strconv"
	"strings"

	"github.com/aff4-go/aff4/aff4"
	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/aff4/resolver"
	"github.com/pkg/errors"
)

// tileSize is the pre-materialized repeat unit for the UnknownData and
// UnreadableData tiles.
const tileSize = 1 << 20 // 1 MiB

var (
	unknownTile      = buildTile("UNKNOWN")
	unreadableTile   = buildTile("UNREADABLEDATA")
)

func buildTile(word string) []byte {
	tile := make([]byte, tileSize)
	w := []byte(word)
	for i := 0; i < tileSize; i += len(w) {
		copy(tile[i:], w)
	}
	return tile
}

// kind distinguishes the three content patterns a symbolic stream can
// serve.
type kind int

const (
	kindZero kind = iota
	kindTile
	kindByte
)

// Stream is an infinite, seekable, read-only pseudo-stream. Size
// reports the largest representable positive offset (spec §4.H),
// since the stream has no real end.
type Stream struct {
	urn  rdfvalue.URN
	k    kind
	tile []byte
	fill byte
}

var _ resolver.AFF4Object = (*Stream)(nil)

func (s *Stream) URN() rdfvalue.URN { return s.urn }
func (s *Stream) IsDirty() bool     { return false }
func (s *Stream) Flush() error      { return nil }

// Size returns the maximum representable positive offset, standing in
// for "infinite" in a fixed-width API.
func (s *Stream) Size() int64 { return 1<<63 - 1 }

// ReadAt serves p from offset off according to the stream's pattern.
// A symbolic stream has no actual end, so ReadAt never returns a short
// read or io.EOF.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	switch s.k {
	case kindZero:
		for i := range p {
			p[i] = 0
		}
	case kindByte:
		for i := range p {
			p[i] = s.fill
		}
	case kindTile:
		start := int(off % int64(len(s.tile)))
		n := copy(p, s.tile[start:])
		for n < len(p) {
			n += copy(p[n:], s.tile)
		}
	}
	return len(p), nil
}

// Write is a programmer error: symbolic streams are read-only.
func (s *Stream) Write(p []byte) (int, error) {
	aff4.Raise("symbolic: write to read-only stream %s", s.urn.String())
	return 0, nil
}

// Factory recognizes and constructs symbolic streams, implementing
// resolver.SymbolicFactory.
type Factory struct{}

// IsSymbolic reports whether urn matches one of the recognized
// symbolic patterns.
func (Factory) IsSymbolic(urn rdfvalue.URN) bool {
	_, _, ok := classify(urn)
	return ok
}

// CreateSymbolic constructs the Stream for urn. Callers must have
// already checked IsSymbolic (Open does).
func (Factory) CreateSymbolic(urn rdfvalue.URN) (resolver.AFF4Object, error) {
	k, fill, ok := classify(urn)
	if !ok {
		return nil, errors.Errorf("symbolic: %s is not a recognized symbolic stream", urn.String())
	}
	s := &Stream{urn: urn, k: k, fill: fill}
	if k == kindTile {
		if strings.Contains(urn.String(), lexicon.SymbolicUnreadableData) {
			s.tile = unreadableTile
		} else {
			s.tile = unknownTile
		}
	}
	return s, nil
}

// classify inspects urn against every recognized suffix/namespace
// pattern (spec §4.H): the AFF4 Standard suffixes, the pre-standard
// bare two-hex-digit and "FF" forms, and the legacy
// http://afflib.org/2012/SymbolicStream# namespace.
func classify(urn rdfvalue.URN) (kind, byte, bool) {
	s := urn.String()

	if strings.HasSuffix(s, "#"+lexicon.SymbolicZero) {
		return kindZero, 0, true
	}
	if strings.HasSuffix(s, "#"+lexicon.SymbolicUnknownData) || strings.HasSuffix(s, "#"+lexicon.SymbolicUnreadableData) {
		return kindTile, 0, true
	}
	if strings.HasSuffix(s, "#"+lexicon.SymbolicNoData) {
		return kindZero, 0, true
	}

	if hh, ok := hexSuffix(s, "#"+lexicon.SymbolicStreamPrefix); ok {
		return kindByte, hh, true
	}

	if strings.HasPrefix(s, lexicon.PreStandardSymbolicNamespace) {
		if hh, ok := parseHexByte(strings.TrimPrefix(s, lexicon.PreStandardSymbolicNamespace)); ok {
			return kindByte, hh, true
		}
	}

	if strings.HasSuffix(s, "#"+lexicon.SymbolicFF) {
		return kindByte, 0xFF, true
	}

	if hh, ok := hexSuffix(s, "#"); ok {
		return kindByte, hh, true
	}

	return kindZero, 0, false
}

// hexSuffix reports whether s ends with prefix followed by exactly two
// hex digits, returning the decoded byte. Used for both the standard
// "#SymbolicStreamXX" form and the pre-standard bare "#XX" form.
func hexSuffix(s, prefix string) (byte, bool) {
	i := strings.LastIndex(s, prefix)
	if i < 0 {
		return 0, false
	}
	rest := s[i+len(prefix):]
	return parseHexByte(rest)
}

func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}
