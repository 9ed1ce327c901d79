// Package bevy implements the AFF4 bevy-based chunked image stream
// (spec §4.F): a logical stream is split into fixed-size chunks,
// chunks are grouped into bevies, and each bevy is persisted as a
// compressed payload segment plus an index segment recording where
// each chunk landed.
//
// Grounded on backend/chunker/chunker.go, which already splits one
// logical file into fixed-size numbered chunk objects accumulated
// through a streaming write path; this package keeps that
// accumulate/flush control flow and generalizes it to AFF4's three
// historical index encodings and four compression methods.
package bevy

import (
	"bytes"
	"io"

	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

// Method identifies a bevy payload's compression, keyed by the URNs
// spec §4.F names.
type Method int

const (
	Stored Method = iota
	Zlib
	Snappy
	SnappyScudette
)

// URN returns the lexicon compression-method URN for m.
func (m Method) URN() string {
	switch m {
	case Stored:
		return lexicon.CompressionStored
	case Zlib:
		return lexicon.CompressionZlib
	case Snappy:
		return lexicon.CompressionSnappy
	case SnappyScudette:
		return lexicon.CompressionSnappyScudette
	default:
		return lexicon.CompressionStored
	}
}

// MethodFromURN is the inverse of Method.URN, used when opening an
// existing image stream whose compressionMethod triple names one of
// these four URNs.
func MethodFromURN(urn string) (Method, error) {
	switch urn {
	case lexicon.CompressionStored:
		return Stored, nil
	case lexicon.CompressionZlib:
		return Zlib, nil
	case lexicon.CompressionSnappy:
		return Snappy, nil
	case lexicon.CompressionSnappyScudette:
		return SnappyScudette, nil
	default:
		return 0, errors.Errorf("bevy: unrecognized compression method %q", urn)
	}
}

// compress returns chunk's compressed form under m. Snappy chunks are
// always encoded; the passthrough case is only recognized by
// decompress.
func compress(m Method, chunk []byte) ([]byte, error) {
	switch m {
	case Stored:
		return chunk, nil
	case Zlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(chunk); err != nil {
			return nil, errors.Wrap(err, "bevy: zlib compressing chunk")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "bevy: closing zlib writer")
		}
		return buf.Bytes(), nil
	case Snappy, SnappyScudette:
		return snappy.Encode(nil, chunk), nil
	default:
		return nil, errors.Errorf("bevy: unknown compression method %d", m)
	}
}

// decompress reverses compress. chunkSize is the logical chunk size;
// for Method==Snappy a compressed payload whose length equals
// chunkSize is treated as an uncompressed passthrough chunk (spec
// §4.F "a fast path for incompressible data"), matching the AFF4
// Standard behavior. Scudette-variant snappy chunks are always
// actually compressed.
func decompress(m Method, chunkSize int, payload []byte) ([]byte, error) {
	switch m {
	case Stored:
		return payload, nil
	case Zlib:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(err, "bevy: opening zlib chunk")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "bevy: inflating chunk")
		}
		return out, nil
	case Snappy:
		if len(payload) == chunkSize {
			return payload, nil
		}
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, errors.Wrap(err, "bevy: decoding snappy chunk")
		}
		return out, nil
	case SnappyScudette:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, errors.Wrap(err, "bevy: decoding snappy (scudette) chunk")
		}
		return out, nil
	default:
		return nil, errors.Errorf("bevy: unknown compression method %d", m)
	}
}
