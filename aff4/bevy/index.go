package bevy

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// IndexFormat identifies one of the three historical bevy-index
// encodings (spec §4.F "Bevy index formats").
type IndexFormat int

const (
	// StandardIndex stores (uint64 offset, uint32 length) pairs.
	StandardIndex IndexFormat = iota
	// EvimetryIndex stores uint32 chunk offsets only; chunk i's length
	// is offset[i+1]-offset[i] (bevySize-offset[last] for the tail).
	// Evimetry's first entry may already be the end of chunk 0 (offset
	// 0 implicit).
	EvimetryIndex
	// ScudetteIndex is the same offsets-only encoding as EvimetryIndex
	// except the first entry is always explicitly 0.
	ScudetteIndex
)

// ChunkSpan is one chunk's position within a bevy's payload segment.
type ChunkSpan struct {
	Offset uint64
	Length uint32
}

// EncodeIndex serializes spans under format.
func EncodeIndex(format IndexFormat, spans []ChunkSpan) []byte {
	switch format {
	case StandardIndex:
		buf := make([]byte, 0, len(spans)*12)
		for _, s := range spans {
			var rec [12]byte
			binary.LittleEndian.PutUint64(rec[0:8], s.Offset)
			binary.LittleEndian.PutUint32(rec[8:12], s.Length)
			buf = append(buf, rec[:]...)
		}
		return buf
	case EvimetryIndex, ScudetteIndex:
		buf := make([]byte, 0, len(spans)*4)
		offsets := offsetsOnly(format, spans)
		for _, o := range offsets {
			var rec [4]byte
			binary.LittleEndian.PutUint32(rec[:], uint32(o))
			buf = append(buf, rec[:]...)
		}
		return buf
	default:
		return nil
	}
}

// offsetsOnly derives the offsets-only representation for the
// pre-standard encodings: Scudette always emits offset 0 as its first
// entry; this module also always emits offset 0 first when writing
// (the Evimetry "implicit first offset" case only needs to be
// *tolerated* on decode, per spec §4.F).
func offsetsOnly(format IndexFormat, spans []ChunkSpan) []uint64 {
	out := make([]uint64, len(spans))
	for i, s := range spans {
		out[i] = s.Offset
	}
	return out
}

// DecodeIndex parses raw bevy index bytes into spans. bevySize is the
// total compressed payload size, needed to compute the tail chunk's
// length for the offsets-only encodings.
func DecodeIndex(format IndexFormat, raw []byte, bevySize uint64) ([]ChunkSpan, error) {
	switch format {
	case StandardIndex:
		if len(raw)%12 != 0 {
			return nil, errors.New("bevy: standard index length not a multiple of 12")
		}
		n := len(raw) / 12
		spans := make([]ChunkSpan, n)
		for i := 0; i < n; i++ {
			rec := raw[i*12 : i*12+12]
			spans[i] = ChunkSpan{
				Offset: binary.LittleEndian.Uint64(rec[0:8]),
				Length: binary.LittleEndian.Uint32(rec[8:12]),
			}
		}
		return spans, nil

	case EvimetryIndex, ScudetteIndex:
		if len(raw)%4 != 0 {
			return nil, errors.New("bevy: offsets-only index length not a multiple of 4")
		}
		n := len(raw) / 4
		recorded := make([]uint64, n)
		for i := 0; i < n; i++ {
			recorded[i] = uint64(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
		}
		if n == 0 {
			return nil, nil
		}

		// Scudette always records chunk *starts* (recorded[0] == 0).
		// Evimetry may instead record chunk *ends*, with chunk 0's
		// start of 0 left implicit (spec §4.F); detect that case by
		// recorded[0] != 0.
		if format == ScudetteIndex || recorded[0] == 0 {
			spans := make([]ChunkSpan, n)
			for i, start := range recorded {
				var length uint64
				if i+1 < n {
					length = recorded[i+1] - start
				} else {
					length = bevySize - start
				}
				spans[i] = ChunkSpan{Offset: start, Length: uint32(length)}
			}
			return spans, nil
		}

		spans := make([]ChunkSpan, n)
		start := uint64(0)
		for i, end := range recorded {
			spans[i] = ChunkSpan{Offset: start, Length: uint32(end - start)}
			start = end
		}
		return spans, nil

	default:
		return nil, errors.Errorf("bevy: unknown index format %d", format)
	}
}
