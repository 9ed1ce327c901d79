// Package aff4map implements the sparse map stream (spec §4.G): a
// logical address space translated through an interval tree onto one
// or more backing target streams, supporting merge/clip of
// overlapping or contiguous writes.
package aff4map

import (
	"io"
	"sort"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/lib/ranges"
	"github.com/pkg/errors"
)

// Target is a backing stream a map range points into: something
// seekable and readable, keyed by its own URN. aff4/container wires
// real resolver-opened streams (image streams, zip segments, symbolic
// streams) in behind this interface.
type Target interface {
	io.ReaderAt
	URN() rdfvalue.URN
	Size() int64
}

// translation describes the affine map from a map offset to a target
// offset: target_offset = mapOffset - rangeStart + targetStart.
type translation struct {
	targetID     int
	targetStart  uint64
}

func (t translation) targetOffsetAt(rangeStart, mapOffset uint64) uint64 {
	return mapOffset - rangeStart + t.targetStart
}

// Map is the sparse logical address space. It owns a deduplicated list
// of target URNs (targets are referenced by index in translation, as
// pyaff4's data_store-backed map does with its targets list) and an
// interval tree of [mapOffset, mapEnd) -> translation.
type Map struct {
	tree    *ranges.Tree[translation]
	targets []rdfvalue.URN
	byURN   map[string]int

	dirty bool

	// opener resolves a target URN to a readable Target; nil targets
	// (open failure) zero-pad per spec's "not fatal" read semantics.
	opener func(rdfvalue.URN) (Target, error)

	// backing stream support for Write/WriteStream.
	backing       Target
	backingAppend func([]byte) (int64, error) // returns offset data was appended at
	readptr       uint64
}

// New returns an empty Map. opener resolves a target URN into an
// openable stream for Read; it may be nil for maps that are only ever
// written to and never read back within this process.
func New(opener func(rdfvalue.URN) (Target, error)) *Map {
	return &Map{
		tree:   ranges.New[translation](),
		byURN:  make(map[string]int),
		opener: opener,
	}
}

func (m *Map) targetID(urn rdfvalue.URN) int {
	key := urn.String()
	if id, ok := m.byURN[key]; ok {
		return id
	}
	id := len(m.targets)
	m.targets = append(m.targets, urn)
	m.byURN[key] = id
	return id
}

// TargetURN returns the URN registered under id.
func (m *Map) TargetURN(id int) rdfvalue.URN { return m.targets[id] }

// Targets returns the deduplicated target URN list in registration order.
func (m *Map) Targets() []rdfvalue.URN { return append([]rdfvalue.URN(nil), m.targets...) }

// IsDirty reports whether AddRange has been called since the last clear.
func (m *Map) IsDirty() bool { return m.dirty }

// ClearDirty resets the dirty flag (called after a successful flush).
func (m *Map) ClearDirty() { m.dirty = false }

// sameTranslation reports whether two translations describe the same
// affine mapping when evaluated at the ranges they actually came from:
// both point at the same target and their start-aligned offsets agree.
func sameTranslation(aStart uint64, a translation, bStart uint64, b translation) bool {
	if a.targetID != b.targetID {
		return false
	}
	return a.targetOffsetAt(aStart, aStart) == b.targetOffsetAt(bStart, bStart) ||
		(int64(a.targetStart)-int64(aStart)) == (int64(b.targetStart)-int64(bStart))
}

// AddRange records that logical bytes [mapOff, mapOff+length) come
// from targetURN starting at targetOff, merging with or clipping any
// touching neighbor and dropping anything it fully supersedes (spec
// §4.G AddRange steps 1-6).
func (m *Map) AddRange(mapOff, targetOff, length uint64, targetURN rdfvalue.URN) {
	if length == 0 {
		return
	}
	id := m.targetID(targetURN)
	newStart, newEnd := mapOff, mapOff+length
	newTr := translation{targetID: id, targetStart: targetOff}

	var toRemove []int

	// Step 2: left neighbor whose End touches newStart.
	if i := m.tree.IndexTouchingRight(newStart); i >= 0 {
		left := m.tree.At(i)
		if sameTranslation(left.Start, left.Value, newStart, newTr) {
			if left.Start < newStart {
				newStart = left.Start
				newTr = left.Value
			}
			toRemove = append(toRemove, i)
		}
	}

	// Step 3: right neighbor whose Start touches newEnd.
	if i := m.tree.IndexTouchingLeft(newEnd); i >= 0 {
		right := m.tree.At(i)
		// merge requires the same affine translation evaluated at the
		// new range's right edge.
		if right.Value.targetID == newTr.targetID &&
			int64(right.Value.targetStart)-int64(right.Start) == int64(newTr.targetStart)-int64(newStart) {
			if right.End > newEnd {
				newEnd = right.End
			}
			toRemove = append(toRemove, i)
		}
	}

	// Step 4: dedup removal indices, remove in descending order so
	// earlier indices stay valid.
	toRemove = dedupSortedDesc(toRemove)
	for _, i := range toRemove {
		m.tree.RemoveAt(i)
	}

	// Step 5: remove anything fully enveloped by the (possibly
	// extended) new range.
	enveloped := m.tree.EnvelopedBy(newStart, newEnd)
	m.tree.RemoveIndices(enveloped)

	// Any surviving interval that merely overlaps (not envelops, not
	// touches) the new range is clipped rather than dropped, since a
	// later write partially overwriting an earlier one is legal.
	m.clipOverlaps(newStart, newEnd)

	// Step 6.
	m.tree.Insert(ranges.Interval[translation]{Start: newStart, End: newEnd, Value: newTr})
	m.dirty = true
}

// clipOverlaps trims any interval that partially overlaps [start, end)
// without being fully enveloped by it (already handled separately) or
// touching at exactly one edge (already merged/removed above).
func (m *Map) clipOverlaps(start, end uint64) {
	for {
		changed := false
		for i := 0; i < m.tree.Len(); i++ {
			iv := m.tree.At(i)
			if iv.Start < start && iv.End > start && iv.End <= end {
				m.tree.ReplaceAt(i, ranges.Interval[translation]{Start: iv.Start, End: start, Value: iv.Value})
				changed = true
				break
			}
			if iv.Start >= start && iv.Start < end && iv.End > end {
				shift := end - iv.Start
				m.tree.ReplaceAt(i, ranges.Interval[translation]{
					Start: end, End: iv.End,
					Value: translation{targetID: iv.Value.targetID, targetStart: iv.Value.targetStart + shift},
				})
				changed = true
				break
			}
			if iv.Start < start && iv.End > end {
				// new range falls entirely inside an existing one: split it.
				left := ranges.Interval[translation]{Start: iv.Start, End: start, Value: iv.Value}
				shift := end - iv.Start
				right := ranges.Interval[translation]{
					Start: end, End: iv.End,
					Value: translation{targetID: iv.Value.targetID, targetStart: iv.Value.targetStart + shift},
				}
				m.tree.ReplaceAt(i, left)
				m.tree.Insert(right)
				changed = true
				break
			}
		}
		if !changed {
			return
		}
	}
}

func dedupSortedDesc(idx []int) []int {
	seen := make(map[int]bool, len(idx))
	var out []int
	for _, i := range idx {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// ReadAt walks tree intervals intersecting [off, off+len(p)) in order,
// zero-padding gaps and target-open failures, per spec §4.G Read.
func (m *Map) ReadAt(p []byte, off int64) (int, error) {
	start := uint64(off)
	end := start + uint64(len(p))
	written := 0
	cursor := start

	for _, iv := range m.tree.Query(start, end) {
		if iv.Start > cursor {
			gap := iv.Start - cursor
			if gap > end-cursor {
				gap = end - cursor
			}
			zeroFill(p[written:written+int(gap)])
			written += int(gap)
			cursor += gap
		}
		if cursor >= end {
			break
		}

		segStart := cursor
		segEnd := iv.End
		if segEnd > end {
			segEnd = end
		}
		n := int(segEnd - segStart)
		if n <= 0 {
			continue
		}

		target, err := m.open(m.targets[iv.Value.targetID])
		if err != nil {
			zeroFill(p[written : written+n])
		} else {
			targetOff := int64(iv.Value.targetOffsetAt(iv.Start, segStart))
			got, rerr := target.ReadAt(p[written:written+n], targetOff)
			if rerr != nil && rerr != io.EOF {
				zeroFill(p[written+got : written+n])
			} else if got < n {
				zeroFill(p[written+got : written+n])
			}
		}
		written += n
		cursor = segEnd
	}

	if cursor < end {
		zeroFill(p[written:])
		written = len(p)
	}
	return written, nil
}

func (m *Map) open(urn rdfvalue.URN) (Target, error) {
	if m.opener == nil {
		return nil, errors.New("aff4map: no opener configured")
	}
	return m.opener(urn)
}

func zeroFill(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// SetBacking attaches the stream AddRange-driven Write/WriteStream
// append data into, along with its append function (which returns the
// offset the data landed at — the resolver-backed image/segment stream
// owns its own write cursor).
func (m *Map) SetBacking(t Target, appendFn func([]byte) (int64, error)) {
	m.backing = t
	m.backingAppend = appendFn
}

// ReadPointer returns the current append-style write cursor used by
// Write (spec calls this "readptr", reused as the map's own write
// position since the map stream is written sequentially).
func (m *Map) ReadPointer() uint64 { return m.readptr }

// SeekWrite repositions the write cursor (used by container code that
// maintains an explicit seek position distinct from this type's own
// bookkeeping).
func (m *Map) SeekWrite(off uint64) { m.readptr = off }

// Write appends data to the backing stream and records a new range at
// the current write cursor, per spec §4.G Write. Two consecutive
// contiguous writes collapse into one range via AddRange's merge step.
func (m *Map) Write(data []byte) (int, error) {
	if m.backingAppend == nil {
		return 0, errors.New("aff4map: no backing stream configured")
	}
	appendedAt, err := m.backingAppend(data)
	if err != nil {
		return 0, errors.Wrap(err, "aff4map: appending to backing stream")
	}
	backingURN := m.backing.URN()
	m.AddRange(m.readptr, uint64(appendedAt), uint64(len(data)), backingURN)
	m.readptr += uint64(len(data))
	return len(data), nil
}

// WriteStream copies source into the map. If source is itself a Map,
// each of its ranges becomes one new range in the destination pointing
// at a single backing stream (rather than re-pointing at the source's
// original targets), per spec §4.G WriteStream. Otherwise, source's
// bytes are copied wholesale and recorded as one range.
func (m *Map) WriteStream(source io.Reader) error {
	if sm, ok := source.(*Map); ok {
		for _, iv := range sm.tree.All() {
			target, err := sm.open(sm.targets[iv.Value.targetID])
			if err != nil {
				return errors.Wrap(err, "aff4map: opening source map target")
			}
			buf := make([]byte, iv.End-iv.Start)
			off := int64(iv.Value.targetOffsetAt(iv.Start, iv.Start))
			if _, err := io.ReadFull(io.NewSectionReader(target, off, int64(len(buf))), buf); err != nil {
				return errors.Wrap(err, "aff4map: reading source map range")
			}
			if _, err := m.Write(buf); err != nil {
				return err
			}
		}
		return nil
	}

	buf, err := io.ReadAll(source)
	if err != nil {
		return errors.Wrap(err, "aff4map: reading stream source")
	}
	_, err = m.Write(buf)
	return err
}

// Size returns the logical end of the last range, or 0 for an empty map.
func (m *Map) Size() int64 {
	if m.tree.Len() == 0 {
		return 0
	}
	max := uint64(0)
	for _, iv := range m.tree.All() {
		if iv.End > max {
			max = iv.End
		}
	}
	return int64(max)
}
