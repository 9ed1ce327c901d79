package aff4map

import (
	"bytes"
	"strings"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/aff4/structio"
	"github.com/aff4-go/aff4/lib/ranges"
	"github.com/pkg/errors"
)

// mapTuple is the on-disk <Q Q Q I> record: map offset, target offset,
// range length, target id (spec §6 "Map persistence").
type mapTuple struct {
	MapOffset    uint64
	TargetOffset uint64
	Length       uint64
	TargetID     uint32
}

// EncodeMap serializes the tree in ascending order as the <map>/map
// segment payload.
func (m *Map) EncodeMap() ([]byte, error) {
	var buf bytes.Buffer
	for _, iv := range m.tree.All() {
		tup := mapTuple{
			MapOffset:    iv.Start,
			TargetOffset: iv.Value.targetStart,
			Length:       iv.End - iv.Start,
			TargetID:     uint32(iv.Value.targetID),
		}
		if err := structio.Pack(&buf, tup); err != nil {
			return nil, errors.Wrap(err, "aff4map: packing range tuple")
		}
	}
	return buf.Bytes(), nil
}

// EncodeIdx serializes the target URN list as the <map>/idx segment
// payload: one URN per line, LF-joined.
func (m *Map) EncodeIdx() []byte {
	lines := make([]string, len(m.targets))
	for i, u := range m.targets {
		lines[i] = u.String()
	}
	return []byte(strings.Join(lines, "\n"))
}

// DecodeMap loads a Map from its <map>/map and <map>/idx segment
// payloads, as previously produced by EncodeMap/EncodeIdx.
func DecodeMap(mapData, idxData []byte, opener func(rdfvalue.URN) (Target, error)) (*Map, error) {
	m := New(opener)

	if len(idxData) > 0 {
		for _, line := range strings.Split(string(idxData), "\n") {
			if line == "" {
				continue
			}
			m.targets = append(m.targets, rdfvalue.ParseURN(line))
			m.byURN[line] = len(m.targets) - 1
		}
	}

	tupleSize := structio.Sizeof(mapTuple{})
	if len(mapData)%tupleSize != 0 {
		return nil, errors.Errorf("aff4map: map segment length %d not a multiple of tuple size %d", len(mapData), tupleSize)
	}
	r := bytes.NewReader(mapData)
	for r.Len() > 0 {
		var tup mapTuple
		if err := structio.Unpack(r, &tup); err != nil {
			return nil, errors.Wrap(err, "aff4map: unpacking range tuple")
		}
		if int(tup.TargetID) >= len(m.targets) {
			return nil, errors.Errorf("aff4map: range references unknown target id %d", tup.TargetID)
		}
		m.tree.Insert(ranges.Interval[translation]{
			Start: tup.MapOffset,
			End:   tup.MapOffset + tup.Length,
			Value: translation{targetID: int(tup.TargetID), targetStart: tup.TargetOffset},
		})
	}
	return m, nil
}
