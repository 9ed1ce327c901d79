package aff4map

import (
	"bytes"
	"testing"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTarget is a fixed-content in-memory Target for tests.
type memTarget struct {
	urn  rdfvalue.URN
	data []byte
}

func (t *memTarget) URN() rdfvalue.URN { return t.urn }
func (t *memTarget) Size() int64       { return int64(len(t.data)) }
func (t *memTarget) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(t.data)) {
		return 0, nil
	}
	n := copy(p, t.data[off:])
	return n, nil
}

func openerFor(targets map[string]*memTarget) func(rdfvalue.URN) (Target, error) {
	return func(urn rdfvalue.URN) (Target, error) {
		if t, ok := targets[urn.String()]; ok {
			return t, nil
		}
		return nil, assertErr{urn.String()}
	}
}

type assertErr struct{ urn string }

func (e assertErr) Error() string { return "no such target: " + e.urn }

func TestAddRangeMergesContiguousSameTranslation(t *testing.T) {
	m := New(nil)
	disk := rdfvalue.ParseURN("aff4://disk")
	m.AddRange(0, 0, 100, disk)
	m.AddRange(100, 100, 50, disk)

	require.Equal(t, 1, m.tree.Len())
	iv := m.tree.At(0)
	assert.Equal(t, uint64(0), iv.Start)
	assert.Equal(t, uint64(150), iv.End)
}

func TestAddRangeOverwriteClipsPriorRange(t *testing.T) {
	m := New(nil)
	a := rdfvalue.ParseURN("aff4://a")
	b := rdfvalue.ParseURN("aff4://b")
	m.AddRange(0, 0, 100, a)
	m.AddRange(40, 0, 20, b) // overwrite [40,60) with b

	require.Equal(t, 3, m.tree.Len())
	assert.Equal(t, uint64(0), m.tree.At(0).Start)
	assert.Equal(t, uint64(40), m.tree.At(0).End)
	assert.Equal(t, uint64(40), m.tree.At(1).Start)
	assert.Equal(t, uint64(60), m.tree.At(1).End)
	assert.Equal(t, uint64(60), m.tree.At(2).Start)
	assert.Equal(t, uint64(100), m.tree.At(2).End)
}

func TestAddRangeEnvelopedRemoved(t *testing.T) {
	m := New(nil)
	a := rdfvalue.ParseURN("aff4://a")
	m.AddRange(10, 0, 5, a)  // [10,15)
	m.AddRange(0, 0, 100, a) // envelops the above entirely (different translation) -> the inner range is removed
	require.Equal(t, 1, m.tree.Len())
	assert.Equal(t, uint64(0), m.tree.At(0).Start)
	assert.Equal(t, uint64(100), m.tree.At(0).End)
}

func TestReadZeroFillsGapsAndUnreachableTargets(t *testing.T) {
	disk := &memTarget{urn: rdfvalue.ParseURN("aff4://disk"), data: bytes.Repeat([]byte{0x41}, 50)}
	missing := rdfvalue.ParseURN("aff4://missing")

	m := New(openerFor(map[string]*memTarget{disk.urn.String(): disk}))
	m.AddRange(10, 0, 20, disk.urn)  // [10,30) -> disk[0:20]
	m.AddRange(40, 0, 10, missing)   // [40,50) -> unreachable

	out := make([]byte, 60)
	n, err := m.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	assert.Equal(t, make([]byte, 10), out[0:10])                      // gap before first range
	assert.Equal(t, bytes.Repeat([]byte{0x41}, 20), out[10:30])        // disk-backed range
	assert.Equal(t, make([]byte, 10), out[30:40])                      // gap between ranges
	assert.Equal(t, make([]byte, 10), out[40:50])                      // open failure -> zero fill
	assert.Equal(t, make([]byte, 10), out[50:60])                      // past last range
}

func TestWriteAppendsAndMergesContiguousWrites(t *testing.T) {
	backing := &memTarget{urn: rdfvalue.ParseURN("aff4://map/data")}
	m := New(openerFor(map[string]*memTarget{backing.urn.String(): backing}))

	appended := func(p []byte) (int64, error) {
		off := int64(len(backing.data))
		backing.data = append(backing.data, p...)
		return off, nil
	}
	m.SetBacking(backing, appended)

	n, err := m.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	n, err = m.Write([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.Equal(t, 1, m.tree.Len(), "contiguous writes to the same backing stream merge")

	out := make([]byte, 11)
	_, err = m.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestEncodeDecodeMapRoundTrip(t *testing.T) {
	a := rdfvalue.ParseURN("aff4://a")
	b := rdfvalue.ParseURN("aff4://b")
	m := New(nil)
	m.AddRange(0, 100, 50, a)
	m.AddRange(200, 0, 10, b)

	mapBytes, err := m.EncodeMap()
	require.NoError(t, err)
	idxBytes := m.EncodeIdx()

	loaded, err := DecodeMap(mapBytes, idxBytes, nil)
	require.NoError(t, err)
	require.Equal(t, m.tree.Len(), loaded.tree.Len())
	for i := 0; i < m.tree.Len(); i++ {
		want := m.tree.At(i)
		got := loaded.tree.At(i)
		assert.Equal(t, want.Start, got.Start)
		assert.Equal(t, want.End, got.End)
		assert.Equal(t, want.Value.targetStart, got.Value.targetStart)
		assert.Equal(t, m.targets[want.Value.targetID].String(), loaded.targets[got.Value.targetID].String())
	}
}

func TestWriteStreamFromAnotherMapCopiesBytes(t *testing.T) {
	srcBacking := &memTarget{urn: rdfvalue.ParseURN("aff4://src/data")}
	src := New(openerFor(map[string]*memTarget{srcBacking.urn.String(): srcBacking}))
	src.SetBacking(srcBacking, func(p []byte) (int64, error) {
		off := int64(len(srcBacking.data))
		srcBacking.data = append(srcBacking.data, p...)
		return off, nil
	})
	_, err := src.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	dstBacking := &memTarget{urn: rdfvalue.ParseURN("aff4://dst/data")}
	dst := New(openerFor(map[string]*memTarget{dstBacking.urn.String(): dstBacking}))
	dst.SetBacking(dstBacking, func(p []byte) (int64, error) {
		off := int64(len(dstBacking.data))
		dstBacking.data = append(dstBacking.data, p...)
		return off, nil
	})

	require.NoError(t, dst.WriteStream(src))

	out := make([]byte, 8)
	_, err = dst.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(out))
}
