package symbolic

import (
	"testing"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroStreamReadsAllZeroes(t *testing.T) {
	f := Factory{}
	urn := rdfvalue.ParseURN("http://aff4.org/Schema#Zero")
	require.True(t, f.IsSymbolic(urn))

	obj, err := f.CreateSymbolic(urn)
	require.NoError(t, err)
	s := obj.(*Stream)

	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = 0xFF
	}
	n, err := s.ReadAt(buf, 12345)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestUnknownDataTileRepeats(t *testing.T) {
	f := Factory{}
	urn := rdfvalue.ParseURN("http://aff4.org/Schema#UnknownData")
	require.True(t, f.IsSymbolic(urn))

	obj, err := f.CreateSymbolic(urn)
	require.NoError(t, err)
	s := obj.(*Stream)

	buf := make([]byte, len("UNKNOWN")*3)
	_, err = s.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWNUNKNOWNUNKNOWN", string(buf))
}

func TestSymbolicStreamByteValue(t *testing.T) {
	f := Factory{}
	urn := rdfvalue.ParseURN("http://aff4.org/Schema#SymbolicStreamAB")
	require.True(t, f.IsSymbolic(urn))

	obj, err := f.CreateSymbolic(urn)
	require.NoError(t, err)
	s := obj.(*Stream)

	buf := make([]byte, 4)
	_, err = s.ReadAt(buf, 0)
	require.NoError(t, err)
	for _, b := range buf {
		assert.Equal(t, byte(0xAB), b)
	}
}

func TestPreStandardBareHexSuffixRecognized(t *testing.T) {
	f := Factory{}
	urn := rdfvalue.ParseURN("http://afflib.org/2009/aff4#1a")
	require.True(t, f.IsSymbolic(urn))
	obj, err := f.CreateSymbolic(urn)
	require.NoError(t, err)
	s := obj.(*Stream)
	buf := make([]byte, 2)
	_, _ = s.ReadAt(buf, 0)
	assert.Equal(t, []byte{0x1a, 0x1a}, buf)
}

func TestLegacyNamespaceSymbolicStream(t *testing.T) {
	f := Factory{}
	urn := rdfvalue.ParseURN("http://afflib.org/2012/SymbolicStream#FE")
	require.True(t, f.IsSymbolic(urn))
	obj, err := f.CreateSymbolic(urn)
	require.NoError(t, err)
	s := obj.(*Stream)
	buf := make([]byte, 2)
	_, _ = s.ReadAt(buf, 0)
	assert.Equal(t, []byte{0xFE, 0xFE}, buf)
}

func TestOrdinaryURNIsNotSymbolic(t *testing.T) {
	f := Factory{}
	assert.False(t, f.IsSymbolic(rdfvalue.ParseURN("aff4://12345678-1234-1234-1234-123456789012")))
}

func TestWriteToSymbolicStreamPanics(t *testing.T) {
	s := &Stream{urn: rdfvalue.ParseURN("aff4://Zero"), k: kindZero}
	assert.Panics(t, func() {
		_, _ = s.Write([]byte("x"))
	})
}
