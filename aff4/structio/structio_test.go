package structio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Magic   [4]byte
	Version uint16
	Flags   uint16
	Size    uint64
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := sample{Magic: [4]byte{'P', 'K', 3, 4}, Version: 20, Flags: 0x08, Size: 4096}

	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, &in))
	assert.Equal(t, Sizeof(&in), buf.Len())

	var out sample
	require.NoError(t, Unpack(&buf, &out))
	assert.Equal(t, in, out)
}

func TestPackToBytes(t *testing.T) {
	in := sample{Magic: [4]byte{'P', 'K', 1, 2}, Version: 45, Size: 1}
	b, err := PackToBytes(&in)
	require.NoError(t, err)
	assert.Len(t, b, Sizeof(&in))
}
