package bevy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardIndexRoundTrip(t *testing.T) {
	spans := []ChunkSpan{{Offset: 0, Length: 100}, {Offset: 100, Length: 80}, {Offset: 180, Length: 50}}
	raw := EncodeIndex(StandardIndex, spans)
	got, err := DecodeIndex(StandardIndex, raw, 230)
	require.NoError(t, err)
	assert.Equal(t, spans, got)
}

func TestScudetteIndexRoundTrip(t *testing.T) {
	spans := []ChunkSpan{{Offset: 0, Length: 100}, {Offset: 100, Length: 80}, {Offset: 180, Length: 50}}
	raw := EncodeIndex(ScudetteIndex, spans)
	got, err := DecodeIndex(ScudetteIndex, raw, 230)
	require.NoError(t, err)
	assert.Equal(t, spans, got)
}

func TestEvimetryIndexImplicitFirstOffset(t *testing.T) {
	// recorded values are ends, not starts: chunk0=[0,100) chunk1=[100,180) chunk2=[180,230)
	recorded := []uint64{100, 180, 230}
	var packed []byte
	for _, v := range recorded {
		packed = append(packed, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	got, err := DecodeIndex(EvimetryIndex, packed, 230)
	require.NoError(t, err)
	want := []ChunkSpan{{Offset: 0, Length: 100}, {Offset: 100, Length: 80}, {Offset: 180, Length: 50}}
	assert.Equal(t, want, got)
}

func TestEvimetryIndexExplicitFirstOffsetMatchesScudette(t *testing.T) {
	spans := []ChunkSpan{{Offset: 0, Length: 100}, {Offset: 100, Length: 80}, {Offset: 180, Length: 50}}
	raw := EncodeIndex(EvimetryIndex, spans)
	got, err := DecodeIndex(EvimetryIndex, raw, 230)
	require.NoError(t, err)
	assert.Equal(t, spans, got)
}
