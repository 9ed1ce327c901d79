package rdfvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAlgoShortNameRoundTrip(t *testing.T) {
	for _, a := range []HashAlgo{MD5, SHA1, SHA256, SHA512, Blake2b, BlockMapHashSHA512} {
		got, err := AlgoFromShortName(a.ShortName())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestHashAlgoFromShortNameRejectsUnknown(t *testing.T) {
	_, err := AlgoFromShortName("sha3-256")
	assert.Error(t, err)
}

func TestHashDigestLength(t *testing.T) {
	h := SHA256.New()
	h.Write([]byte("abc"))
	sum := h.Sum(nil)
	assert.Len(t, sum, SHA256.Length())
}

func TestHashEqual(t *testing.T) {
	a := NewHash(SHA256, []byte{1, 2, 3})
	b := NewHash(SHA256, []byte{1, 2, 3})
	c := NewHash(SHA256, []byte{1, 2, 4})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAlgoPrecedenceSortsByFixedPrecedence(t *testing.T) {
	in := []HashAlgo{SHA512, MD5, SHA256, SHA1}
	out := AlgoPrecedence(in)
	got := make([]string, len(out))
	for i, a := range out {
		got[i] = a.ShortName()
	}
	assert.Equal(t, []string{"md5", "sha1", "sha256", "sha512"}, got)
}
