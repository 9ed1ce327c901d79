package hashing

import (
	"bytes"
	"crypto/sha1"
	"io"
	"testing"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceLinearImageURN and referenceLinearImageSHA1 are the exact
// values from spec's "Hash verification" testable property: reading
// the reference Base-Linear_1/Base-Linear_2 container pair at this URN
// linearly and hashing with SHA1 yields this digest
// (original_source/pyaff4/pyaff4/test_hashing.py's
// testHashStdLinearImage/testHashStdLinearStriped). The Base-Linear
// container bytes themselves are an external AFF4 reference-images
// fixture (test_hashing.py's referenceImagesPath, a path on the
// original author's machine) and are not present anywhere in this
// repository's corpus, so they cannot be opened and rehashed directly.
// TestLinearHashMatchesIndependentDigest instead exercises LinearHash's
// read-fully-then-hash mechanism — the same mechanism that produces
// the value below against the real fixture — against a synthetic
// stream and an independently computed SHA1.
const (
	referenceLinearImageURN  = "aff4://2dd04819-73c8-40e3-a32b-fdddb0317eac"
	referenceLinearImageSHA1 = "7d3d27f667f95f7ec5b9d32121622c0f4b60b48d"
)

type byteStream struct{ data []byte }

func (b byteStream) Size() int64 { return int64(len(b.data)) }

func (b byteStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if int64(n) < int64(len(b.data))-off {
		return n, nil
	}
	return n, io.EOF
}

func TestLinearHashMatchesIndependentDigest(t *testing.T) {
	t.Logf("standing in for unavailable reference fixture %s (expected SHA1 %s)",
		referenceLinearImageURN, referenceLinearImageSHA1)

	content := bytes.Repeat([]byte("AFF4 reference stream content. "), 4096)
	stream := byteStream{data: content}

	got, err := LinearHash(rdfvalue.SHA1, stream)
	require.NoError(t, err)

	want := sha1.Sum(content)
	assert.Equal(t, want[:], got.Digest)
	assert.Equal(t, rdfvalue.SHA1, got.Algo)
}

func TestLinearHashReadsInChunksAcrossMultipleReadAtCalls(t *testing.T) {
	// Exercises the 32KiB read-loop boundary explicitly: content here
	// is several multiples of the read buffer size.
	content := bytes.Repeat([]byte{0xAB}, 100*1024+17)
	stream := byteStream{data: content}

	got, err := LinearHash(rdfvalue.SHA256, stream)
	require.NoError(t, err)

	want := SegmentHash(rdfvalue.SHA256, content)
	assert.True(t, got.Equal(want))
}

func TestSegmentHashMatchesDirectDigest(t *testing.T) {
	content := []byte("hello world")
	h := SegmentHash(rdfvalue.SHA256, content)
	assert.Equal(t, rdfvalue.SHA256, h.Algo)
	assert.Len(t, h.Digest, rdfvalue.SHA256.Length())
}

func TestBlockHasherAccumulatesAndFolds(t *testing.T) {
	bh := NewBlockHasher(rdfvalue.MD5)
	bh.HashChunk([]byte("chunk one"))
	bh.HashChunk([]byte("chunk two"))

	folded := BlockHashesHash(rdfvalue.MD5, bh.Hashes())
	assert.Equal(t, rdfvalue.MD5, folded.Algo)
	assert.Len(t, folded.Digest, rdfvalue.MD5.Length())

	// Folding again over the same chunk hashes is deterministic.
	folded2 := BlockHashesHash(rdfvalue.MD5, bh.Hashes())
	assert.True(t, folded.Equal(folded2))
}

func TestBlockMapHashFoldsInPrecedenceOrderRegardlessOfInputOrder(t *testing.T) {
	sha512bh := rdfvalue.NewHash(rdfvalue.SHA512, []byte("sha512-digest-placeholder-012345"))
	md5bh := rdfvalue.NewHash(rdfvalue.MD5, []byte("md5-digest-p"))
	sha1bh := rdfvalue.NewHash(rdfvalue.SHA1, []byte("sha1-digest-place"))

	pointHash := rdfvalue.NewHash(rdfvalue.SHA256, []byte("point"))
	idxHash := rdfvalue.NewHash(rdfvalue.SHA256, []byte("idx"))

	a := BlockMapHash(rdfvalue.SHA256, BlockMapHashInputs{
		BlockHashesHashes: []rdfvalue.Hash{sha512bh, md5bh, sha1bh},
		MapPointHash:      pointHash,
		MapIdxHash:        idxHash,
	})
	b := BlockMapHash(rdfvalue.SHA256, BlockMapHashInputs{
		BlockHashesHashes: []rdfvalue.Hash{md5bh, sha1bh, sha512bh},
		MapPointHash:      pointHash,
		MapIdxHash:        idxHash,
	})
	assert.True(t, a.Equal(b), "fold order must not depend on input slice order")
}

func TestBlockMapHashWithOptionalMapPathHashChangesDigest(t *testing.T) {
	pointHash := rdfvalue.NewHash(rdfvalue.SHA256, []byte("point"))
	idxHash := rdfvalue.NewHash(rdfvalue.SHA256, []byte("idx"))
	pathHash := rdfvalue.NewHash(rdfvalue.SHA256, []byte("path"))

	without := BlockMapHash(rdfvalue.SHA256, BlockMapHashInputs{MapPointHash: pointHash, MapIdxHash: idxHash})
	with := BlockMapHash(rdfvalue.SHA256, BlockMapHashInputs{MapPointHash: pointHash, MapIdxHash: idxHash, MapPathHash: &pathHash})
	assert.False(t, without.Equal(with))
}

func TestImageHashSingleVolumeEqualsItsBlockMapHash(t *testing.T) {
	bmh := rdfvalue.NewHash(rdfvalue.SHA256, []byte("the-one-blockmaphash-3456789012"))
	got := ImageHash(rdfvalue.SHA256, map[string]rdfvalue.Hash{"aff4://vol1": bmh})
	assert.True(t, got.Equal(bmh))
}

func TestImageHashMultiVolumeFoldsInSortedURNOrder(t *testing.T) {
	h1 := rdfvalue.NewHash(rdfvalue.SHA256, []byte("volume-one-digest-0123456789012"))
	h2 := rdfvalue.NewHash(rdfvalue.SHA256, []byte("volume-two-digest-0123456789012"))

	a := ImageHash(rdfvalue.SHA256, map[string]rdfvalue.Hash{"aff4://b": h2, "aff4://a": h1})
	b := ImageHash(rdfvalue.SHA256, map[string]rdfvalue.Hash{"aff4://a": h1, "aff4://b": h2})
	assert.True(t, a.Equal(b), "map iteration order must not affect the fold")
}

func TestBlockHashSegmentNamingVariants(t *testing.T) {
	assert.Equal(t, "aff4://image/blockhash.sha256",
		BlockHashSegmentName(StandardNaming, "aff4://image", 3, rdfvalue.SHA256))
	assert.Equal(t, "aff4://image/00000003/blockHash.sha256",
		BlockHashSegmentName(PreStandardNaming, "aff4://image", 3, rdfvalue.SHA256))
	assert.Equal(t, "aff4://image/00000003.blockHash.sha256",
		BlockHashSegmentName(ScudetteNaming, "aff4://image", 3, rdfvalue.SHA256))
}

func TestDefaultListenerRaisesOnInvalid(t *testing.T) {
	l := DefaultListener{}
	good := rdfvalue.NewHash(rdfvalue.MD5, []byte("0123456789abcdef"))
	bad := rdfvalue.NewHash(rdfvalue.MD5, []byte("fedcba9876543210"))

	require.NoError(t, VerifyHash(l, "segment", "aff4://seg1", good, good))
	err := VerifyHash(l, "segment", "aff4://seg1", good, bad)
	require.Error(t, err)
	var integrity interface{ Error() string }
	require.ErrorAs(t, err, &integrity)
}

func TestCollectingListenerNeverErrors(t *testing.T) {
	c := &CollectingListener{}
	good := rdfvalue.NewHash(rdfvalue.MD5, []byte("0123456789abcdef"))
	bad := rdfvalue.NewHash(rdfvalue.MD5, []byte("fedcba9876543210"))

	require.NoError(t, VerifyBlockHash(c, "aff4://image", 0, good, good))
	require.NoError(t, VerifyBlockHash(c, "aff4://image", 1, good, bad))
	assert.Len(t, c.Valid, 1)
	assert.Len(t, c.Invalid, 1)
}
