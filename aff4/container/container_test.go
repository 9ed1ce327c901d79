package container

import (
	"testing"

	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/aff4/resolver"
	"github.com/aff4-go/aff4/aff4/zip64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullBacking struct{}

func (nullBacking) ReadAt(p []byte, off int64) (int, error)  { return 0, nil }
func (nullBacking) WriteAt(p []byte, off int64) (int, error) { return len(p), nil }
func (nullBacking) Seek(offset int64, whence int) (int64, error) { return 0, nil }
func (nullBacking) Truncate(size int64) error                { return nil }

func TestIdentifyFindsVersionTxtAsStandard(t *testing.T) {
	vol := zip64.Create(nullBacking{}, "aff4://vol1")
	seg := vol.CreateMember("version.txt")
	_, _ = seg.Write([]byte("major=1\nminor=1\n"))
	seg.Commit()

	assert.Equal(t, lexicon.Standard, Identify(vol, nil))
}

func TestIdentifyFallsBackToTurtleNamespaceSniff(t *testing.T) {
	vol := zip64.Create(nullBacking{}, "aff4://vol1")

	legacy := []byte("<aff4://vol1> <http://afflib.org/2009/aff4#stored> <aff4://vol1> .\n")
	assert.Equal(t, lexicon.PreStandard, Identify(vol, legacy))

	scudette := []byte("<aff4://vol1> <http://aff4.org/Schema#stored> <aff4://vol1> .\n")
	assert.Equal(t, lexicon.Scudette, Identify(vol, scudette))
}

func TestRelativeMemberNameStripsVolumePrefix(t *testing.T) {
	child := rdfvalue.ParseURN("aff4://vol1/image1.dd")
	assert.Equal(t, "image1.dd", relativeMemberName("aff4://vol1", child))
}

func TestZeroPadAndBevyName(t *testing.T) {
	assert.Equal(t, "00000003", zeroPad(3))
	assert.Equal(t, "image1.dd/00000000", bevyName("image1.dd", 0))
}

func TestIntAttrAndStrAttrReadBackStoredLiterals(t *testing.T) {
	r := resolver.New(lexicon.Standard)
	c := &Container{Resolver: r, Variant: lexicon.Standard}

	subject := rdfvalue.ParseURN("aff4://image1")
	r.Store.Set(subject, rdfvalue.ParseURN(lexicon.StandardLexicon.ChunkSize),
		resolver.LiteralValue(rdfvalue.NewIntegerLiteral(4096)))
	r.Store.Set(subject, rdfvalue.ParseURN(lexicon.StandardLexicon.CompressionMethod),
		resolver.URNValue(rdfvalue.ParseURN(lexicon.CompressionStored)))

	assert.Equal(t, 4096, c.intAttr(subject, lexicon.StandardLexicon.ChunkSize, 32*1024))
	assert.Equal(t, 999, c.intAttr(subject, lexicon.StandardLexicon.ChunkSize+"-missing", 999))
	assert.Equal(t, lexicon.CompressionStored, c.strAttr(subject, lexicon.StandardLexicon.CompressionMethod))
}

func TestOpenContainerRejectsUnparseableZip(t *testing.T) {
	_, err := OpenContainer("/nonexistent/path/does/not/exist.aff4")
	require.Error(t, err)
}
