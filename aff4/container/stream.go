// Adapters bridging zip64.Volume into the narrow MemberWriter/
// BevyOpener interfaces bevy expects, and wrapping bevy.Reader /
// aff4map.Map as resolver.AFF4Object implementations so Resolver.Open
// can return them from registered Image/Map factories.
//
// Grounded on original_source/pyaff4/pyaff4/aff4_image.py's
// AFF4Image (an image stream owning its own bevy reader/writer
// against the parent volume) and aff4_map.py's AFF4Map for the
// equivalent map-stream wrapper.
package container

import (
	"io"

	"github.com/aff4-go/aff4/aff4/aff4map"
	"github.com/aff4-go/aff4/aff4/bevy"
	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/aff4/resolver"
	"github.com/aff4-go/aff4/aff4/zip64"
	"github.com/pkg/errors"
)

// volumeMemberWriter adapts a zip64.Volume to bevy.MemberWriter.
type volumeMemberWriter struct {
	vol *zip64.Volume
}

func (w volumeMemberWriter) WriteSegment(name string, content []byte) error {
	seg := w.vol.CreateMember(name)
	if _, err := seg.Write(content); err != nil {
		return errors.Wrapf(err, "container: writing segment %s", name)
	}
	seg.Commit()
	return nil
}

// volumeBevyOpener adapts a zip64.Volume to bevy.BevyOpener, naming
// bevy payload/index segments under baseName in the AFF4 Standard
// layout ("<base>/00000000", "<base>/00000000.index"; spec §4.F).
type volumeBevyOpener struct {
	vol      *zip64.Volume
	baseName string
}

func (o volumeBevyOpener) ReadBevyPayload(bevyNumber int) ([]byte, error) {
	return o.readSegment(bevyName(o.baseName, bevyNumber))
}

func (o volumeBevyOpener) ReadBevyIndex(bevyNumber int) ([]byte, error) {
	return o.readSegment(bevyName(o.baseName, bevyNumber) + ".index")
}

func (o volumeBevyOpener) readSegment(name string) ([]byte, error) {
	r, err := o.vol.OpenZipSegment(name)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func bevyName(baseName string, bevyNumber int) string {
	return baseName + "/" + zeroPad(bevyNumber)
}

func zeroPad(n int) string {
	const width = 8
	s := itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// imageStream wraps a bevy-backed logical stream (one bevy reader per
// open image) as a resolver.AFF4Object and an aff4map.Target, so a Map
// can point a range directly at an opened image.
type imageStream struct {
	urn    rdfvalue.URN
	reader *bevy.Reader
}

func (s *imageStream) URN() rdfvalue.URN           { return s.urn }
func (s *imageStream) IsDirty() bool                { return false }
func (s *imageStream) Flush() error                 { return nil }
func (s *imageStream) Size() int64                  { return s.reader.Size() }
func (s *imageStream) ReadAt(p []byte, off int64) (int, error) { return s.reader.ReadAt(p, off) }

// mapStream wraps an aff4map.Map as a resolver.AFF4Object.
type mapStream struct {
	urn rdfvalue.URN
	m   *aff4map.Map
}

func (s *mapStream) URN() rdfvalue.URN { return s.urn }
func (s *mapStream) IsDirty() bool     { return s.m.IsDirty() }
func (s *mapStream) Flush() error      { s.m.ClearDirty(); return nil }
func (s *mapStream) Size() int64       { return s.m.Size() }
func (s *mapStream) ReadAt(p []byte, off int64) (int, error) { return s.m.ReadAt(p, off) }

// targetOpener resolves a map range's target URN by delegating to the
// owning container's resolver, so a map's targets can themselves be
// images, zip segments, or symbolic streams.
func (c *Container) targetOpener(urn rdfvalue.URN) (aff4map.Target, error) {
	obj, err := c.Resolver.Open(urn)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(aff4map.Target)
	if !ok {
		return nil, errors.Errorf("container: %s does not implement a readable, sized target", urn.String())
	}
	return t, nil
}

// imageFactory constructs an imageStream for urn by reading its
// chunk/bevy configuration out of the store and opening a bevy.Reader
// against the volume's segments named under urn's path.
func (c *Container) imageFactory(r *resolver.Resolver, urn rdfvalue.URN) (resolver.AFF4Object, error) {
	lex := c.lexiconFor()
	chunkSize := c.intAttr(urn, lex.ChunkSize, 32*1024)
	chunksPerSegment := c.intAttr(urn, lex.ChunksPerSegment, 2048)
	size := c.intAttr(urn, lex.StreamSize, 0)
	method, err := bevy.MethodFromURN(c.strAttr(urn, lex.CompressionMethod))
	if err != nil {
		return nil, err
	}

	baseName := relativeMemberName(c.Volume.VolumeURN(), urn)
	opener := volumeBevyOpener{vol: c.Volume, baseName: baseName}
	reader := bevy.NewReader(opener, urn, chunkSize, chunksPerSegment, method, bevy.StandardIndex, size)
	return &imageStream{urn: urn, reader: reader}, nil
}

// mapFactory constructs a mapStream for urn by decoding its <map>/map
// and <map>/idx segments.
func (c *Container) mapFactory(r *resolver.Resolver, urn rdfvalue.URN) (resolver.AFF4Object, error) {
	baseName := relativeMemberName(c.Volume.VolumeURN(), urn)
	mapData, err := readMember(c.Volume, baseName+"/map")
	if err != nil {
		return nil, errors.Wrapf(err, "container: reading map segment for %s", urn.String())
	}
	idxData, err := readMember(c.Volume, baseName+"/idx")
	if err != nil {
		return nil, errors.Wrapf(err, "container: reading idx segment for %s", urn.String())
	}
	m, err := aff4map.DecodeMap(mapData, idxData, c.targetOpener)
	if err != nil {
		return nil, err
	}
	return &mapStream{urn: urn, m: m}, nil
}
