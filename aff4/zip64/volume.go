package zip64

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"

	"github.com/aff4-go/aff4/aff4/structio"
	"github.com/aff4-go/aff4/lib/progress"
	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// Backing is the random-access file a Volume is built on.
type Backing interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
	Truncate(size int64) error
}

// memberInfo is one CD-table entry, either loaded from disk or
// produced by StreamAddMember/CreateMember during this session.
type memberInfo struct {
	name             string
	method           uint16
	crc32            uint32
	compressedSize   uint64
	uncompressedSize uint64
	localHeaderOffset uint64
	payloadStart     uint64 // local header offset + header + filename + extra
	pending          []byte // set for an in-memory segment not yet flushed
}

// Volume is a writable, appendable ZIP64 archive (spec §4.E).
type Volume struct {
	backing      Backing
	globalOffset int64
	nextOffset   int64 // append position, in archive-relative (post-global-offset) coordinates
	volumeURN    string

	members   map[string]*memberInfo
	order     []string // insertion order, preserved in CD emission
}

// Create returns a fresh, empty Volume backed by backing, ready to
// accept members at offset 0 (no prefix data).
func Create(backing Backing, volumeURN string) *Volume {
	return &Volume{
		backing:   backing,
		volumeURN: volumeURN,
		members:   make(map[string]*memberInfo),
	}
}

// CreateMember returns a dirty-on-first-write in-memory segment. Call
// Write to set its content, Commit to register it, then Flush to
// persist it.
func (v *Volume) CreateMember(name string) *PendingSegment {
	return &PendingSegment{volume: v, name: name}
}

// PendingSegment is an in-memory member body accumulated until Flush.
type PendingSegment struct {
	volume *Volume
	name   string
	buf    bytes.Buffer
}

// Write appends to the segment's in-memory content.
func (s *PendingSegment) Write(p []byte) (int, error) { return s.buf.Write(p) }

// Commit registers the segment's accumulated bytes as a STORED member,
// ready to be emitted on the next Flush.
func (s *PendingSegment) Commit() {
	s.volume.members[s.name] = &memberInfo{
		name:             s.name,
		method:           MethodStored,
		crc32:            crc32.ChecksumIEEE(s.buf.Bytes()),
		compressedSize:   uint64(s.buf.Len()),
		uncompressedSize: uint64(s.buf.Len()),
		pending:          append([]byte(nil), s.buf.Bytes()...),
	}
	if _, ok := indexOf(s.volume.order, s.name); !ok {
		s.volume.order = append(s.volume.order, s.name)
	}
}

func indexOf(s []string, v string) (int, bool) {
	for i, x := range s {
		if x == v {
			return i, true
		}
	}
	return -1, false
}

// StreamAddMember writes a member incrementally (spec §4.E
// "Creating a member"): a local header with placeholder sizes, then
// source compressed through method, tracking CRC32 and both sizes,
// then the local header is rewritten in place with final values.
// progress.Report is called with the running uncompressed offset.
func (v *Volume) StreamAddMember(ctx context.Context, name string, source io.Reader, method uint16, pc progress.Context) error {
	if pc == nil {
		pc = progress.Noop{}
	}

	localOffset := v.nextOffset
	header := localFileHeader{
		Signature:        sigLocalFileHeader,
		VersionNeeded:    versionNeeded,
		Method:           method,
		FilenameLen:      uint16(len(name)),
		CompressedSize:   saturated32,
		UncompressedSize: saturated32,
	}
	headerBytes, err := structio.PackToBytes(&header)
	if err != nil {
		return err
	}

	pos := localOffset
	if err := v.writeAt(pos, headerBytes); err != nil {
		return err
	}
	pos += int64(len(headerBytes))
	if err := v.writeAt(pos, []byte(name)); err != nil {
		return err
	}
	pos += int64(len(name))
	payloadStart := pos

	crc := crc32.NewIEEE()
	var uncompressed, compressed int64

	writeCompressed := func(p []byte) error {
		if err := v.writeAt(pos, p); err != nil {
			return err
		}
		pos += int64(len(p))
		compressed += int64(len(p))
		return nil
	}

	switch method {
	case MethodStored:
		buf := make([]byte, 256*1024)
		for {
			n, rerr := source.Read(buf)
			if n > 0 {
				crc.Write(buf[:n])
				if err := writeCompressed(buf[:n]); err != nil {
					return err
				}
				uncompressed += int64(n)
				if err := pc.Report(ctx, uncompressed); err != nil {
					return err
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return errors.Wrap(rerr, "zip64: reading member source")
			}
		}
	case MethodDeflate:
		pw := &countingWriter{next: writeCompressed}
		fw, ferr := flate.NewWriter(pw, flate.DefaultCompression)
		if ferr != nil {
			return errors.Wrap(ferr, "zip64: creating deflate writer")
		}
		buf := make([]byte, 256*1024)
		for {
			n, rerr := source.Read(buf)
			if n > 0 {
				crc.Write(buf[:n])
				if _, err := fw.Write(buf[:n]); err != nil {
					return errors.Wrap(err, "zip64: compressing member")
				}
				uncompressed += int64(n)
				if err := pc.Report(ctx, uncompressed); err != nil {
					return err
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return errors.Wrap(rerr, "zip64: reading member source")
			}
		}
		if err := fw.Close(); err != nil {
			return errors.Wrap(err, "zip64: closing deflate writer")
		}
	default:
		return errors.Errorf("zip64: unsupported compression method %d", method)
	}

	header.CRC32 = crc.Sum32()
	header.CompressedSize = uint32(compressed)
	header.UncompressedSize = uint32(uncompressed)
	finalBytes, err := structio.PackToBytes(&header)
	if err != nil {
		return err
	}
	if err := v.writeAt(localOffset, finalBytes); err != nil {
		return err
	}

	v.members[name] = &memberInfo{
		name:              name,
		method:            method,
		crc32:             header.CRC32,
		compressedSize:    uint64(compressed),
		uncompressedSize:  uint64(uncompressed),
		localHeaderOffset: uint64(localOffset),
		payloadStart:      uint64(payloadStart),
	}
	if _, ok := indexOf(v.order, name); !ok {
		v.order = append(v.order, name)
	}
	v.nextOffset = pos
	return nil
}

type countingWriter struct {
	next func([]byte) error
}

func (w *countingWriter) Write(p []byte) (int, error) {
	if err := w.next(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (v *Volume) writeAt(offset int64, p []byte) error {
	_, err := v.backing.WriteAt(p, v.globalOffset+offset)
	return errors.Wrap(err, "zip64: writing to backing store")
}

// OpenZipSegment locates name in the CD table and returns a reader for
// its decompressed content (spec §4.E "Opening a member").
func (v *Volume) OpenZipSegment(name string) (io.ReadSeeker, error) {
	m, ok := v.members[name]
	if !ok {
		return nil, errors.Errorf("zip64: no such member %q", name)
	}
	if m.pending != nil {
		return bytes.NewReader(m.pending), nil
	}

	raw := make([]byte, m.compressedSize)
	if _, err := v.backing.ReadAt(raw, v.globalOffset+int64(m.payloadStart)); err != nil {
		return nil, errors.Wrapf(err, "zip64: reading payload for %q", name)
	}

	switch m.method {
	case MethodStored:
		return bytes.NewReader(raw), nil
	case MethodDeflate:
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		decoded, err := io.ReadAll(fr)
		if err != nil {
			return nil, errors.Wrapf(err, "zip64: inflating %q", name)
		}
		return bytes.NewReader(decoded), nil
	default:
		return nil, errors.Errorf("zip64: member %q has unknown method %d", name, m.method)
	}
}

// Members returns the names of every member currently known,
// insertion order preserved, used by the container loader to iterate
// stored segments.
func (v *Volume) Members() []string {
	return append([]string(nil), v.order...)
}

// MemberSize returns the uncompressed size of name, if present.
func (v *Volume) MemberSize(name string) (uint64, bool) {
	m, ok := v.members[name]
	if !ok {
		return 0, false
	}
	return m.uncompressedSize, true
}

// Flush persists every pending in-memory segment plus the central
// directory / Zip64 EOCD / Zip64 locator / traditional ECD chain (spec
// §4.E "Flush").
func (v *Volume) Flush() error {
	for _, name := range v.order {
		m := v.members[name]
		if m.pending == nil {
			continue
		}
		if err := v.flushPendingMember(m); err != nil {
			return err
		}
	}

	var cd bytes.Buffer
	for _, name := range v.order {
		m := v.members[name]
		if err := writeCentralDirEntry(&cd, m); err != nil {
			return err
		}
	}

	cdOffset := v.nextOffset
	if err := v.writeAt(cdOffset, cd.Bytes()); err != nil {
		return err
	}
	cdEnd := cdOffset + int64(cd.Len())

	eocd := zip64EOCD{
		Signature:     sigZip64EOCD,
		VersionMadeBy: versionNeeded,
		VersionNeeded: versionNeeded,
		EntriesOnDisk: uint64(len(v.order)),
		TotalEntries:  uint64(len(v.order)),
		CDSize:        uint64(cd.Len()),
		CDOffset:      uint64(cdOffset),
	}
	eocd.RecordSize = uint64(structio.Sizeof(&eocd)) - 12
	eocdBytes, err := structio.PackToBytes(&eocd)
	if err != nil {
		return err
	}
	if err := v.writeAt(cdEnd, eocdBytes); err != nil {
		return err
	}
	locatorOffset := cdEnd + int64(len(eocdBytes))

	locator := zip64Locator{
		Signature:       sigZip64Locator,
		Zip64EOCDOffset: uint64(cdEnd),
		TotalDisks:      1,
	}
	locatorBytes, err := structio.PackToBytes(&locator)
	if err != nil {
		return err
	}
	if err := v.writeAt(locatorOffset, locatorBytes); err != nil {
		return err
	}
	ecdOffset := locatorOffset + int64(len(locatorBytes))

	comment := []byte(v.volumeURN)
	ecd := endOfCentralDir{
		Signature:     sigECD,
		DiskNumber:    0,
		DiskWithCD:    0,
		EntriesOnDisk: saturated16,
		TotalEntries:  saturated16,
		CDSize:        saturated32,
		CDOffset:      saturated32,
		CommentLen:    uint16(len(comment)),
	}
	ecdBytes, err := structio.PackToBytes(&ecd)
	if err != nil {
		return err
	}
	if err := v.writeAt(ecdOffset, ecdBytes); err != nil {
		return err
	}
	if err := v.writeAt(ecdOffset+int64(len(ecdBytes)), comment); err != nil {
		return err
	}

	v.nextOffset = ecdOffset + int64(len(ecdBytes)) + int64(len(comment))
	return nil
}

func (v *Volume) flushPendingMember(m *memberInfo) error {
	localOffset := v.nextOffset
	header := localFileHeader{
		Signature:        sigLocalFileHeader,
		VersionNeeded:    versionNeeded,
		Method:           m.method,
		CRC32:            m.crc32,
		CompressedSize:   uint32(m.compressedSize),
		UncompressedSize: uint32(m.uncompressedSize),
		FilenameLen:      uint16(len(m.name)),
	}
	headerBytes, err := structio.PackToBytes(&header)
	if err != nil {
		return err
	}
	pos := localOffset
	if err := v.writeAt(pos, headerBytes); err != nil {
		return err
	}
	pos += int64(len(headerBytes))
	if err := v.writeAt(pos, []byte(m.name)); err != nil {
		return err
	}
	pos += int64(len(m.name))
	m.payloadStart = uint64(pos)
	if err := v.writeAt(pos, m.pending); err != nil {
		return err
	}
	pos += int64(len(m.pending))
	m.localHeaderOffset = uint64(localOffset)
	m.pending = nil
	v.nextOffset = pos
	return nil
}

func writeCentralDirEntry(w io.Writer, m *memberInfo) error {
	header := centralDirHeader{
		Signature:         sigCentralDir,
		VersionMadeBy:     versionNeeded,
		VersionNeeded:     versionNeeded,
		Method:            m.method,
		CRC32:             m.crc32,
		CompressedSize:    saturated32,
		UncompressedSize:  saturated32,
		FilenameLen:       uint16(len(m.name)),
		ExtraLen:          4 + zip64ExtraFieldSize,
		LocalHeaderOffset: saturated32,
	}
	if err := structio.Pack(w, &header); err != nil {
		return err
	}
	if _, err := w.Write([]byte(m.name)); err != nil {
		return errors.Wrap(err, "zip64: writing CD filename")
	}
	extra := zip64ExtraField{
		HeaderID:          zip64ExtraFieldID,
		Size:              zip64ExtraFieldSize,
		UncompressedSize:  m.uncompressedSize,
		CompressedSize:    m.compressedSize,
		LocalHeaderOffset: m.localHeaderOffset,
	}
	return structio.Pack(w, &extra)
}
