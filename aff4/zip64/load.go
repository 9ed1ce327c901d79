package zip64

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/aff4-go/aff4/aff4/structio"
	"github.com/pkg/errors"
)

const maxECDScan = 64 * 1024

// Open reads an existing archive from backing (spec §4.E "Loading"):
// scan backward for the traditional ECD, find the Zip64 locator
// immediately before it, load the Zip64 end-of-CD it points to, then
// walk the CD. volumeURN is read from the ECD comment if present.
func Open(backing Backing, size int64) (*Volume, error) {
	scanLen := int64(maxECDScan)
	if scanLen > size {
		scanLen = size
	}
	tail := make([]byte, scanLen)
	if _, err := backing.ReadAt(tail, size-scanLen); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "zip64: reading archive tail")
	}

	ecdRelOffset := bytes.LastIndex(tail, uint32LE(sigECD))
	if ecdRelOffset < 0 {
		return nil, errors.New("zip64: end of central directory record not found")
	}
	ecdOffset := size - scanLen + int64(ecdRelOffset)

	var ecd endOfCentralDir
	if err := readRecordAt(backing, ecdOffset, &ecd); err != nil {
		return nil, errors.Wrap(err, "zip64: reading end of central directory")
	}
	commentLen := int64(ecd.CommentLen)
	comment := make([]byte, commentLen)
	if commentLen > 0 {
		if _, err := backing.ReadAt(comment, ecdOffset+int64(structio.Sizeof(&ecd))); err != nil {
			return nil, errors.Wrap(err, "zip64: reading volume URN comment")
		}
	}

	locatorOffset := ecdOffset - int64(structio.Sizeof(&zip64Locator{}))
	var locator zip64Locator
	if err := readRecordAt(backing, locatorOffset, &locator); err != nil {
		return nil, errors.Wrap(err, "zip64: reading zip64 locator")
	}
	if locator.Signature != sigZip64Locator {
		return nil, errors.New("zip64: not a zip64 archive (locator signature mismatch)")
	}

	var eocd zip64EOCD
	if err := readRecordAt(backing, int64(locator.Zip64EOCDOffset), &eocd); err != nil {
		return nil, errors.Wrap(err, "zip64: reading zip64 end of central directory")
	}

	// globalOffset accounts for the archive having been appended after
	// a prefix: the real on-disk position of the CD minus the offset
	// the Zip64 EOCD claims. The CD ends where the Zip64 EOCD record
	// (RecordSize plus its 12-byte signature/size prefix) begins.
	eocdOffset := locatorOffset - (int64(eocd.RecordSize) + 12)
	realCDOffset := eocdOffset - int64(eocd.CDSize)
	globalOffset := realCDOffset - int64(eocd.CDOffset)

	v := &Volume{
		backing:      backing,
		globalOffset: globalOffset,
		volumeURN:    string(comment),
		members:      make(map[string]*memberInfo),
	}

	cdBuf := make([]byte, eocd.CDSize)
	if _, err := backing.ReadAt(cdBuf, globalOffset+int64(eocd.CDOffset)); err != nil {
		return nil, errors.Wrap(err, "zip64: reading central directory")
	}
	if err := v.parseCentralDirectory(cdBuf); err != nil {
		return nil, err
	}

	v.nextOffset = realCDOffset - globalOffset
	return v, nil
}

func (v *Volume) parseCentralDirectory(buf []byte) error {
	r := bytes.NewReader(buf)
	for r.Len() > 0 {
		var header centralDirHeader
		if err := structio.Unpack(r, &header); err != nil {
			return errors.Wrap(err, "zip64: parsing central directory entry")
		}
		if header.Signature != sigCentralDir {
			return errors.New("zip64: central directory entry signature mismatch")
		}
		name := make([]byte, header.FilenameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return errors.Wrap(err, "zip64: reading CD filename")
		}
		extra := make([]byte, header.ExtraLen)
		if _, err := io.ReadFull(r, extra); err != nil {
			return errors.Wrap(err, "zip64: reading CD extra field")
		}
		if header.CommentLen > 0 {
			if _, err := r.Seek(int64(header.CommentLen), io.SeekCurrent); err != nil {
				return err
			}
		}

		m := &memberInfo{
			name:              string(name),
			method:            header.Method,
			crc32:             header.CRC32,
			compressedSize:    uint64(header.CompressedSize),
			uncompressedSize:  uint64(header.UncompressedSize),
			localHeaderOffset: uint64(header.LocalHeaderOffset),
		}
		if z, ok := parseZip64Extra(extra); ok {
			m.uncompressedSize = z.UncompressedSize
			m.compressedSize = z.CompressedSize
			m.localHeaderOffset = z.LocalHeaderOffset
		}

		headerBytes, err := structio.PackToBytes(&localFileHeader{})
		if err != nil {
			return err
		}
		m.payloadStart = m.localHeaderOffset + uint64(len(headerBytes)) + uint64(len(m.name))

		v.members[m.name] = m
		v.order = append(v.order, m.name)
	}
	return nil
}

func parseZip64Extra(extra []byte) (zip64ExtraField, bool) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := binary.LittleEndian.Uint16(extra[2:4])
		if int(size) > len(extra)-4 {
			return zip64ExtraField{}, false
		}
		if id == zip64ExtraFieldID {
			var z zip64ExtraField
			if err := structio.Unpack(bytes.NewReader(extra[:4+int(size)]), &z); err == nil {
				return z, true
			}
			return zip64ExtraField{}, false
		}
		extra = extra[4+size:]
	}
	return zip64ExtraField{}, false
}

func readRecordAt(backing Backing, offset int64, v interface{}) error {
	size := structio.Sizeof(v)
	buf := make([]byte, size)
	if _, err := backing.ReadAt(buf, offset); err != nil {
		return err
	}
	return structio.Unpack(bytes.NewReader(buf), v)
}

func uint32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// VolumeURN returns the URN carried in the archive's ECD comment, set
// either by Create's caller or by loading an existing archive.
func (v *Volume) VolumeURN() string { return v.volumeURN }

// SetVolumeURN renames the volume, used when loading discovers a URN
// comment that differs from the caller's expected identity.
func (v *Volume) SetVolumeURN(urn string) { v.volumeURN = urn }

// GlobalOffset returns the offset every on-disk position in the
// archive is relative to, computed during Open.
func (v *Volume) GlobalOffset() int64 { return v.globalOffset }
