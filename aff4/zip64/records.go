// Package zip64 implements the writable, appendable ZIP64 archive
// format an AFF4 container's volume layer is built on (spec §4.E): a
// sequence of local-header + payload records, a 64-bit central
// directory, and the Zip64 end-of-central-directory chain. This is
// deliberately not a general ZIP implementation — only STORED and
// DEFLATE members, no encryption, no multi-disk spanning, a single
// archive comment carrying the volume URN.
package zip64

const (
	sigLocalFileHeader = 0x04034b50
	sigCentralDir       = 0x02014b50
	sigZip64EOCD        = 0x06064b50
	sigZip64Locator     = 0x07064b50
	sigECD              = 0x06054b50

	zip64ExtraFieldID = 0x0001

	// Method identifiers as stored in the on-disk records.
	MethodStored  uint16 = 0
	MethodDeflate uint16 = 8

	versionNeeded = 45 // ZIP64 requires >= 4.5

	// All traditional size/offset/disk fields saturate to this when the
	// real value lives in the Zip64 extra field.
	saturated32 = 0xFFFFFFFF
	saturated16 = 0xFFFF
)

// localFileHeader is the fixed-width portion of a local file header;
// the filename and the Zip64 extra field follow it in the stream.
type localFileHeader struct {
	Signature        uint32
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	FilenameLen      uint16
	ExtraLen         uint16
}

// centralDirHeader is the fixed-width portion of one CD entry; the
// filename and Zip64 extra field follow it.
type centralDirHeader struct {
	Signature          uint32
	VersionMadeBy      uint16
	VersionNeeded      uint16
	Flags              uint16
	Method             uint16
	ModTime            uint16
	ModDate            uint16
	CRC32              uint32
	CompressedSize     uint32
	UncompressedSize   uint32
	FilenameLen        uint16
	ExtraLen           uint16
	CommentLen         uint16
	DiskNumberStart    uint16
	InternalAttrs      uint16
	ExternalAttrs      uint32
	LocalHeaderOffset  uint32
}

// zip64ExtraField is header id 1, size 28: the three 8-byte fields
// plus the 4-byte disk number, present whenever any traditional field
// above is saturated.
type zip64ExtraField struct {
	HeaderID         uint16
	Size             uint16
	UncompressedSize uint64
	CompressedSize   uint64
	LocalHeaderOffset uint64
	DiskNumber       uint32
}

const zip64ExtraFieldSize = 28 // payload size, not counting the 4-byte id+size prefix

type zip64EOCD struct {
	Signature              uint32
	RecordSize             uint64
	VersionMadeBy          uint16
	VersionNeeded          uint16
	DiskNumber             uint32
	DiskWithCD             uint32
	EntriesOnDisk          uint64
	TotalEntries           uint64
	CDSize                 uint64
	CDOffset               uint64
}

type zip64Locator struct {
	Signature       uint32
	DiskWithZip64EOCD uint32
	Zip64EOCDOffset uint64
	TotalDisks      uint32
}

type endOfCentralDir struct {
	Signature        uint32
	DiskNumber       uint16
	DiskWithCD       uint16
	EntriesOnDisk    uint16
	TotalEntries     uint16
	CDSize           uint32
	CDOffset         uint32
	CommentLen       uint16
}
