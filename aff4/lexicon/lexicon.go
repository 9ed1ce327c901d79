// Package lexicon holds the predicate and type URN vocabularies a
// container's Turtle metadata is written against. Three historical
// variants exist (spec §2, §9): the AFF4 Standard v1.0 namespace, the
// pre-standard Evimetry namespace, and Scudette/Rekall's namespace,
// grounded on original_source/pyaff4/pyaff4/lexicon.py's
// StdLexicon/LegacyLexicon/ScudetteLexicon classes.
package lexicon

// Namespace roots.
const (
	AFF4Namespace       = "http://aff4.org/Schema#"
	AFF4LegacyNamespace = "http://afflib.org/2009/aff4#"
	XSDNamespace        = "http://www.w3.org/2001/XMLSchema#"
	RDFNamespace        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	AFF4VolatileNamespace = "http://aff4.org/VolatileSchema#"
)

// Well-known container member names.
const (
	ContainerDescription = "container.description"
	ContainerInfoTurtle  = "information.turtle"
	ContainerInfoYAML    = "information.yaml"
)

// Variant selects which predicate/type vocabulary a container was
// written with, decided by container.Identify (spec §6.A).
type Variant int

const (
	Standard Variant = iota
	PreStandard
	Scudette
)

// Lexicon is the predicate/type vocabulary for one Variant.
type Lexicon struct {
	Base string

	Map               string
	Image             string
	Stored            string
	Target            string
	Contains          string
	DataStream        string
	DependentStream   string
	Hash              string
	BlockHashesHash   string
	BlockMapHash      string
	MapPointHash      string
	MapIdxHash        string
	MapPathHash       string
	MapHash           string
	ChunksPerSegment  string
	ChunkSize         string
	StreamSize        string
	CompressionMethod string
	Category          string
}

var (
	// StandardLexicon is the AFF4 v1.0 namespace
	// (http://aff4.org/Schema#), the default variant written by this
	// module and expected absent other evidence.
	StandardLexicon = Lexicon{
		Base:              AFF4Namespace,
		Map:               AFF4Namespace + "Map",
		Image:             AFF4Namespace + "Image",
		Stored:            AFF4Namespace + "stored",
		Target:            AFF4Namespace + "target",
		Contains:          AFF4Namespace + "contains",
		DataStream:        AFF4Namespace + "dataStream",
		DependentStream:   AFF4Namespace + "dependentStream",
		Hash:              AFF4Namespace + "hash",
		BlockHashesHash:   AFF4Namespace + "blockHashesHash",
		BlockMapHash:      AFF4Namespace + "blockMapHash",
		MapPointHash:      AFF4Namespace + "mapPointHash",
		MapIdxHash:        AFF4Namespace + "mapIdxHash",
		MapPathHash:       AFF4Namespace + "mapPathHash",
		MapHash:           AFF4Namespace + "mapHash",
		ChunksPerSegment:  AFF4Namespace + "chunksInSegment",
		ChunkSize:         AFF4Namespace + "chunkSize",
		StreamSize:        AFF4Namespace + "size",
		CompressionMethod: AFF4Namespace + "compressionMethod",
	}

	// PreStandardLexicon is Evimetry 1.x/2.x's afflib.org namespace.
	PreStandardLexicon = Lexicon{
		Base:              AFF4LegacyNamespace,
		Map:               AFF4LegacyNamespace + "map",
		Image:             AFF4LegacyNamespace + "Image",
		Stored:            AFF4LegacyNamespace + "stored",
		BlockHashesHash:   AFF4LegacyNamespace + "blockHashesHash",
		MapPointHash:      AFF4LegacyNamespace + "mapPointHash",
		MapIdxHash:        AFF4LegacyNamespace + "mapIdxHash",
		MapPathHash:       AFF4LegacyNamespace + "mapPathHash",
		MapHash:           AFF4LegacyNamespace + "mapHash",
		Hash:              AFF4LegacyNamespace + "hash",
		ChunksPerSegment:  AFF4LegacyNamespace + "chunksInSegment",
		ChunkSize:         AFF4LegacyNamespace + "chunkSize",
		StreamSize:        AFF4LegacyNamespace + "size",
		CompressionMethod: AFF4LegacyNamespace + "CompressionMethod",
	}

	// ScudetteLexiconValue is Rekall/Scudette's namespace, which reuses the
	// aff4.org host but lower-cases several predicate names and uses
	// snake_case for the chunking attributes.
	ScudetteLexiconValue = Lexicon{
		Base:              AFF4Namespace,
		Map:               AFF4Namespace + "map",
		Image:             AFF4Namespace + "image",
		Stored:            AFF4Namespace + "stored",
		BlockHashesHash:   AFF4Namespace + "blockHashesHash",
		MapPointHash:      AFF4Namespace + "mapPointHash",
		MapIdxHash:        AFF4Namespace + "mapIdxHash",
		MapPathHash:       AFF4Namespace + "mapPathHash",
		MapHash:           AFF4Namespace + "mapHash",
		Hash:              AFF4Namespace + "hash",
		ChunksPerSegment:  AFF4Namespace + "chunks_per_segment",
		ChunkSize:         AFF4Namespace + "chunk_size",
		StreamSize:        AFF4Namespace + "size",
		CompressionMethod: AFF4Namespace + "compression",
		Category:          AFF4Namespace + "category",
	}
)

// For looks up the Lexicon for v.
func For(v Variant) Lexicon {
	switch v {
	case Standard:
		return StandardLexicon
	case PreStandard:
		return PreStandardLexicon
	case Scudette:
		return ScudetteLexiconValue
	default:
		return StandardLexicon
	}
}

// RDF type URNs, keyed by Variant where they differ.
var (
	ZipVolumeType = AFF4Namespace + "zip_volume"

	ImageType         = AFF4Namespace + "ImageStream"
	LegacyImageType   = AFF4LegacyNamespace + "stream"
	ScudetteImageType = AFF4Namespace + "image"

	MapType         = AFF4Namespace + "Map"
	LegacyMapType   = AFF4LegacyNamespace + "map"
	ScudetteMapType = AFF4Namespace + "map"

	ZipSegmentType = AFF4Namespace + "zip_segment"
	FileType       = AFF4Namespace + "file"
	DirectoryType  = AFF4Namespace + "directory"
	ConstantType   = AFF4Namespace + "constant"

	TypePredicate = RDFNamespace + "type"

	// ScudetteMemoryPhysical is the category value a Scudette container
	// uses on its top-level map to mark it as a physical memory image,
	// the only category container.Open currently knows how to open.
	ScudetteMemoryPhysical = AFF4Namespace + "memory/physical"

	// MemoryPageTableEntryOffset and OSXKASLRSlide are the volatile
	// predicates a Scudette container's information.yaml CR3/
	// kaslr_slide fields are attached to the map subject under.
	MemoryPageTableEntryOffset = AFF4VolatileNamespace + "memoryPageTableEntryOffset"
	OSXKASLRSlide              = AFF4VolatileNamespace + "OSXKASLRSlide"
)

// Compression method URNs (spec §4.F).
const (
	CompressionZlib            = "https://www.ietf.org/rfc/rfc1950.txt"
	CompressionSnappy          = "http://code.google.com/p/snappy/"
	CompressionSnappyScudette  = "https://github.com/google/snappy"
	CompressionStored          = AFF4Namespace + "compression/stored"
)

// XSD datatype URNs used to tag typed literals.
const (
	XSDString  = XSDNamespace + "string"
	XSDHexBin  = XSDNamespace + "hexBinary"
	XSDInteger = XSDNamespace + "integer"
	XSDBoolean = XSDNamespace + "boolean"
)

// Hash predicate URNs (spec §4.I), keyed by algorithm short name.
var HashTypeURN = map[string]string{
	"sha512":  AFF4Namespace + "SHA512",
	"sha256":  AFF4Namespace + "SHA256",
	"sha1":    AFF4Namespace + "SHA1",
	"md5":     AFF4Namespace + "MD5",
	"blake2b": AFF4Namespace + "Blake2b",
}

// BlockMapHashSHA512 is the folded block-map hash predicate's
// algorithm identity; unlike the others it never appears as a
// stand-alone per-block hash, only as the combined blockMapHash value.
const BlockMapHashSHA512 = AFF4Namespace + "blockMapHashSHA512"

// StreamWriteMode is a volatile (non-persisted) attribute recording
// whether a stream was opened for read, append, or truncate.
const StreamWriteMode = AFF4VolatileNamespace + "writable"

// FileName is a volatile attribute overriding the filesystem path a
// file:// URN maps to, when the URN can't be used directly as a path.
const FileName = AFF4VolatileNamespace + "filename"

// Symbolic stream URN suffixes, grounded on stream_factory.py's
// StreamFactory.fixedSymbolics and the two-byte-hex-suffix pattern
// both StdStreamFactory and PreStdStreamFactory recognize
// (<base>SymbolicStreamXX and, pre-standard only, the bare <base>XX
// form plus the legacy http://afflib.org/2012/SymbolicStream#
// namespace).
const (
	SymbolicZero          = "Zero"
	SymbolicUnknownData   = "UnknownData"
	SymbolicUnreadableData = "UnreadableData"
	SymbolicNoData        = "NoData"
	SymbolicFF            = "FF" // pre-standard only

	SymbolicStreamPrefix       = "SymbolicStream"
	PreStandardSymbolicNamespace = "http://afflib.org/2012/SymbolicStream#"
)
