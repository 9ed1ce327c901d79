package bevy

import (
	"fmt"
	"time"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/pkg/errors"
)

// BevyOpener opens a named bevy segment (its payload or its index)
// for reading, given a bevy number. It is satisfied by a resolver
// lookup against a volume in the image stream's real code; here it is
// narrowed to exactly what Reader needs so this package has no
// dependency on resolver/zip64.
type BevyOpener interface {
	ReadBevyPayload(bevyNumber int) ([]byte, error)
	ReadBevyIndex(bevyNumber int) ([]byte, error)
}

// Reader serves Read(len) against a bevy-backed logical stream (spec
// §4.F "Read path").
type Reader struct {
	opener           BevyOpener
	chunkSize        int
	chunksPerSegment int
	method           Method
	format           IndexFormat
	size             int64

	cache     *ChunkCache
	diskCache *DiskCache

	urnPrefix string // used only to namespace cache keys across streams
}

// NewReader returns a Reader with the default chunk-cache capacity and
// TTL from spec §4.F.
func NewReader(opener BevyOpener, urn rdfvalue.URN, chunkSize, chunksPerSegment int, method Method, format IndexFormat, size int64) *Reader {
	return &Reader{
		opener:           opener,
		chunkSize:        chunkSize,
		chunksPerSegment: chunksPerSegment,
		method:           method,
		format:           format,
		size:             size,
		cache:            NewChunkCache(DefaultChunkCacheCapacity, DefaultChunkCacheTTL),
		urnPrefix:        urn.String(),
	}
}

// SetDiskCache attaches an optional second-tier disk cache, consulted
// on in-memory cache miss before decompressing from the bevy payload.
func (r *Reader) SetDiskCache(d *DiskCache) { r.diskCache = d }

// ReadAt reads up to len(p) bytes starting at logical offset off,
// returning a short read only at end of stream (spec: "Reads past
// size() return short").
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, nil
	}
	length := int64(len(p))
	if off+length > r.size {
		length = r.size - off
	}

	firstChunk := off / int64(r.chunkSize)
	lastChunk := (off + length - 1) / int64(r.chunkSize)

	written := 0
	for chunkID := firstChunk; chunkID <= lastChunk; chunkID++ {
		chunk, err := r.readChunk(int(chunkID))
		if err != nil {
			return written, err
		}

		chunkStart := chunkID * int64(r.chunkSize)
		lo := int64(0)
		if chunkID == firstChunk {
			lo = off - chunkStart
		}
		hi := int64(len(chunk))
		if chunkID == lastChunk {
			hi = (off + length) - chunkStart
			if hi > int64(len(chunk)) {
				hi = int64(len(chunk))
			}
		}
		if lo > hi {
			lo = hi
		}
		n := copy(p[written:], chunk[lo:hi])
		written += n
	}
	return written, nil
}

func (r *Reader) readChunk(chunkID int) ([]byte, error) {
	now := time.Now()
	key := fmt.Sprintf("%s#%d", r.urnPrefix, chunkID)

	if data, ok := r.cache.Get(key, now); ok {
		return data, nil
	}
	if r.diskCache != nil {
		if data, ok, err := r.diskCache.Get(key); err != nil {
			return nil, err
		} else if ok {
			r.cache.Put(key, data, now)
			return data, nil
		}
	}

	bevyNumber := chunkID / r.chunksPerSegment
	chunkInBevy := chunkID % r.chunksPerSegment

	rawIndex, err := r.opener.ReadBevyIndex(bevyNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "bevy: opening index for bevy %d", bevyNumber)
	}
	if len(rawIndex) == 0 {
		return nil, errors.Errorf("bevy: index empty for bevy %d chunk %d", bevyNumber, chunkID)
	}

	payload, err := r.opener.ReadBevyPayload(bevyNumber)
	if err != nil {
		return nil, errors.Wrapf(err, "bevy: opening payload for bevy %d", bevyNumber)
	}

	spans, err := DecodeIndex(r.format, rawIndex, uint64(len(payload)))
	if err != nil {
		return nil, err
	}
	if chunkInBevy >= len(spans) {
		return nil, errors.Errorf("bevy: index too short for bevy %d chunk %d", bevyNumber, chunkID)
	}

	span := spans[chunkInBevy]
	if int64(span.Offset)+int64(span.Length) > int64(len(payload)) {
		return nil, errors.Errorf("bevy: chunk %d span exceeds bevy payload size", chunkID)
	}
	compressed := payload[span.Offset : span.Offset+uint64(span.Length)]

	data, err := decompress(r.method, r.chunkSize, compressed)
	if err != nil {
		return nil, err
	}

	r.cache.Put(key, data, now)
	if r.diskCache != nil {
		if err := r.diskCache.Put(key, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Size returns the logical stream's size.
func (r *Reader) Size() int64 { return r.size }
