package bevy

import (
	"container/list"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// chunkCacheEntry is one decompressed chunk held in the in-memory
// read cache.
type chunkCacheEntry struct {
	key      string
	data     []byte
	expireAt time.Time
}

// ChunkCache is the bounded, time-limited read cache described in spec
// §4.F: capacity 1000, TTL 10s, keyed by chunk id. It is distinct from
// lib/lru's resolver-level cache, which has no TTL concept — a decoded
// chunk, unlike a resolver object, has no "dirty" state to flush, only
// an expiry.
type ChunkCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	index    map[string]*list.Element
}

// DefaultChunkCacheCapacity and DefaultChunkCacheTTL match spec §4.F.
const (
	DefaultChunkCacheCapacity = 1000
	DefaultChunkCacheTTL      = 10 * time.Second
)

// NewChunkCache returns an empty ChunkCache.
func NewChunkCache(capacity int, ttl time.Duration) *ChunkCache {
	return &ChunkCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Get returns the cached chunk for key if present and not expired.
func (c *ChunkCache) Get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*chunkCacheEntry)
	if now.After(entry.expireAt) {
		c.order.Remove(elem)
		delete(c.index, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.data, true
}

// Put inserts data for key, evicting the least-recently-used entry if
// capacity is exceeded.
func (c *ChunkCache) Put(key string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.Remove(elem)
		delete(c.index, key)
	}
	entry := &chunkCacheEntry{key: key, data: data, expireAt: now.Add(c.ttl)}
	elem := c.order.PushFront(entry)
	c.index[key] = elem

	for c.order.Len() > c.capacity {
		tail := c.order.Back()
		c.order.Remove(tail)
		delete(c.index, tail.Value.(*chunkCacheEntry).key)
	}
}

// DiskCache is an optional second-tier cache for decompressed chunks,
// persisted under the container's configured cache directory (spec's
// lexicon AFF4_CONFIG_CACHE_DIR attribute) so it survives past one
// process's in-memory ChunkCache. Grounded on
// backend/cache/storage_persistent.go's bolt-backed persistent store.
type DiskCache struct {
	db     *bbolt.DB
	bucket []byte
}

var diskCacheBucket = []byte("chunks")

// OpenDiskCache opens (creating if absent) a bbolt database at path to
// back a DiskCache.
func OpenDiskCache(path string) (*DiskCache, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "bevy: opening disk chunk cache")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(diskCacheBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "bevy: initializing disk chunk cache bucket")
	}
	return &DiskCache{db: db, bucket: diskCacheBucket}, nil
}

// Get returns the cached chunk for key, if present.
func (d *DiskCache) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(d.bucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "bevy: reading disk chunk cache")
	}
	return out, out != nil, nil
}

// Put persists data for key.
func (d *DiskCache) Put(key string, data []byte) error {
	return errors.Wrap(d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(d.bucket).Put([]byte(key), data)
	}), "bevy: writing disk chunk cache")
}

// Close releases the underlying database handle.
func (d *DiskCache) Close() error {
	return d.db.Close()
}
