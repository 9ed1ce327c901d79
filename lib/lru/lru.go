// Package lru implements the two-tier in-use/LRU object cache used by
// the resolver: every entry is either held by a caller (in_use,
// refcounted) or idle in a bounded LRU list, never both at once.
package lru

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
)

// Entry is anything the cache can hold. Key must be stable for the
// entry's lifetime; Flush persists the entry if IsDirty reports true
// and clears the dirty flag.
type Entry interface {
	Key() string
	IsDirty() bool
	Flush() error
}

type inUseSlot[T Entry] struct {
	entry    T
	refcount int
}

// Cache is the two-tier cache described in spec §4.C. It is not
// goroutine-safe by itself beyond the internal mutex guarding its own
// bookkeeping; callers that mutate entries concurrently must
// synchronize externally, matching the single-threaded-core model of
// the rest of this module.
type Cache[T Entry] struct {
	mu       sync.Mutex
	capacity int
	inUse    map[string]*inUseSlot[T]
	lru      *list.List
	lruIndex map[string]*list.Element
}

// New returns an empty Cache bounded to capacity idle (LRU) entries.
// capacity <= 0 means unbounded.
func New[T Entry](capacity int) *Cache[T] {
	return &Cache[T]{
		capacity: capacity,
		inUse:    make(map[string]*inUseSlot[T]),
		lru:      list.New(),
		lruIndex: make(map[string]*list.Element),
	}
}

// Put inserts entry. When inUse is true it enters the in_use tier
// with refcount 1 (the caller holds it, as when a factory just created
// or opened it on the caller's behalf); when false it enters directly
// at the front of the LRU tier, evicting the tail if that overflows
// capacity. It is a ProgrammerError (panic) to Put a key that is
// already present in either tier, matching spec §4.C's "no URN appears
// simultaneously in both maps" invariant plus the double-put guard
// from §7.
func (c *Cache[T]) Put(entry T, inUse bool) error {
	c.mu.Lock()
	key := entry.Key()
	if _, ok := c.inUse[key]; ok {
		c.mu.Unlock()
		panic("lru: double put of key already in-use: " + key)
	}
	if _, ok := c.lruIndex[key]; ok {
		c.mu.Unlock()
		panic("lru: double put of key already in lru: " + key)
	}
	if inUse {
		c.inUse[key] = &inUseSlot[T]{entry: entry, refcount: 1}
		c.mu.Unlock()
		return nil
	}
	elem := c.lru.PushFront(entry)
	c.lruIndex[key] = elem
	c.mu.Unlock()
	return c.evictOverflow()
}

// Get moves key from the LRU tier into in_use (incrementing refcount
// to 1) or, if already in_use, increments its refcount. Returns the
// zero value and false if key is in neither tier.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot, ok := c.inUse[key]; ok {
		slot.refcount++
		return slot.entry, true
	}
	if elem, ok := c.lruIndex[key]; ok {
		entry := elem.Value.(T)
		c.lru.Remove(elem)
		delete(c.lruIndex, key)
		c.inUse[key] = &inUseSlot[T]{entry: entry, refcount: 1}
		return entry, true
	}
	var zero T
	return zero, false
}

// Return decrements key's refcount; at zero it moves the entry to the
// front of the LRU list and evicts the tail if the LRU now exceeds
// capacity. Returning an unknown key is a no-op.
func (c *Cache[T]) Return(key string) error {
	c.mu.Lock()
	slot, ok := c.inUse[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	slot.refcount--
	if slot.refcount > 0 {
		c.mu.Unlock()
		return nil
	}
	delete(c.inUse, key)
	elem := c.lru.PushFront(slot.entry)
	c.lruIndex[key] = elem
	c.mu.Unlock()

	return c.evictOverflow()
}

func (c *Cache[T]) evictOverflow() error {
	for {
		c.mu.Lock()
		if c.capacity <= 0 || c.lru.Len() <= c.capacity {
			c.mu.Unlock()
			return nil
		}
		tail := c.lru.Back()
		entry := tail.Value.(T)
		c.lru.Remove(tail)
		delete(c.lruIndex, entry.Key())
		c.mu.Unlock()

		if entry.IsDirty() {
			if err := entry.Flush(); err != nil {
				return errors.Wrapf(err, "lru: flush on evict %q", entry.Key())
			}
		}
	}
}

// Remove flushes (if dirty) and drops key from whichever tier holds
// it. Removing an unknown key is a no-op.
func (c *Cache[T]) Remove(key string) error {
	c.mu.Lock()
	if slot, ok := c.inUse[key]; ok {
		delete(c.inUse, key)
		c.mu.Unlock()
		if slot.entry.IsDirty() {
			return errors.Wrapf(slot.entry.Flush(), "lru: flush on remove %q", key)
		}
		return nil
	}
	if elem, ok := c.lruIndex[key]; ok {
		c.lru.Remove(elem)
		delete(c.lruIndex, key)
		entry := elem.Value.(T)
		c.mu.Unlock()
		if entry.IsDirty() {
			return errors.Wrapf(entry.Flush(), "lru: flush on remove %q", key)
		}
		return nil
	}
	c.mu.Unlock()
	return nil
}

// Flush repeatedly walks the LRU tier flushing any still-dirty entries
// (re-dirtying during flush is permitted and simply extends the walk)
// until a full pass finds nothing dirty, then empties the LRU tier. It
// is a ProgrammerError to call Flush while any entry is in_use.
func (c *Cache[T]) Flush() error {
	c.mu.Lock()
	if len(c.inUse) > 0 {
		c.mu.Unlock()
		panic("lru: flush called while entries are in-use")
	}
	c.mu.Unlock()

	for {
		c.mu.Lock()
		anyDirty := false
		var toFlush []T
		for e := c.lru.Front(); e != nil; e = e.Next() {
			entry := e.Value.(T)
			if entry.IsDirty() {
				anyDirty = true
				toFlush = append(toFlush, entry)
			}
		}
		c.mu.Unlock()

		if !anyDirty {
			break
		}
		for _, entry := range toFlush {
			if err := entry.Flush(); err != nil {
				return errors.Wrapf(err, "lru: flush %q", entry.Key())
			}
		}
	}

	c.mu.Lock()
	c.lru.Init()
	c.lruIndex = make(map[string]*list.Element)
	c.mu.Unlock()
	return nil
}

// LRUKeys returns the keys currently idle in the LRU tier, ordered
// front (most recently returned) to back (next to be evicted).
func (c *Cache[T]) LRUKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.lru.Len())
	for e := c.lru.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(T).Key())
	}
	return keys
}

// InUseCount returns the number of distinct keys currently in_use.
func (c *Cache[T]) InUseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inUse)
}
