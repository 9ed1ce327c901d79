package resolver

import "github.com/aff4-go/aff4/aff4/rdfvalue"

// AFF4Object is the minimal contract the object cache needs from
// anything it holds: a cache key, a dirty flag, and a way to flush
// pending writes. Streams, volumes and maps all satisfy this on top of
// their richer Stream/Volume interfaces (spec §4.A).
type AFF4Object interface {
	URN() rdfvalue.URN
	IsDirty() bool
	Flush() error
}

// Key implements lru.Entry.
type objectEntry struct {
	obj AFF4Object
}

func (e objectEntry) Key() string     { return e.obj.URN().String() }
func (e objectEntry) IsDirty() bool   { return e.obj.IsDirty() }
func (e objectEntry) Flush() error    { return e.obj.Flush() }
