// Package resolver implements the AFF4 resolver (spec §4.C): the
// triple store every object's metadata lives in, the two-tier
// in-use/LRU object cache, the polymorphic Open dispatch, and Turtle
// serialization of the store.
//
// Grounded on original_source/pyaff4/pyaff4/data_store.py
// (MemoryDataStore + AFF4ObjectCache) for the cache and store
// semantics, and on backend/cache/storage_persistent.go's
// dirty-flush-on-evict convention for how Put/Return interact with
// Flush.
package resolver

import (
	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/aff4-go/aff4/lib/lru"
	"github.com/pkg/errors"
)

// Factory constructs an AFF4Object for urn given its already-resolved
// RDF type. Registered per RDF type URN via Register.
type Factory func(r *Resolver, urn rdfvalue.URN) (AFF4Object, error)

// SymbolicFactory recognizes and constructs the small set of
// pseudo-streams whose URN alone determines their content (spec
// §4.H), ahead of any registered-type or scheme-based dispatch.
type SymbolicFactory interface {
	IsSymbolic(urn rdfvalue.URN) bool
	CreateSymbolic(urn rdfvalue.URN) (AFF4Object, error)
}

// SchemeFactory is the fallback used when a URN has no stored RDF type
// and is not symbolic: construction keyed on the URN's scheme alone
// (file:// opens a filesystem-backed stream).
type SchemeFactory func(r *Resolver, urn rdfvalue.URN) (AFF4Object, error)

// Resolver is the AFF4 object resolver: a triple store plus a
// two-tier object cache and the polymorphic factory dispatch used by
// Open.
type Resolver struct {
	Store   *Store
	Lexicon lexicon.Variant

	cache *lru.Cache[objectEntry]

	byType       map[string]Factory
	symbolic     SymbolicFactory
	byScheme     map[string]SchemeFactory
	flushCallbacks []func() error
}

// DefaultCacheCapacity is the LRU tier capacity a fresh Resolver is
// constructed with, matching AFF4ObjectCache(10) in the original.
const DefaultCacheCapacity = 10

// New returns a Resolver with an empty store and an empty object
// cache of DefaultCacheCapacity.
func New(variant lexicon.Variant) *Resolver {
	return &Resolver{
		Store:    NewStore(),
		Lexicon:  variant,
		cache:    lru.New[objectEntry](DefaultCacheCapacity),
		byType:   make(map[string]Factory),
		byScheme: make(map[string]SchemeFactory),
	}
}

// Register associates a Factory with an RDF type URN, used by Open
// when the store names rdfType for a subject.
func (r *Resolver) Register(rdfType string, f Factory) {
	r.byType[rdfType] = f
}

// RegisterScheme associates a SchemeFactory with a URN scheme (e.g.
// "file"), the last-resort dispatch Open falls back to.
func (r *Resolver) RegisterScheme(scheme string, f SchemeFactory) {
	r.byScheme[scheme] = f
}

// SetSymbolicFactory installs the symbolic-stream recognizer Open
// checks first.
func (r *Resolver) SetSymbolicFactory(f SymbolicFactory) {
	r.symbolic = f
}

// Open constructs or fetches the cached AFF4Object for urn, following
// the dispatch order from spec §4.C: a symbolic-stream match first,
// then the subject's registered RDF type, then a URN-scheme fallback.
func (r *Resolver) Open(urn rdfvalue.URN) (AFF4Object, error) {
	if obj, ok := r.cache.Get(urn.String()); ok {
		return obj.obj, nil
	}

	if r.symbolic != nil && r.symbolic.IsSymbolic(urn) {
		obj, err := r.symbolic.CreateSymbolic(urn)
		if err != nil {
			return nil, err
		}
		return r.cachePutInUse(obj)
	}

	if v, ok := r.Store.Get(urn, rdfvalue.ParseURN(lexicon.TypePredicate)); ok && v.IsURN() {
		if f, ok := r.byType[v.URN().String()]; ok {
			obj, err := f(r, urn)
			if err != nil {
				return nil, err
			}
			return r.cachePutInUse(obj)
		}
	}

	if f, ok := r.byScheme[urn.Scheme()]; ok {
		obj, err := f(r, urn)
		if err != nil {
			return nil, err
		}
		return r.cachePutInUse(obj)
	}

	return nil, &notFound{urn: urn.String()}
}

type notFound struct{ urn string }

func (e *notFound) Error() string { return "aff4: no factory could open " + e.urn }

func (r *Resolver) cachePutInUse(obj AFF4Object) (AFF4Object, error) {
	if err := r.cache.Put(objectEntry{obj: obj}, true); err != nil {
		return nil, errors.Wrap(err, "resolver: caching opened object")
	}
	return obj, nil
}

// CachePut inserts obj into the cache already marked in-use, for
// objects constructed outside of Open (e.g. a freshly created
// writable stream).
func (r *Resolver) CachePut(obj AFF4Object) error {
	return r.cache.Put(objectEntry{obj: obj}, true)
}

// Return releases one reference to urn's in-use object, moving it to
// the LRU tier once its refcount reaches zero.
func (r *Resolver) Return(urn rdfvalue.URN) error {
	return r.cache.Return(urn.String())
}

// OnFlush registers a callback invoked every time Flush runs, used by
// volumes to persist their central directory once every resident
// object has been flushed.
func (r *Resolver) OnFlush(cb func() error) {
	r.flushCallbacks = append(r.flushCallbacks, cb)
}

// Flush flushes and empties the object cache, then runs every
// registered flush callback. It panics (ProgrammerError, spec §7) if
// any object is still in use, matching AFF4ObjectCache.Flush.
func (r *Resolver) Flush() error {
	if err := r.cache.Flush(); err != nil {
		return err
	}
	for _, cb := range r.flushCallbacks {
		if err := cb(); err != nil {
			return err
		}
	}
	return nil
}
