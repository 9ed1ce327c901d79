package resolver

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aff4-go/aff4/aff4/lexicon"
	"github.com/aff4-go/aff4/aff4/rdfvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAddAccumulatesSetReplaces(t *testing.T) {
	s := NewStore()
	subj := rdfvalue.ParseURN("aff4://x")
	attr := rdfvalue.ParseURN("aff4://Schema#contains")

	s.Add(subj, attr, LiteralValue(rdfvalue.NewStringLiteral("a")))
	s.Add(subj, attr, LiteralValue(rdfvalue.NewStringLiteral("b")))
	assert.Len(t, s.GetAll(subj, attr), 2)

	s.Set(subj, attr, LiteralValue(rdfvalue.NewStringLiteral("only")))
	assert.Len(t, s.GetAll(subj, attr), 1)
}

type stubObject struct {
	urn   rdfvalue.URN
	dirty bool
}

func (o *stubObject) URN() rdfvalue.URN { return o.urn }
func (o *stubObject) IsDirty() bool     { return o.dirty }
func (o *stubObject) Flush() error      { o.dirty = false; return nil }

func TestResolverOpenFallsBackThroughDispatchOrder(t *testing.T) {
	r := New(lexicon.Standard)

	var schemeCalled, typeCalled bool
	r.RegisterScheme("file", func(r *Resolver, urn rdfvalue.URN) (AFF4Object, error) {
		schemeCalled = true
		return &stubObject{urn: urn}, nil
	})
	r.Register("aff4://SomeType", func(r *Resolver, urn rdfvalue.URN) (AFF4Object, error) {
		typeCalled = true
		return &stubObject{urn: urn}, nil
	})

	// No registered type, no symbolic match: falls to scheme.
	_, err := r.Open(rdfvalue.ParseURN("file:///tmp/x"))
	require.NoError(t, err)
	assert.True(t, schemeCalled)
	assert.False(t, typeCalled)

	// Registered type present: that wins over scheme fallback.
	urn := rdfvalue.ParseURN("aff4://typed-object")
	r.Store.Set(urn, rdfvalue.ParseURN(lexicon.TypePredicate), URNValue(rdfvalue.ParseURN("aff4://SomeType")))
	_, err = r.Open(urn)
	require.NoError(t, err)
	assert.True(t, typeCalled)
}

type stubSymbolic struct{}

func (stubSymbolic) IsSymbolic(urn rdfvalue.URN) bool {
	return urn.String() == "aff4://Schema#Zero"
}
func (stubSymbolic) CreateSymbolic(urn rdfvalue.URN) (AFF4Object, error) {
	return &stubObject{urn: urn}, nil
}

func TestResolverOpenPrefersSymbolicBeforeEverythingElse(t *testing.T) {
	r := New(lexicon.Standard)
	r.SetSymbolicFactory(stubSymbolic{})
	r.RegisterScheme("aff4", func(r *Resolver, urn rdfvalue.URN) (AFF4Object, error) {
		return nil, errors.New("scheme factory should not have been reached")
	})

	obj, err := r.Open(rdfvalue.ParseURN("aff4://Schema#Zero"))
	require.NoError(t, err)
	assert.Equal(t, "aff4://Schema#Zero", obj.URN().String())
}

func TestTurtleDumpLoadRoundTrip(t *testing.T) {
	r := New(lexicon.Standard)
	subj := rdfvalue.ParseURN("aff4://image1")
	sizeAttr := rdfvalue.ParseURN(lexicon.StandardLexicon.StreamSize)
	storedAttr := rdfvalue.ParseURN(lexicon.StandardLexicon.Stored)

	r.Store.Set(subj, sizeAttr, LiteralValue(rdfvalue.NewIntegerLiteral(4096)))
	r.Store.Set(subj, storedAttr, URNValue(rdfvalue.ParseURN("aff4://container")))

	var buf bytes.Buffer
	require.NoError(t, r.DumpTurtle(&buf))

	r2 := New(lexicon.Standard)
	hints := map[string]rdfvalue.XSDType{sizeAttr.String(): rdfvalue.XSDInteger}
	require.NoError(t, r2.LoadTurtle(&buf, hints))

	v, ok := r2.Store.Get(subj, sizeAttr)
	require.True(t, ok)
	assert.Equal(t, int64(4096), v.Literal().Integer())

	v, ok = r2.Store.Get(subj, storedAttr)
	require.True(t, ok)
	assert.True(t, v.IsURN())
	assert.Equal(t, "aff4://container", v.URN().String())
}
