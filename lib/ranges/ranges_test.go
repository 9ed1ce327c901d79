package ranges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTreeInsertKeepsOrder(t *testing.T) {
	tr := New[string]()
	tr.Insert(Interval[string]{Start: 50, End: 100, Value: "b"})
	tr.Insert(Interval[string]{Start: 0, End: 50, Value: "a"})
	tr.Insert(Interval[string]{Start: 100, End: 150, Value: "c"})

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, "a", tr.At(0).Value)
	assert.Equal(t, "b", tr.At(1).Value)
	assert.Equal(t, "c", tr.At(2).Value)
}

func TestTreeQueryIntersecting(t *testing.T) {
	tr := New[int]()
	tr.Insert(Interval[int]{Start: 0, End: 10, Value: 1})
	tr.Insert(Interval[int]{Start: 20, End: 30, Value: 2})
	tr.Insert(Interval[int]{Start: 40, End: 50, Value: 3})

	got := tr.Query(5, 25)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, 2, got[1].Value)

	assert.Empty(t, tr.Query(10, 20))
}

func TestTreeTouchingEdges(t *testing.T) {
	tr := New[int]()
	tr.Insert(Interval[int]{Start: 0, End: 10, Value: 1})

	assert.Equal(t, 0, tr.IndexTouchingRight(10))
	assert.Equal(t, -1, tr.IndexTouchingRight(11))
	assert.Equal(t, -1, tr.IndexTouchingLeft(10))
	assert.Equal(t, 0, tr.IndexContaining(5))
	assert.Equal(t, -1, tr.IndexContaining(10))
}

func TestTreeEnvelopedByAndRemove(t *testing.T) {
	tr := New[int]()
	tr.Insert(Interval[int]{Start: 0, End: 10, Value: 1})
	tr.Insert(Interval[int]{Start: 10, End: 20, Value: 2})
	tr.Insert(Interval[int]{Start: 20, End: 30, Value: 3})

	idx := tr.EnvelopedBy(0, 30)
	assert.Equal(t, []int{0, 1, 2}, idx)

	tr.RemoveIndices(tr.EnvelopedBy(10, 20))
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, 1, tr.At(0).Value)
	assert.Equal(t, 3, tr.At(1).Value)
}
