package resultset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/query/docid"
)

func ids(xs ...int) []docid.DocID {
	out := make([]docid.DocID, len(xs))
	for i, x := range xs {
		out[i] = docid.DocID(x)
	}
	return out
}

func collect(s SortedSet) []docid.DocID {
	var out []docid.DocID
	for id := range s.All() {
		out = append(out, id)
	}
	return out
}

func TestEmpty(t *testing.T) {
	r := Empty()
	assert.True(t, r.IsOwned())
	assert.Equal(t, 0, r.Size())
	assert.Empty(t, collect(r.Borrow()))
}

func TestBorrowedNilIsEmpty(t *testing.T) {
	r := Borrowed(nil)
	assert.True(t, r.IsOwned())
	assert.Equal(t, 0, r.Size())
}

func TestMergeAndIntersection(t *testing.T) {
	a := Owned(ids(1, 3, 5, 7))
	b := Owned(ids(3, 4, 5, 9))
	var scratch []docid.DocID
	Merge(b, &a, AND, &scratch)
	assert.Equal(t, ids(3, 5), collect(a.Borrow()))
}

func TestMergeOrUnion(t *testing.T) {
	a := Owned(ids(1, 3, 5))
	b := Owned(ids(2, 3, 4))
	var scratch []docid.DocID
	Merge(b, &a, OR, &scratch)
	assert.Equal(t, ids(1, 2, 3, 4, 5), collect(a.Borrow()))
}

func TestMergeWithEmptySide(t *testing.T) {
	a := Owned(ids(1, 2, 3))
	empty := Empty()
	var scratch []docid.DocID

	and := a
	Merge(empty, &and, AND, &scratch)
	assert.Empty(t, collect(and.Borrow()))

	or := a
	Merge(empty, &or, OR, &scratch)
	assert.Equal(t, ids(1, 2, 3), collect(or.Borrow()))
}

// AND and OR are commutative and associative regardless of fold order —
// UnifyResultsWith's size-ascending sort must never change the resulting set.
func TestUnifyResultsOrderIndependent(t *testing.T) {
	sets := []IndexResult{
		Owned(ids(1, 2, 3, 4, 5, 6, 7, 8)),
		Owned(ids(2, 4, 6, 8)),
		Owned(ids(4, 8)),
	}

	forward := UnifyResults(append([]IndexResult{}, sets...), AND)
	backward := UnifyResults([]IndexResult{sets[2], sets[1], sets[0]}, AND)
	assert.Equal(t, collect(forward.Borrow()), collect(backward.Borrow()))
	assert.Equal(t, ids(4, 8), collect(forward.Borrow()))
}

func TestUnifyResultsEmptyInput(t *testing.T) {
	r := UnifyResults(nil, AND)
	assert.Equal(t, 0, r.Size())
}

func TestUnifyResultsSingleInput(t *testing.T) {
	r := UnifyResults([]IndexResult{Owned(ids(9, 1, 1))}, OR)
	// UnifyResults never re-sorts/de-dupes a lone input; callers are
	// expected to hand it already sorted-unique sets.
	assert.Equal(t, ids(9, 1, 1), collect(r.Borrow()))
}

func TestBorrowedBlocksParticipateInMerge(t *testing.T) {
	plain := &PlainBlock{Ids: ids(1, 2, 3)}
	tagged := &SortedVectorBlock{Ids: ids(2, 3, 4)}
	rng := NewTwoBlockRange(ids(1, 2), ids(3, 4))

	results := []IndexResult{Borrowed(plain), Borrowed(tagged), Borrowed(rng)}
	out := UnifyResults(results, AND)
	assert.Equal(t, ids(2, 3), collect(out.Borrow()))
}

func TestCompressedBlock(t *testing.T) {
	backing := ids(5, 10, 15)
	cb := NewCompressedBlock(len(backing), func(yield func(docid.DocID) bool) {
		for _, id := range backing {
			if !yield(id) {
				return
			}
		}
	})
	assert.Equal(t, 3, cb.Len())
	assert.Equal(t, backing, collect(cb))
}

func TestTakeMovesOwnedLeavesEmpty(t *testing.T) {
	r := Owned(ids(1, 2, 3))
	out := r.Take()
	assert.Equal(t, ids(1, 2, 3), out)
	assert.Equal(t, 0, r.Size())
}

func TestTakeCopiesBorrowed(t *testing.T) {
	block := &PlainBlock{Ids: ids(7, 8)}
	r := Borrowed(block)
	out := r.Take()
	require.Equal(t, ids(7, 8), out)
	// mutating the copy must not touch the borrowed backing array
	out[0] = 99
	assert.Equal(t, ids(7, 8), block.Ids)
}

func TestScratchBufferReusedAcrossMerges(t *testing.T) {
	var scratch []docid.DocID
	current := Owned(ids(1, 2, 3, 4, 5))
	Merge(Owned(ids(2, 3, 4)), &current, AND, &scratch)
	assert.Equal(t, ids(2, 3, 4), collect(current.Borrow()))

	Merge(Owned(ids(3, 4, 6)), &current, AND, &scratch)
	assert.Equal(t, ids(3, 4), collect(current.Borrow()))
}

func TestRangeResultSingleBlock(t *testing.T) {
	r := NewSingleBlockRange(ids(10, 20, 30))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, ids(10, 20, 30), collect(r))
}
