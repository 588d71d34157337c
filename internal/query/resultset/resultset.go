// Package resultset implements IndexResult, the borrowed-or-owned
// document-id set algebra the evaluator uses to combine per-node matches.
// It is deliberately the single place in the engine that knows how to
// iterate every concrete container layout an index can hand back.
package resultset

import (
	"iter"
	"sort"

	"github.com/fieldsearch/queryengine/internal/query/docid"
)

// SortedSet is satisfied by every container layout an index can return: a
// borrowed plain slice, a borrowed compressed bitmap, a borrowed
// sorted-vector blocklist, or a numeric RangeResult. All of them expose a
// sorted forward iterator and a (possibly approximate, for ranges) size.
type SortedSet interface {
	Len() int
	All() iter.Seq[docid.DocID]
}

// DocVec is a plain owned, sorted-unique slice of DocIDs. It implements
// SortedSet directly so an owned IndexResult can be iterated the same way
// as a borrowed one.
type DocVec []docid.DocID

func (v DocVec) Len() int { return len(v) }

func (v DocVec) All() iter.Seq[docid.DocID] {
	return func(yield func(docid.DocID) bool) {
		for _, id := range v {
			if !yield(id) {
				return
			}
		}
	}
}

// PlainBlock borrows a slice owned by a content index (e.g. GetAllDocsWithNonNullValues).
type PlainBlock struct{ Ids []docid.DocID }

func (b *PlainBlock) Len() int                    { return len(b.Ids) }
func (b *PlainBlock) All() iter.Seq[docid.DocID]   { return DocVec(b.Ids).All() }

// SortedVectorBlock borrows a per-value posting list kept by the tag index,
// distinguished from PlainBlock only by provenance (a tag index exposes its
// postings as independently-owned sorted slices rather than one shared
// backing array).
type SortedVectorBlock struct{ Ids []docid.DocID }

func (b *SortedVectorBlock) Len() int                  { return len(b.Ids) }
func (b *SortedVectorBlock) All() iter.Seq[docid.DocID] { return DocVec(b.Ids).All() }

// CompressedBlock borrows a posting list stored as a compressed sorted set
// (a Roaring bitmap) rather than a flat slice; used by the text index for
// terms whose posting list has grown past a cardinality threshold.
type CompressedBlock struct {
	iterate func(yield func(docid.DocID) bool)
	size    int
}

// NewCompressedBlock builds a CompressedBlock from any iterator function
// plus a known cardinality, keeping this package free of a hard dependency
// on the bitmap library's concrete type.
func NewCompressedBlock(size int, iterate func(yield func(docid.DocID) bool)) *CompressedBlock {
	return &CompressedBlock{iterate: iterate, size: size}
}

func (b *CompressedBlock) Len() int { return b.size }
func (b *CompressedBlock) All() iter.Seq[docid.DocID] {
	return func(yield func(docid.DocID) bool) { b.iterate(yield) }
}

// RangeResult is the numeric index's answer to a Range query: either a
// single block (the match count is at most the index's block size) or two
// adjacent blocks stitched together by the iterator. Its layout is opaque
// to the evaluator beyond the SortedSet contract.
type RangeResult struct {
	first, second []docid.DocID // second is nil for a single-block result
}

// NewSingleBlockRange wraps one already-range-filtered, sorted block.
func NewSingleBlockRange(block []docid.DocID) RangeResult {
	return RangeResult{first: block}
}

// NewTwoBlockRange wraps two adjacent, already-range-filtered sorted blocks.
func NewTwoBlockRange(first, second []docid.DocID) RangeResult {
	return RangeResult{first: first, second: second}
}

func (r RangeResult) Len() int { return len(r.first) + len(r.second) }

func (r RangeResult) All() iter.Seq[docid.DocID] {
	return func(yield func(docid.DocID) bool) {
		for _, id := range r.first {
			if !yield(id) {
				return
			}
		}
		for _, id := range r.second {
			if !yield(id) {
				return
			}
		}
	}
}

// IndexResult is either an owned, sorted-unique DocVec or a borrowed
// SortedSet view over storage owned elsewhere. Exactly one of the two is
// active at a time; Borrow() gives a uniform read-only view regardless of
// which.
type IndexResult struct {
	owned    DocVec
	isOwned  bool
	borrowed SortedSet
}

// Empty returns the IndexResult for "no match".
func Empty() IndexResult {
	return IndexResult{owned: DocVec{}, isOwned: true}
}

// Owned wraps an already sorted-unique slice as an owned result.
func Owned(ids []docid.DocID) IndexResult {
	return IndexResult{owned: DocVec(ids), isOwned: true}
}

// Borrowed wraps a SortedSet view as a borrowed result. The caller is
// responsible for ensuring set does not outlive the query.
func Borrowed(set SortedSet) IndexResult {
	if set == nil {
		return Empty()
	}
	return IndexResult{borrowed: set}
}

// IsOwned reports whether this result owns its backing storage.
func (r IndexResult) IsOwned() bool { return r.isOwned }

// Size returns the container's element count. For RangeResult-backed
// borrows this may be an approximate upper bound; it is exact for every
// other variant.
func (r IndexResult) Size() int {
	if r.isOwned {
		return r.owned.Len()
	}
	return r.borrowed.Len()
}

// Borrow yields a uniform SortedSet view regardless of ownership.
func (r IndexResult) Borrow() SortedSet {
	if r.isOwned {
		return r.owned
	}
	return r.borrowed
}

// Take moves out of an owned result (leaving it empty) or copies a borrowed
// one into a fresh owned slice.
func (r *IndexResult) Take() []docid.DocID {
	if r.isOwned {
		out := []docid.DocID(r.owned)
		r.owned = nil
		return out
	}
	out := make([]docid.DocID, 0, r.borrowed.Len())
	for id := range r.borrowed.All() {
		out = append(out, id)
	}
	return out
}

// Assign replaces the result's contents with entries. The caller (Merge)
// already built entries into a freshly sized slice, so this just swaps in
// the new backing array and drops the borrowed view, if any.
func (r *IndexResult) Assign(entries []docid.DocID) {
	r.owned = DocVec(entries)
	r.isOwned = true
	r.borrowed = nil
}

// Merge computes the sorted intersection (AND) or union (OR) of matched and
// current's borrowed views into scratch, then assigns the result into
// current via Assign and hands current's old backing array back as
// scratch. scratch is cleared
// and reused across calls within one evaluation to avoid per-merge
// allocation.
func Merge(matched IndexResult, current *IndexResult, op LogicOp, scratch *[]docid.DocID) {
	*scratch = (*scratch)[:0]
	a, b := matched.Borrow(), current.Borrow()

	if op == AND {
		if cap(*scratch) < min(a.Len(), b.Len()) {
			*scratch = make([]docid.DocID, 0, min(a.Len(), b.Len()))
		}
		intersect(a, b, scratch)
	} else {
		if cap(*scratch) < a.Len()+b.Len() {
			*scratch = make([]docid.DocID, 0, a.Len()+b.Len())
		}
		union(a, b, scratch)
	}

	// Move scratch's backing array into current, and hand current's old
	// (now unused) backing array back as the scratch for the next Merge
	// call, so a chain of merges within one query allocates at most once
	// per distinct working-set size rather than once per merge.
	previous := []docid.DocID(current.owned)
	current.Assign(*scratch)
	*scratch = previous[:0]
}

// LogicOp mirrors ast.LogicOp without importing the ast package, which
// would create an import cycle (ast has no need to know about result sets).
type LogicOp int

const (
	AND LogicOp = iota
	OR
)

func intersect(a, b SortedSet, out *[]docid.DocID) {
	next, stop := iter.Pull(b.All())
	defer stop()
	bid, bok := next()
	for aid := range a.All() {
		for bok && bid < aid {
			bid, bok = next()
		}
		if !bok {
			break
		}
		if bid == aid {
			*out = append(*out, aid)
		}
	}
}

func union(a, b SortedSet, out *[]docid.DocID) {
	nextA, stopA := iter.Pull(a.All())
	defer stopA()
	nextB, stopB := iter.Pull(b.All())
	defer stopB()

	aid, aok := nextA()
	bid, bok := nextB()
	for aok && bok {
		switch {
		case aid < bid:
			*out = append(*out, aid)
			aid, aok = nextA()
		case aid > bid:
			*out = append(*out, bid)
			bid, bok = nextB()
		default:
			*out = append(*out, aid)
			aid, aok = nextA()
			bid, bok = nextB()
		}
	}
	for aok {
		*out = append(*out, aid)
		aid, aok = nextA()
	}
	for bok {
		*out = append(*out, bid)
		bid, bok = nextB()
	}
}

// UnifyResults folds Merge over results sorted ascending by Size(), so AND
// shrinks the working set as early as possible and OR accumulates small
// sets before the larger scans. The chosen fold order only affects
// performance, never the resulting set. It uses a scratch buffer private
// to this call; UnifyResultsWith lets a caller share one scratch buffer
// across an entire query's worth of merges.
func UnifyResults(results []IndexResult, op LogicOp) IndexResult {
	var scratch []docid.DocID
	return UnifyResultsWith(results, op, &scratch)
}

// UnifyResultsWith is UnifyResults with an externally supplied scratch
// buffer, so a sequence of Logical/Tags nodes evaluated within one query
// can reuse the same backing array across merges instead of allocating a
// fresh one per node.
func UnifyResultsWith(results []IndexResult, op LogicOp, scratch *[]docid.DocID) IndexResult {
	if len(results) == 0 {
		return Empty()
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Size() < results[j].Size() })

	out := results[0]
	for _, matched := range results[1:] {
		Merge(matched, &out, op, scratch)
	}
	return out
}
