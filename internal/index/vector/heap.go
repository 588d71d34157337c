package vector

import (
	"container/heap"

	"github.com/fieldsearch/queryengine/internal/index"
)

// maxHeap keeps the limit closest-so-far (docScore) pairs by popping the
// current worst (largest distance) once it grows past limit, the same
// bounded top-k pattern used elsewhere in this codebase for merging scored
// results, inverted here since smaller distance is better.
type maxHeap []index.DocScore

func (h maxHeap) Len() int { return len(h) }

func (h maxHeap) Less(i, j int) bool {
	if h[i].Dist != h[j].Dist {
		return h[i].Dist > h[j].Dist
	}
	return h[i].Doc < h[j].Doc
}

func (h maxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) { *h = append(*h, x.(index.DocScore)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// minHeap orders by ascending distance, used as the candidate frontier
// during HNSW layer search (closest-unvisited-first).
type minHeap []index.DocScore

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	if h[i].Dist != h[j].Dist {
		return h[i].Dist < h[j].Dist
	}
	return h[i].Doc < h[j].Doc
}

func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) { *h = append(*h, x.(index.DocScore)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK collects candidates into a bounded max-heap of size limit, then
// drains it into ascending-distance order.
func TopK(candidates []index.DocScore, limit uint64) []index.DocScore {
	h := &maxHeap{}
	heap.Init(h)
	for _, c := range candidates {
		heap.Push(h, c)
		if uint64(h.Len()) > limit {
			heap.Pop(h)
		}
	}
	out := make([]index.DocScore, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(index.DocScore)
	}
	return out
}
