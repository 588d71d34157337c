package vector

import (
	"container/heap"
	"math"
	"math/rand"
	"sync"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

// Hnsw is an approximate VECTOR index backed by a hierarchical navigable
// small world graph. It answers Knn directly (no brute-force scan needed)
// for full-corpus queries, and supports an allow-list restricted search for
// queries filtered by a non-trivial sub-result.
type Hnsw struct {
	mu sync.RWMutex

	dim            uint32
	sim            schema.VectorSimilarity
	m              int
	efConstruction int

	vectors map[docid.DocID][]float32
	levels  map[docid.DocID]int
	// neighbors[level][doc] is doc's neighbor list at that level.
	neighbors []map[docid.DocID][]docid.DocID
	entry     docid.DocID
	hasEntry  bool

	allDocs []docid.DocID
	rnd     *rand.Rand
}

// NewHnsw builds an empty HNSW index from the field's VectorParams.
func NewHnsw(params schema.VectorParams) *Hnsw {
	m := params.M
	if m <= 0 {
		m = 16
	}
	ef := params.EfConstruction
	if ef <= 0 {
		ef = 64
	}
	return &Hnsw{
		dim:            params.Dim,
		sim:            params.Similarity,
		m:              m,
		efConstruction: ef,
		vectors:        make(map[docid.DocID][]float32),
		levels:         make(map[docid.DocID]int),
		neighbors:      []map[docid.DocID][]docid.DocID{{}},
		rnd:            rand.New(rand.NewSource(1)),
	}
}

var (
	_ index.VectorIndex = (*Hnsw)(nil)
	_ index.HnswIndex   = (*Hnsw)(nil)
)

func (h *Hnsw) dist(a, b []float32) float32 {
	return index.VectorDistance(a, b, h.dim, h.sim)
}

// randomLevel draws an exponentially-distributed insertion level the way
// the original HNSW paper does, with a 1/ln(m) level multiplier.
func (h *Hnsw) randomLevel() int {
	levelMult := 1.0 / math.Log(float64(h.m))
	level := int(math.Floor(-math.Log(h.rnd.Float64()+1e-12) * levelMult))
	if level > 31 {
		level = 31
	}
	return level
}

func (h *Hnsw) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	vec, ok := access.GetVector(field)
	if !ok || uint32(len(vec)) != h.dim {
		return false
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)

	h.mu.Lock()
	defer h.mu.Unlock()

	level := h.randomLevel()
	for len(h.neighbors) <= level {
		h.neighbors = append(h.neighbors, map[docid.DocID][]docid.DocID{})
	}
	h.vectors[doc] = cp
	h.levels[doc] = level
	h.allDocs = docid.InsertSorted(h.allDocs, doc)

	if !h.hasEntry {
		h.entry = doc
		h.hasEntry = true
		return true
	}

	entry := h.entry
	entryLevel := h.levels[h.entry]
	for lc := entryLevel; lc > level; lc-- {
		entry = h.greedyClosest(cp, entry, lc)
	}
	for lc := min(level, entryLevel); lc >= 0; lc-- {
		candidates := h.searchLayer(cp, entry, h.efConstruction, lc)
		neighbors := selectNeighbors(candidates, h.m)
		h.neighbors[lc][doc] = neighbors
		for _, n := range neighbors {
			h.neighbors[lc][n] = append(h.neighbors[lc][n], doc)
			if len(h.neighbors[lc][n]) > h.m*2 {
				h.neighbors[lc][n] = selectNeighbors(h.scoreAll(h.vectors[n], h.neighbors[lc][n]), h.m)
			}
		}
		if len(candidates) > 0 {
			entry = candidates[0].Doc
		}
	}
	if level > entryLevel {
		h.entry = doc
	}
	return true
}

func (h *Hnsw) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.vectors[doc]; !ok {
		return
	}
	level := h.levels[doc]
	for lc := 0; lc <= level; lc++ {
		for _, n := range h.neighbors[lc][doc] {
			h.neighbors[lc][n] = removeDoc(h.neighbors[lc][n], doc)
		}
		delete(h.neighbors[lc], doc)
	}
	delete(h.vectors, doc)
	delete(h.levels, doc)
	h.allDocs = docid.RemoveSorted(h.allDocs, doc)
	if h.entry == doc {
		h.hasEntry = false
		for other := range h.vectors {
			h.entry = other
			h.hasEntry = true
			break
		}
	}
}

func removeDoc(ids []docid.DocID, target docid.DocID) []docid.DocID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (h *Hnsw) GetAllDocsWithNonNullValues() resultset.SortedSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &resultset.PlainBlock{Ids: h.allDocs}
}

func (h *Hnsw) Info() (uint32, schema.VectorSimilarity) { return h.dim, h.sim }

func (h *Hnsw) Get(doc docid.DocID) []float32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.vectors[doc]
}

// greedyClosest descends one layer at a time, moving to the neighbor
// closest to query whenever that improves on the current node.
func (h *Hnsw) greedyClosest(query []float32, from docid.DocID, level int) docid.DocID {
	current := from
	currentDist := h.dist(query, h.vectors[current])
	for {
		improved := false
		for _, n := range h.neighbors[level][current] {
			d := h.dist(query, h.vectors[n])
			if d < currentDist {
				current, currentDist = n, d
				improved = true
			}
		}
		if !improved {
			return current
		}
	}
}

// searchLayer runs a best-first beam search of width ef at level, returning
// candidates sorted by ascending distance.
func (h *Hnsw) searchLayer(query []float32, entry docid.DocID, ef int, level int) []index.DocScore {
	visited := map[docid.DocID]struct{}{entry: {}}
	entryDist := h.dist(query, h.vectors[entry])

	candidates := &minHeap{{Doc: entry, Dist: entryDist}}
	heap.Init(candidates)
	results := &maxHeap{{Doc: entry, Dist: entryDist}}
	heap.Init(results)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(index.DocScore)
		if results.Len() >= ef {
			worst := (*results)[0]
			if c.Dist > worst.Dist {
				break
			}
		}
		for _, n := range h.neighbors[level][c.Doc] {
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			d := h.dist(query, h.vectors[n])
			if results.Len() < ef {
				heap.Push(candidates, index.DocScore{Doc: n, Dist: d})
				heap.Push(results, index.DocScore{Doc: n, Dist: d})
			} else if d < (*results)[0].Dist {
				heap.Push(candidates, index.DocScore{Doc: n, Dist: d})
				heap.Push(results, index.DocScore{Doc: n, Dist: d})
				heap.Pop(results)
			}
		}
	}

	out := make([]index.DocScore, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(index.DocScore)
	}
	return out
}

func (h *Hnsw) scoreAll(query []float32, ids []docid.DocID) []index.DocScore {
	out := make([]index.DocScore, 0, len(ids))
	for _, id := range ids {
		out = append(out, index.DocScore{Doc: id, Dist: h.dist(query, h.vectors[id])})
	}
	return out
}

func selectNeighbors(candidates []index.DocScore, m int) []docid.DocID {
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]docid.DocID, len(candidates))
	for i, c := range candidates {
		out[i] = c.Doc
	}
	return out
}

// Knn answers a KNN query directly against the graph. If allowList is
// non-nil the beam search still runs over the full graph but candidates
// outside allowList are filtered from the result, matching the evaluator's
// contract of restricting HNSW search to a materialized sub-result without
// requiring a second graph per filter.
func (h *Hnsw) Knn(vec []float32, limit uint64, efRuntime uint64, allowList []docid.DocID) []index.DocScore {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.hasEntry {
		return nil
	}
	ef := int(efRuntime)
	if ef < int(limit) {
		ef = int(limit)
	}
	if allowList != nil {
		ef = max(ef, len(allowList))
	}

	entry := h.entry
	entryLevel := h.levels[h.entry]
	for lc := entryLevel; lc > 0; lc-- {
		entry = h.greedyClosest(vec, entry, lc)
	}
	candidates := h.searchLayer(vec, entry, ef, 0)

	if allowList != nil {
		allowed := make(map[docid.DocID]struct{}, len(allowList))
		for _, id := range allowList {
			allowed[id] = struct{}{}
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if _, ok := allowed[c.Doc]; ok {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	if uint64(len(candidates)) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
