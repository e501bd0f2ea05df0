// Package vectorindex provides an exact top-k inner-product search index.
//
// At catalog scale (roughly 3.6k records) a brute-force scan is fast enough
// that approximate structures (HNSW, IVF, ...) buy nothing; this index keeps
// only the bounded max-heap scan that matters at this size, adapted from a
// sibling index package that also offers those heavier structures for larger
// corpora.
package vectorindex

import (
	"container/heap"
	"fmt"
	"math"
)

// Result is one scored hit from a Search call.
type Result struct {
	Ordinal    int
	Similarity float32
}

// Index is an exact inner-product (cosine, since vectors are unit-norm) scan
// over a fixed set of dense vectors addressed by ordinal position.
type Index struct {
	dimension int
	vectors   [][]float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Dimension returns the configured vector width.
func (idx *Index) Dimension() int { return idx.dimension }

// Size returns the number of vectors currently indexed.
func (idx *Index) Size() int { return len(idx.vectors) }

// BuildFrom replaces the index contents wholesale. Every vector must match
// the configured dimension and contain only finite values.
func (idx *Index) BuildFrom(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("vectorindex: vector %d has dimension %d, want %d", i, len(v), idx.dimension)
		}
		for _, f := range v {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return fmt.Errorf("vectorindex: vector %d contains a non-finite value", i)
			}
		}
	}
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		cp := make([]float32, len(v))
		copy(cp, v)
		stored[i] = cp
	}
	idx.vectors = stored
	return nil
}

// Search returns the top-k most similar vectors to query by inner product,
// sorted descending by similarity with ties broken by ascending ordinal.
// The result length is min(k, N).
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("vectorindex: query has dimension %d, want %d", len(query), idx.dimension)
	}
	if k <= 0 || len(idx.vectors) == 0 {
		return []Result{}, nil
	}

	h := &resultHeap{}
	heap.Init(h)
	for ordinal, vec := range idx.vectors {
		sim := dot(query, vec)
		item := heapItem{ordinal: ordinal, similarity: sim}
		if h.Len() < k {
			heap.Push(h, item)
		} else if h.Len() > 0 && worseThan((*h)[0], item) {
			heap.Pop(h)
			heap.Push(h, item)
		}
	}

	out := make([]Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		item := heap.Pop(h).(heapItem)
		out[i] = Result{Ordinal: item.ordinal, Similarity: item.similarity}
	}
	return out, nil
}

// worseThan reports whether candidate should replace the current minimum of
// the bounded heap (higher similarity wins; on a tie the lower ordinal wins,
// which matters because the heap's min is replaced so we must keep the
// "worse" item evictable).
func worseThan(min heapItem, candidate heapItem) bool {
	if candidate.similarity != min.similarity {
		return candidate.similarity > min.similarity
	}
	return candidate.ordinal < min.ordinal
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize returns an L2-normalized copy of v. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sumSq float32
	for _, f := range v {
		sumSq += f * f
	}
	if sumSq == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = f / norm
	}
	return out
}

type heapItem struct {
	ordinal    int
	similarity float32
}

// resultHeap is a min-heap ordered so the smallest similarity (least
// interesting result, with ties broken toward the higher ordinal) sits at
// the root and is evicted first when a better candidate arrives.
type resultHeap []heapItem

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].similarity != h[j].similarity {
		return h[i].similarity < h[j].similarity
	}
	return h[i].ordinal > h[j].ordinal
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
