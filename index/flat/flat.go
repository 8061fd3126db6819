// Package flat provides an exact (brute-force) flat index for vector storage
// and search.
//
// The flat index has no delete primitive: removing rows means rebuilding a
// fresh index from the retained vectors. That rebuild is owned by the store
// layer, which keeps the index paired with its metadata.
package flat

import (
	"container/heap"
	"slices"
	"sort"
	"sync"

	"github.com/aggroso/knowspace/distance"
	"github.com/aggroso/knowspace/index"
)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// Metric is the distance metric used for search.
	Metric distance.Metric

	// NormalizeVectors enables L2 normalization for stored vectors and
	// queries. Used for cosine search over squared L2.
	NormalizeVectors bool

	// Compression enables zstd compression of the persisted vector payload.
	Compression bool
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension:        0,
	Metric:           distance.MetricSquaredL2,
	NormalizeVectors: true,
}

// Flat represents an exact flat index.
type Flat struct {
	mu           sync.RWMutex
	vectors      [][]float32
	distanceFunc distance.Func
	opts         Options
}

// New creates a new flat index. Dimension is required.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	if opts.Metric == distance.MetricCosine {
		// Cosine is implemented via L2-normalized vectors.
		opts.NormalizeVectors = true
	}

	return &Flat{
		vectors:      make([][]float32, 0),
		distanceFunc: distanceFunc,
		opts:         opts,
	}, nil
}

// Dimension returns the fixed vector dimensionality.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Len returns the number of stored rows.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Insert appends a vector as the next row and returns its row position.
func (f *Flat) Insert(v []float32) (uint32, error) {
	if len(v) == 0 {
		return 0, index.ErrEmptyVector
	}
	if len(v) != f.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(v)}
	}

	vec := slices.Clone(v)
	if f.opts.NormalizeVectors {
		if !distance.NormalizeL2InPlace(vec) {
			return 0, index.ErrZeroVector
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row := uint32(len(f.vectors))
	f.vectors = append(f.vectors, vec)
	return row, nil
}

// Reconstruct returns a copy of the vector stored at the given row.
func (f *Flat) Reconstruct(row uint32) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if int(row) >= len(f.vectors) {
		return nil, &index.ErrRowOutOfRange{Row: row, Rows: len(f.vectors)}
	}
	return slices.Clone(f.vectors[row]), nil
}

// resultHeap is a max-heap on distance, keeping the k closest seen so far.
type resultHeap []index.SearchResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(index.SearchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search returns at most k rows nearest to query, closest first.
// An empty index yields an empty result, not an error. A non-nil filter
// restricts candidates to rows it admits.
func (f *Flat) Search(query []float32, k int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(query) == 0 {
		return nil, index.ErrEmptyVector
	}
	if len(query) != f.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(query)}
	}

	q := query
	if f.opts.NormalizeVectors {
		norm, ok := distance.NormalizeL2Copy(query)
		if !ok {
			return nil, index.ErrZeroVector
		}
		q = norm
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 {
		return []index.SearchResult{}, nil
	}

	h := make(resultHeap, 0, k)
	for row, vec := range f.vectors {
		if filter != nil && !filter(uint32(row)) {
			continue
		}
		d := f.distanceFunc(q, vec)
		if len(h) < k {
			heap.Push(&h, index.SearchResult{Row: uint32(row), Distance: d})
			continue
		}
		if d < h[0].Distance {
			h[0] = index.SearchResult{Row: uint32(row), Distance: d}
			heap.Fix(&h, 0)
		}
	}

	results := []index.SearchResult(h)
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Row < results[j].Row
	})
	return results, nil
}
