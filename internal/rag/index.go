package rag

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// VectorIndex is a flat inner-product index over unit-normalized
// vectors with a parallel chunk-text slice. IDs are assigned by the
// caller, strictly increasing, and never reused. With normalized
// vectors the inner product equals cosine similarity.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	ids       []int64
	chunks    []string
}

// SearchResult pairs a chunk id with its similarity score. An id of -1
// is a sentinel for an unfilled result slot.
type SearchResult struct {
	ID    int64
	Score float32
}

func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Ntotal returns the number of stored vectors.
func (idx *VectorIndex) Ntotal() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimension returns the vector dimensionality the index enforces.
func (idx *VectorIndex) Dimension() int {
	return idx.dimension
}

// Add appends vectors with their caller-assigned ids and chunk texts.
// ids must be strictly increasing relative to everything already
// stored; vectors must be pre-normalized and match the index dimension.
func (idx *VectorIndex) Add(vectors [][]float32, ids []int64, chunks []string) error {
	if len(vectors) != len(ids) || len(vectors) != len(chunks) {
		return fmt.Errorf("mismatched lengths: %d vectors, %d ids, %d chunks", len(vectors), len(ids), len(chunks))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	lastID := int64(-1)
	if len(idx.ids) > 0 {
		lastID = idx.ids[len(idx.ids)-1]
	}

	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("dimension mismatch: expected %d, got %d", idx.dimension, len(v))
		}
		if ids[i] <= lastID {
			return fmt.Errorf("ids must be strictly increasing: %d after %d", ids[i], lastID)
		}
		lastID = ids[i]
	}

	idx.vectors = append(idx.vectors, vectors...)
	idx.ids = append(idx.ids, ids...)
	idx.chunks = append(idx.chunks, chunks...)

	return nil
}

// Search returns the k nearest neighbors by descending inner product,
// ties broken by ascending id. Slots beyond the number of stored
// vectors are padded with the -1 sentinel; an empty index returns all
// sentinels.
func (idx *VectorIndex) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d", idx.dimension, len(query))
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]SearchResult, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		var score float32
		for j := range v {
			score += v[j] * query[j]
		}
		results = append(results, SearchResult{ID: idx.ids[i], Score: score})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	for len(results) < k {
		results = append(results, SearchResult{ID: -1})
	}

	return results, nil
}

// ChunkByID returns the chunk text stored for an id.
func (idx *VectorIndex) ChunkByID(id int64) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// ids are sorted ascending; binary search
	i := sort.Search(len(idx.ids), func(i int) bool { return idx.ids[i] >= id })
	if i < len(idx.ids) && idx.ids[i] == id {
		return idx.chunks[i], true
	}
	return "", false
}

// Chunks returns a copy of all stored chunk texts in insertion order.
func (idx *VectorIndex) Chunks() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]string, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// NextID returns the id the next inserted chunk should receive.
func (idx *VectorIndex) NextID() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.ids) == 0 {
		return 0
	}
	return idx.ids[len(idx.ids)-1] + 1
}

// Reset discards all stored vectors and chunks.
func (idx *VectorIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	idx.ids = nil
	idx.chunks = nil
}

// indexSnapshot is the gob persistence format.
type indexSnapshot struct {
	Dimension int
	Vectors   [][]float32
	IDs       []int64
	Chunks    []string
}

// Save serializes the index to path. The snapshot is taken under the
// read lock but written to disk outside it, so searches stay available
// during the write. The write goes through a temp file and rename.
func (idx *VectorIndex) Save(path string) error {
	idx.mu.RLock()
	snap := indexSnapshot{
		Dimension: idx.dimension,
		Vectors:   make([][]float32, len(idx.vectors)),
		IDs:       make([]int64, len(idx.ids)),
		Chunks:    make([]string, len(idx.chunks)),
	}
	copy(snap.Vectors, idx.vectors)
	copy(snap.IDs, idx.ids)
	copy(snap.Chunks, idx.chunks)
	idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %v", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %v", err)
	}

	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode snapshot: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot file: %v", err)
	}

	return os.Rename(tmp, path)
}

// Load replaces the index contents from a snapshot file. A corrupt or
// mismatched snapshot returns an error and leaves the index untouched;
// callers rebuild from source instead of failing startup.
func (idx *VectorIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %v", err)
	}
	defer f.Close()

	var snap indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %v", err)
	}

	if snap.Dimension != idx.dimension {
		return fmt.Errorf("snapshot dimension %d does not match index dimension %d", snap.Dimension, idx.dimension)
	}
	if len(snap.Vectors) != len(snap.IDs) || len(snap.Vectors) != len(snap.Chunks) {
		return fmt.Errorf("snapshot is inconsistent: %d vectors, %d ids, %d chunks", len(snap.Vectors), len(snap.IDs), len(snap.Chunks))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = snap.Vectors
	idx.ids = snap.IDs
	idx.chunks = snap.Chunks

	return nil
}

// NormalizeVector scales v to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
