package rag

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(dim int, hot ...int) []float32 {
	v := make([]float32, dim)
	for _, h := range hot {
		v[h] = 1
	}
	return NormalizeVector(v)
}

func TestVectorIndexAdd(t *testing.T) {
	t.Run("Rejects dimension mismatch", func(t *testing.T) {
		idx := NewVectorIndex(4)
		err := idx.Add([][]float32{{1, 0}}, []int64{0}, []string{"a"})
		assert.ErrorContains(t, err, "dimension mismatch")
	})

	t.Run("Rejects non-increasing ids", func(t *testing.T) {
		idx := NewVectorIndex(2)
		require.NoError(t, idx.Add([][]float32{unit(2, 0)}, []int64{5}, []string{"a"}))
		err := idx.Add([][]float32{unit(2, 1)}, []int64{5}, []string{"b"})
		assert.ErrorContains(t, err, "strictly increasing")
	})

	t.Run("Rejects mismatched slice lengths", func(t *testing.T) {
		idx := NewVectorIndex(2)
		err := idx.Add([][]float32{unit(2, 0)}, []int64{0, 1}, []string{"a"})
		assert.Error(t, err)
	})

	t.Run("Grows ntotal", func(t *testing.T) {
		idx := NewVectorIndex(2)
		require.NoError(t, idx.Add([][]float32{unit(2, 0), unit(2, 1)}, []int64{0, 1}, []string{"a", "b"}))
		assert.Equal(t, 2, idx.Ntotal())
		assert.Equal(t, int64(2), idx.NextID())
	})
}

func TestVectorIndexSearch(t *testing.T) {
	idx := NewVectorIndex(3)
	require.NoError(t, idx.Add(
		[][]float32{unit(3, 0), unit(3, 1), unit(3, 2)},
		[]int64{0, 1, 2},
		[]string{"first", "second", "third"},
	))

	t.Run("Descending score order", func(t *testing.T) {
		results, err := idx.Search(unit(3, 1), 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, int64(1), results[0].ID)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		assert.GreaterOrEqual(t, results[1].Score, results[2].Score)
	})

	t.Run("Ties broken by ascending id", func(t *testing.T) {
		// Query equidistant from ids 0 and 2
		results, err := idx.Search(NormalizeVector([]float32{1, 0, 1}), 3)
		require.NoError(t, err)
		assert.Equal(t, int64(0), results[0].ID)
		assert.Equal(t, int64(2), results[1].ID)
	})

	t.Run("Deterministic for identical queries", func(t *testing.T) {
		q := NormalizeVector([]float32{0.3, 0.5, 0.2})
		a, err := idx.Search(q, 3)
		require.NoError(t, err)
		b, err := idx.Search(q, 3)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("Pads with sentinel when k exceeds ntotal", func(t *testing.T) {
		results, err := idx.Search(unit(3, 0), 5)
		require.NoError(t, err)
		require.Len(t, results, 5)
		assert.Equal(t, int64(-1), results[3].ID)
		assert.Equal(t, int64(-1), results[4].ID)
	})

	t.Run("Empty index returns all sentinels", func(t *testing.T) {
		empty := NewVectorIndex(3)
		results, err := empty.Search(unit(3, 0), 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, int64(-1), results[0].ID)
		assert.Equal(t, int64(-1), results[1].ID)
	})

	t.Run("Rejects wrong query dimension", func(t *testing.T) {
		_, err := idx.Search([]float32{1, 0}, 1)
		assert.ErrorContains(t, err, "dimension mismatch")
	})
}

func TestVectorIndexChunkByID(t *testing.T) {
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add([][]float32{unit(2, 0), unit(2, 1)}, []int64{0, 1}, []string{"alpha", "beta"}))

	text, ok := idx.ChunkByID(1)
	assert.True(t, ok)
	assert.Equal(t, "beta", text)

	_, ok = idx.ChunkByID(99)
	assert.False(t, ok)
}

func TestVectorIndexPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")

	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add([][]float32{unit(2, 0), unit(2, 1)}, []int64{0, 1}, []string{"alpha", "beta"}))

	t.Run("Save and load roundtrip", func(t *testing.T) {
		require.NoError(t, idx.Save(path))

		restored := NewVectorIndex(2)
		require.NoError(t, restored.Load(path))
		assert.Equal(t, 2, restored.Ntotal())

		text, ok := restored.ChunkByID(1)
		require.True(t, ok)
		assert.Equal(t, "beta", text)

		results, err := restored.Search(unit(2, 0), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), results[0].ID)
	})

	t.Run("Corrupt snapshot fails without mutating index", func(t *testing.T) {
		bad := filepath.Join(dir, "corrupt.gob")
		require.NoError(t, os.WriteFile(bad, []byte("not a gob stream"), 0o644))

		restored := NewVectorIndex(2)
		require.NoError(t, restored.Add([][]float32{unit(2, 0)}, []int64{0}, []string{"keep"}))
		assert.Error(t, restored.Load(bad))
		assert.Equal(t, 1, restored.Ntotal())
	})

	t.Run("Dimension mismatch rejected", func(t *testing.T) {
		restored := NewVectorIndex(7)
		assert.ErrorContains(t, restored.Load(path), "dimension")
	})
}

func TestNormalizeVector(t *testing.T) {
	t.Run("Produces unit norm", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})

	t.Run("Zero vector unchanged", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})
}
