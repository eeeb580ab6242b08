package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHNSW(t *testing.T, dims int) *HNSWVectorStore {
	t.Helper()
	s, err := NewHNSWVectorStore(VectorStoreConfig{Dimensions: dims})
	require.NoError(t, err)
	return s
}

func TestHNSW_AddAndSearch(t *testing.T) {
	s := newHNSW(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"x", "y", "z"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		}))
	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "x", results[0].DocID)
	assert.InDelta(t, 1.0, results[0].Score, 0.05)
	assert.LessOrEqual(t, len(results), 2)
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	s := newHNSW(t, 3)
	ctx := context.Background()

	err := s.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	var dim ErrDimensionMismatch
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 3, dim.Expected)

	_, err = s.Search(ctx, []float32{1, 0}, 5)
	require.True(t, errors.As(err, &dim))
}

// Replacement leaves an orphan node behind; the orphan must never
// surface in results, the old vector must stop matching, and orphans
// must not shrink the result set below k when k live documents exist.
func TestHNSW_ReplaceIsLazyDelete(t *testing.T) {
	s := newHNSW(t, 2)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b", "c"},
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{0, 1}}))

	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3, "orphan must not crowd out a live doc")

	seen := map[string]int{}
	for _, r := range results {
		seen[r.DocID]++
	}
	assert.Equal(t, 1, seen["a"], "orphan must not duplicate a doc")
	assert.Equal(t, 1, seen["b"])
	assert.Equal(t, 1, seen["c"])
}

// Removal also orphans nodes; asking for more than the live count must
// still return every live document.
func TestHNSW_SearchAfterRemoveReturnsAllLive(t *testing.T) {
	s := newHNSW(t, 2)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b", "c", "d"},
		[][]float32{{1, 0}, {0, 1}, {0.7, 0.7}, {-1, 0}}))
	require.NoError(t, s.Remove(ctx, []string{"b", "d"}))

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].DocID)
	assert.Equal(t, "c", results[1].DocID)
}

func TestHNSW_RemoveThenSearch(t *testing.T) {
	s := newHNSW(t, 2)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a", "b", "c"},
		[][]float32{{1, 0}, {0.7, 0.7}, {0, 1}}))

	require.NoError(t, s.Remove(ctx, []string{"a"}))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 2, s.Count())

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.DocID)
	}
}

func TestHNSW_EmptyStore(t *testing.T) {
	s := newHNSW(t, 2)

	results, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSW_SaveLoadRoundTrip(t *testing.T) {
	s := newHNSW(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"x", "y"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, s.Save(path))

	restored := newHNSW(t, 3)
	require.NoError(t, restored.Load(path))

	assert.Equal(t, 2, restored.Count())
	assert.True(t, restored.Contains("x"))

	results, err := restored.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "x", results[0].DocID)
}

func TestHNSW_ClosedErrors(t *testing.T) {
	s := newHNSW(t, 2)
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.Error(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0}}))
	_, err := s.Search(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
	assert.False(t, s.Contains("a"))
}
