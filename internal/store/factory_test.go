package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSparseIndex_Backends(t *testing.T) {
	idx, err := NewSparseIndex("", DefaultSparseConfig(), "memory")
	require.NoError(t, err)
	assert.IsType(t, &MemorySparseIndex{}, idx)
	require.NoError(t, idx.Close())

	idx, err = NewSparseIndex("", DefaultSparseConfig(), "")
	require.NoError(t, err)
	assert.IsType(t, &MemorySparseIndex{}, idx)
	require.NoError(t, idx.Close())

	_, err = NewSparseIndex("", DefaultSparseConfig(), "lucene")
	assert.Error(t, err)
}

func TestNewSparseIndex_LoadsExistingSnapshot(t *testing.T) {
	base := filepath.Join(t.TempDir(), "sparse")
	ctx := context.Background()

	idx, err := NewSparseIndex(base, DefaultSparseConfig(), "memory")
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "d", Text: "persisted words"}}))
	require.NoError(t, idx.Save(base+".gob"))
	require.NoError(t, idx.Close())

	reopened, err := NewSparseIndex(base, DefaultSparseConfig(), "memory")
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Query(ctx, "persisted", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d", results[0].DocID)
}

func TestNewVectorStore_Backends(t *testing.T) {
	cfg := VectorStoreConfig{Dimensions: 4}

	s, err := NewVectorStore("", cfg, "flat")
	require.NoError(t, err)
	assert.IsType(t, &FlatVectorStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewVectorStore("", cfg, "")
	require.NoError(t, err)
	assert.IsType(t, &FlatVectorStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewVectorStore("", cfg, "hnsw")
	require.NoError(t, err)
	assert.IsType(t, &HNSWVectorStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewVectorStore("", cfg, "faiss")
	assert.Error(t, err)
}

func TestNewVectorStore_LoadsExistingSnapshot(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vectors")
	cfg := VectorStoreConfig{Dimensions: 2}
	ctx := context.Background()

	s, err := NewVectorStore(base, cfg, "flat")
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0}}))
	require.NoError(t, s.Save(base+".vec"))
	require.NoError(t, s.Close())

	reopened, err := NewVectorStore(base, cfg, "flat")
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 1, reopened.Count())
	assert.True(t, reopened.Contains("a"))
}

func TestIndexPathHelpers(t *testing.T) {
	assert.Equal(t, "/data/sparse.gob", SparseIndexPath("/data/sparse", "memory"))
	assert.Equal(t, "/data/sparse.bleve", SparseIndexPath("/data/sparse", "bleve"))
	assert.Equal(t, "/data/vectors.vec", VectorStorePath("/data/vectors", "flat"))
	assert.Equal(t, "/data/vectors.hnsw", VectorStorePath("/data/vectors", "hnsw"))
}
