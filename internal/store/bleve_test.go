package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBleve(t *testing.T) *BleveSparseIndex {
	t.Helper()
	idx, err := NewBleveSparseIndex("", DefaultSparseConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleve_IndexAndQuery(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDocs()))

	results, err := idx.Query(ctx, "apple", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "doc1", results[0].DocID)
	assert.Positive(t, results[0].Score)
	assert.Contains(t, results[0].MatchedTerms, "apple")
}

func TestBleve_QueryRanksHigherTFFirst(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDocs()))

	// doc3 has "cherry" three times, doc2 once.
	results, err := idx.Query(ctx, "cherry", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc3", results[0].DocID)
}

// A non-positive limit returns every matching document, matching the
// memory backend's contract.
func TestBleve_ZeroLimitReturnsAllMatches(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDocs()))

	limited, err := idx.Query(ctx, "cherry", 10)
	require.NoError(t, err)

	unlimited, err := idx.Query(ctx, "cherry", 0)
	require.NoError(t, err)
	assert.Len(t, unlimited, len(limited))
	assert.NotEmpty(t, unlimited)
}

func TestBleve_CaseInsensitive(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "d", Text: "Ubuntu Server Guide"},
	}))

	results, err := idx.Query(ctx, "UBUNTU", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d", results[0].DocID)
}

func TestBleve_EmptyQuery(t *testing.T) {
	idx := newBleve(t)
	require.NoError(t, idx.Index(context.Background(), testDocs()))

	results, err := idx.Query(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleve_RemoveAndContains(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDocs()))
	require.True(t, idx.Contains("doc2"))

	require.NoError(t, idx.Remove(ctx, []string{"doc2"}))
	assert.False(t, idx.Contains("doc2"))

	results, err := idx.Query(ctx, "banana", 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "doc2", r.DocID)
	}

	assert.Equal(t, 2, idx.Stats().DocumentCount)
}

func TestBleve_ReindexReplaces(t *testing.T) {
	idx := newBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{{ID: "d", Text: "first version"}}))
	require.NoError(t, idx.Index(ctx, []*Document{{ID: "d", Text: "second revision"}}))

	results, err := idx.Query(ctx, "first", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Query(ctx, "second", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d", results[0].DocID)
}

func TestBleve_ClosedErrors(t *testing.T) {
	idx := newBleve(t)
	require.NoError(t, idx.Close())

	ctx := context.Background()
	assert.Error(t, idx.Index(ctx, testDocs()))
	_, err := idx.Query(ctx, "apple", 10)
	assert.Error(t, err)
	assert.False(t, idx.Contains("doc1"))
}
