package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeHits builds a ranked candidate list; scores must already be in
// descending order, mirroring what the indexes return.
func makeHits(ids []string, scores []float64) []ScoredHit {
	hits := make([]ScoredHit, len(ids))
	for i, id := range ids {
		hits[i] = ScoredHit{DocID: id, Score: scores[i], Rank: i + 1}
	}
	return hits
}

func resultIDs(results []*Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	return ids
}

func TestFuse_BothListsEmpty(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	results := f.Fuse(nil, nil, 10)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestFuse_ExactScores(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"A", "B"}, []float64{2.0, 1.0})
	dense := makeHits([]string{"B", "A"}, []float64{0.9, 0.5})

	results := f.Fuse(sparse, dense, 0)
	require.Len(t, results, 2)

	// Normalized branch scores: A sparse=1 dense=0, B sparse=0 dense=1.
	// Weighted: A=0.6, B=0.4. Both docs hold ranks {1,2}, so their RRF
	// sums are equal and min-max collapses both to 1.0.
	// Final: A = 0.7*0.6 + 0.3*1.0 = 0.72, B = 0.7*0.4 + 0.3*1.0 = 0.58.
	assert.Equal(t, "A", results[0].DocID)
	assert.InDelta(t, 0.72, results[0].Score, 1e-9)
	assert.Equal(t, "B", results[1].DocID)
	assert.InDelta(t, 0.58, results[1].Score, 1e-9)

	// Raw scores survive normalization.
	assert.Equal(t, 2.0, results[0].RawSparseScore)
	assert.Equal(t, 0.5, results[0].RawDenseScore)
	assert.Equal(t, 1, results[0].SparseRank)
	assert.Equal(t, 2, results[0].DenseRank)
}

// With alpha=0 the weighted component drops out and the ranking must
// reduce to pure (normalized) RRF order.
func TestFuse_AlphaZeroReducesToRRF(t *testing.T) {
	cfg := DefaultFusionConfig()
	cfg.Alpha = 0

	sparse := makeHits([]string{"A", "B", "C"}, []float64{3.0, 2.0, 1.0})
	dense := makeHits([]string{"C", "A", "D"}, []float64{0.9, 0.8, 0.7})

	results := NewFuser(cfg).Fuse(sparse, dense, 0)

	// RRF sums with k=60:
	//   A = 1/61 + 1/62, C = 1/63 + 1/61, B = 1/62, D = 1/63
	assert.Equal(t, []string{"A", "C", "B", "D"}, resultIDs(results))
}

// A sparse-only candidate set must come out in the sparse index's
// order: every fusion stage is rank-monotone over one list.
func TestFuse_SparseOnlyPreservesOrder(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"doc3", "doc1", "doc2"}, []float64{5.5, 3.2, 0.4})

	results := f.Fuse(sparse, nil, 0)

	assert.Equal(t, []string{"doc3", "doc1", "doc2"}, resultIDs(results))
	for _, r := range results {
		assert.Equal(t, SourceSparse, r.Source)
		assert.Zero(t, r.DenseRank)
		assert.Zero(t, r.DenseScore)
	}
}

// A document retrieved by both branches must score at least what it
// scores when either branch is fused alone, for nonnegative weights.
// Both lists rank the documents identically, so each document's
// normalized RRF value is the same in all three fusions and the
// candidate-local normalization cannot mask the comparison.
func TestFuse_HybridScoreDominatesSingleBranch(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"A", "B", "C"}, []float64{3.0, 2.0, 1.0})
	dense := makeHits([]string{"A", "B", "C"}, []float64{0.9, 0.6, 0.1})

	scoreByID := func(results []*Result) map[string]float64 {
		m := make(map[string]float64, len(results))
		for _, r := range results {
			m[r.DocID] = r.Score
		}
		return m
	}

	hybrid := scoreByID(f.Fuse(sparse, dense, 0))
	sparseOnly := scoreByID(f.Fuse(sparse, nil, 0))
	denseOnly := scoreByID(f.Fuse(nil, dense, 0))

	for _, id := range []string{"A", "B", "C"} {
		assert.GreaterOrEqual(t, hybrid[id], sparseOnly[id], "doc %s vs sparse-only", id)
		assert.GreaterOrEqual(t, hybrid[id], denseOnly[id], "doc %s vs dense-only", id)
	}
}

// Single shared candidate: branch scores and the RRF value all collapse
// to 1.0, so the hybrid score is exactly alpha*(wS+wD) + (1-alpha) and
// still dominates both single-branch scores.
func TestFuse_SingleCandidateCollapsesToOne(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"A"}, []float64{4.2})
	dense := makeHits([]string{"A"}, []float64{0.3})

	hybrid := f.Fuse(sparse, dense, 0)
	require.Len(t, hybrid, 1)
	// weighted = 0.6 + 0.4 = 1, normalized RRF = 1, final = 1.
	assert.InDelta(t, 1.0, hybrid[0].Score, 1e-9)

	sparseOnly := f.Fuse(sparse, nil, 0)
	denseOnly := f.Fuse(nil, dense, 0)
	require.Len(t, sparseOnly, 1)
	require.Len(t, denseOnly, 1)

	// 0.7*0.6 + 0.3 = 0.72 and 0.7*0.4 + 0.3 = 0.58.
	assert.InDelta(t, 0.72, sparseOnly[0].Score, 1e-9)
	assert.InDelta(t, 0.58, denseOnly[0].Score, 1e-9)
	assert.GreaterOrEqual(t, hybrid[0].Score, sparseOnly[0].Score)
	assert.GreaterOrEqual(t, hybrid[0].Score, denseOnly[0].Score)
}

func TestFuse_TieBreaksByDocID(t *testing.T) {
	cfg := DefaultFusionConfig()
	cfg.Weights = Weights{Sparse: 0.5, Dense: 0.5}

	// Fully symmetric: both docs normalize to 1.0 in their only branch
	// and hold rank 1, so final and weighted scores tie exactly.
	sparse := makeHits([]string{"B"}, []float64{1.0})
	dense := makeHits([]string{"A"}, []float64{1.0})

	results := NewFuser(cfg).Fuse(sparse, dense, 0)
	require.Len(t, results, 2)

	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, []string{"A", "B"}, resultIDs(results))
}

func TestFuse_Deterministic(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"A", "B", "C", "D"}, []float64{4, 3, 2, 1})
	dense := makeHits([]string{"D", "C", "B", "A"}, []float64{0.9, 0.8, 0.7, 0.6})

	first := resultIDs(f.Fuse(sparse, dense, 0))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, resultIDs(f.Fuse(sparse, dense, 0)))
	}
}

func TestFuse_SourceLabels(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"both", "sparse-only"}, []float64{2.0, 1.0})
	dense := makeHits([]string{"both", "dense-only"}, []float64{0.9, 0.8})

	results := f.Fuse(sparse, dense, 0)
	require.Len(t, results, 3)

	bySource := map[string]string{}
	for _, r := range results {
		bySource[r.DocID] = r.Source
	}
	assert.Equal(t, SourceHybrid, bySource["both"])
	assert.Equal(t, SourceSparse, bySource["sparse-only"])
	assert.Equal(t, SourceDense, bySource["dense-only"])
}

func TestFuse_LimitTruncates(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := makeHits([]string{"A", "B", "C", "D", "E"}, []float64{5, 4, 3, 2, 1})

	assert.Len(t, f.Fuse(sparse, nil, 2), 2)
	assert.Len(t, f.Fuse(sparse, nil, 0), 5)
	assert.Len(t, f.Fuse(sparse, nil, 99), 5)
}

func TestFuse_CarriesMatchedTerms(t *testing.T) {
	f := NewFuser(DefaultFusionConfig())

	sparse := []ScoredHit{
		{DocID: "A", Score: 1.0, Rank: 1, MatchedTerms: []string{"ubuntu", "server"}},
	}

	results := f.Fuse(sparse, nil, 0)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"ubuntu", "server"}, results[0].MatchedTerms)
}

func TestNewFuser_DefaultsRRFConstant(t *testing.T) {
	f := NewFuser(FusionConfig{Weights: DefaultWeights(), Alpha: 0.7})
	assert.Equal(t, 60, f.config.RRFConstant)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, Weights{Sparse: 0.6, Dense: 0.4}.Validate())
	assert.NoError(t, Weights{Sparse: 0, Dense: 0}.Validate())
	assert.NoError(t, Weights{Sparse: 2, Dense: 3}.Validate())

	assert.Error(t, Weights{Sparse: -0.1, Dense: 0.4}.Validate())
	assert.Error(t, Weights{Sparse: 0.6, Dense: -1}.Validate())
}
