package search

import (
	"sort"
)

// ScoredHit is one candidate from a retrieval branch: raw score plus its
// 1-based rank within that branch's list. Hits exist only between
// retrieval and fusion; they are never persisted.
type ScoredHit struct {
	DocID        string
	Score        float64
	Rank         int
	MatchedTerms []string
}

// Fuser merges a sparse-ranked and a dense-ranked candidate list into a
// single ranking using a two-stage blend:
//
//	rrf(d)      = Σ_{list containing d} 1 / (k + rank(d, list))
//	weighted(d) = sparseWeight·sparse(d) + denseWeight·dense(d)
//	final(d)    = α·weighted(d) + (1−α)·minmax(rrf)(d)
//
// where sparse(d)/dense(d) are min-max normalized per branch and absent
// lists contribute 0. RRF alone discards score magnitude (a near-perfect
// and a marginal match at the same rank score identically); raw-score
// blending alone is fragile to the differing shapes of BM25 vs cosine
// distributions. Blending both keeps the ranking stable under either
// pathology: an empty branch degrades to a pure single-branch ranking
// because all of its contributions are 0, not undefined.
type Fuser struct {
	config FusionConfig
}

// NewFuser creates a fuser with the given policy. A non-positive RRF
// constant falls back to the default of 60.
func NewFuser(config FusionConfig) *Fuser {
	if config.RRFConstant <= 0 {
		config.RRFConstant = DefaultFusionConfig().RRFConstant
	}
	return &Fuser{config: config}
}

// fusionState accumulates per-document components during fusion.
type fusionState struct {
	result   *Result
	rrf      float64
	weighted float64
}

// Fuse merges the two candidate lists and returns the final ranking,
// truncated to limit (0 means no truncation). Sorting is deterministic:
// final score descending, weighted component descending, document ID
// ascending.
func (f *Fuser) Fuse(sparse, dense []ScoredHit, limit int) []*Result {
	if len(sparse) == 0 && len(dense) == 0 {
		return []*Result{}
	}

	// Normalize each branch's raw scores over its own candidate set.
	sparseScores := make([]float64, len(sparse))
	for i, h := range sparse {
		sparseScores[i] = h.Score
	}
	denseScores := make([]float64, len(dense))
	for i, h := range dense {
		denseScores[i] = h.Score
	}
	normSparse := minMaxNormalize(sparseScores)
	normDense := minMaxNormalize(denseScores)

	k := float64(f.config.RRFConstant)
	states := make(map[string]*fusionState, len(sparse)+len(dense))

	for i, h := range sparse {
		st := f.getOrCreate(states, h.DocID)
		st.result.RawSparseScore = h.Score
		st.result.SparseScore = normSparse[i]
		st.result.SparseRank = h.Rank
		st.result.MatchedTerms = h.MatchedTerms
		st.rrf += 1 / (k + float64(h.Rank))
	}

	for i, h := range dense {
		st := f.getOrCreate(states, h.DocID)
		st.result.RawDenseScore = h.Score
		st.result.DenseScore = normDense[i]
		st.result.DenseRank = h.Rank
		st.rrf += 1 / (k + float64(h.Rank))
	}

	// Weighted component; absent-branch scores are already 0.
	w := f.config.Weights
	results := make([]*Result, 0, len(states))
	rrfValues := make([]float64, 0, len(states))
	ordered := make([]*fusionState, 0, len(states))
	for _, st := range states {
		st.weighted = w.Sparse*st.result.SparseScore + w.Dense*st.result.DenseScore
		ordered = append(ordered, st)
		rrfValues = append(rrfValues, st.rrf)
	}

	// The raw RRF magnitude lives on a different scale than the weighted
	// component, so it is min-max normalized over the candidate set
	// before blending (same collapse policy as the branch scores).
	normRRF := minMaxNormalize(rrfValues)

	alpha := f.config.Alpha
	for i, st := range ordered {
		st.result.Score = alpha*st.weighted + (1-alpha)*normRRF[i]
		st.result.Source = sourceLabel(st.result)
		results = append(results, st.result)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		wa := w.Sparse*a.SparseScore + w.Dense*a.DenseScore
		wb := w.Sparse*b.SparseScore + w.Dense*b.DenseScore
		if wa != wb {
			return wa > wb
		}
		return a.DocID < b.DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

// getOrCreate returns the existing state for an ID or creates one.
func (f *Fuser) getOrCreate(m map[string]*fusionState, id string) *fusionState {
	if st, ok := m[id]; ok {
		return st
	}
	st := &fusionState{result: &Result{DocID: id}}
	m[id] = st
	return st
}

// sourceLabel reports which branches contributed a document.
func sourceLabel(r *Result) string {
	switch {
	case r.SparseRank > 0 && r.DenseRank > 0:
		return SourceHybrid
	case r.SparseRank > 0:
		return SourceSparse
	default:
		return SourceDense
	}
}
