// Package search implements hybrid retrieval: BM25 and dense vector
// searches run independently, their scores are normalized onto a shared
// scale, and a two-stage fuser (weighted blend + reciprocal rank fusion)
// produces the final ranking.
package search

import (
	"github.com/kasane-search/kasane/internal/store"

	kerrors "github.com/kasane-search/kasane/internal/errors"
)

// Mode selects which retrieval branches run.
type Mode string

const (
	// ModeSparse runs only BM25 keyword retrieval.
	ModeSparse Mode = "sparse-only"

	// ModeDense runs only vector similarity retrieval.
	ModeDense Mode = "dense-only"

	// ModeHybrid runs both branches in parallel and fuses them.
	ModeHybrid Mode = "hybrid"
)

// Weights are the relative importance of each retrieval branch in the
// weighted score component. They need not sum to 1; negative values are
// rejected before retrieval runs.
type Weights struct {
	Sparse float64
	Dense  float64
}

// DefaultWeights favors lexical matching slightly, matching the tuning
// of the corpus this engine was built for.
func DefaultWeights() Weights {
	return Weights{Sparse: 0.6, Dense: 0.4}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	if w.Sparse < 0 || w.Dense < 0 {
		return kerrors.InvalidWeights("fusion weights must be nonnegative")
	}
	return nil
}

// FusionConfig is the immutable fusion policy for a query.
type FusionConfig struct {
	// Weights for the weighted raw-score component.
	Weights Weights

	// RRFConstant is the k in 1/(k + rank). Default: 60.
	RRFConstant int

	// Alpha blends the two components:
	// final = Alpha·weighted + (1−Alpha)·minmax(rrf). Default: 0.7.
	Alpha float64
}

// DefaultFusionConfig returns the documented fusion defaults.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Weights:     DefaultWeights(),
		RRFConstant: 60,
		Alpha:       0.7,
	}
}

// Options configures a single search request.
type Options struct {
	// Mode selects the retrieval branches (default: hybrid).
	Mode Mode

	// Limit is the maximum number of fused results (default: 10, max: 100).
	Limit int

	// CandidateLimit caps each branch's candidate list before fusion.
	// Must exceed Limit so fusion can re-rank; defaults to 2×Limit.
	CandidateLimit int

	// Weights overrides the engine's default fusion weights.
	Weights *Weights
}

// Result is one fused ranking entry. Score detail is carried so callers
// can render ranking transparency.
type Result struct {
	// DocID is the document identifier.
	DocID string

	// Score is the final fused score.
	Score float64

	// SparseScore and DenseScore are the normalized per-branch scores
	// that entered the weighted blend (0 when absent from that branch).
	SparseScore float64
	DenseScore  float64

	// RawSparseScore and RawDenseScore preserve the original BM25 and
	// cosine scores before normalization.
	RawSparseScore float64
	RawDenseScore  float64

	// SparseRank and DenseRank are 1-based positions in the branch
	// candidate lists, 0 when absent.
	SparseRank int
	DenseRank  int

	// Source labels which branches contributed: "sparse", "dense", or
	// "hybrid" when the document appeared in both candidate lists.
	Source string

	// MatchedTerms are the query terms the sparse branch matched.
	MatchedTerms []string

	// Meta is the document's stored metadata, when a metadata store is
	// configured.
	Meta *store.DocumentMeta
}

// Explain carries per-query fusion diagnostics.
type Explain struct {
	SparseCandidates int
	DenseCandidates  int
	Fusion           FusionConfig
	CandidateLimit   int
}

// Response is the ordered result set for one query.
type Response struct {
	// Query and Mode echo the request for caller traceability.
	Query string
	Mode  Mode

	// Total is the number of returned results.
	Total int

	Results []*Result

	Explain Explain
}

// EngineConfig configures the orchestrator.
type EngineConfig struct {
	// DefaultLimit is used when a request leaves Limit unset (default: 10).
	DefaultLimit int

	// MaxLimit caps the request limit (default: 100).
	MaxLimit int

	// Fusion is the default fusion policy.
	Fusion FusionConfig
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit: 10,
		MaxLimit:     100,
		Fusion:       DefaultFusionConfig(),
	}
}

// Source labels for Result.Source.
const (
	SourceSparse = "sparse"
	SourceDense  = "dense"
	SourceHybrid = "hybrid"
)
