package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kasane-search/kasane/internal/store"

	kerrors "github.com/kasane-search/kasane/internal/errors"
)

// Engine is the hybrid search orchestrator: the public entry point that
// drives both indexes, normalizes and fuses their outputs, and returns
// the final ranking.
//
// Per-query work is read-only against both indexes, so any number of
// searches may run concurrently; the indexes serialize their own writers
// against readers internally.
type Engine struct {
	sparse store.SparseIndex
	vector store.VectorStore
	meta   store.MetadataStore // optional, enriches results
	config EngineConfig
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetadata attaches a metadata store; fused results are then
// enriched with document titles, categories, and tags.
func WithMetadata(m store.MetadataStore) EngineOption {
	return func(e *Engine) {
		e.meta = m
	}
}

// NewEngine creates a hybrid search engine.
func NewEngine(sparse store.SparseIndex, vector store.VectorStore, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if sparse == nil {
		return nil, fmt.Errorf("%w: sparse index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultEngineConfig().DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = DefaultEngineConfig().MaxLimit
	}
	if config.Fusion.RRFConstant <= 0 {
		config.Fusion.RRFConstant = DefaultFusionConfig().RRFConstant
	}
	// A zero fusion config means an uninitialized one: the YAML layer
	// never merges zero fields, so zero weights or a zero alpha cannot
	// reach here from configuration.
	if config.Fusion.Weights.Sparse == 0 && config.Fusion.Weights.Dense == 0 {
		config.Fusion.Weights = DefaultFusionConfig().Weights
	}
	if config.Fusion.Alpha <= 0 {
		config.Fusion.Alpha = DefaultFusionConfig().Alpha
	}

	e := &Engine{
		sparse: sparse,
		vector: vector,
		config: config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs one query. queryVector may be nil for sparse-only mode;
// query text may be empty for dense-only mode. Validation failures
// (negative weights, missing query signal, dimension mismatch) surface
// synchronously and are never retried. A branch legitimately returning
// zero candidates is not a failure: fusion proceeds on the other
// branch's contributions alone.
func (e *Engine) Search(ctx context.Context, query string, queryVector []float32, opts Options) (*Response, error) {
	start := time.Now()

	opts = e.applyDefaults(opts)
	query = strings.TrimSpace(query)

	fusionCfg := e.config.Fusion
	if opts.Weights != nil {
		fusionCfg.Weights = *opts.Weights
	}

	// All request validation happens before any retrieval runs.
	if err := fusionCfg.Weights.Validate(); err != nil {
		return nil, err
	}
	switch opts.Mode {
	case ModeSparse, ModeDense, ModeHybrid:
	default:
		return nil, kerrors.InvalidMode(string(opts.Mode))
	}
	if (opts.Mode == ModeSparse || opts.Mode == ModeHybrid) && query == "" {
		return nil, kerrors.EmptyQuery("query text is required for sparse retrieval")
	}
	if (opts.Mode == ModeDense || opts.Mode == ModeHybrid) && len(queryVector) == 0 {
		return nil, kerrors.EmptyQuery("query embedding is required for dense retrieval")
	}

	sparseHits, denseHits, err := e.retrieve(ctx, query, queryVector, opts)
	if err != nil {
		return nil, err
	}

	results := NewFuser(fusionCfg).Fuse(sparseHits, denseHits, opts.Limit)

	if err := e.enrich(ctx, results); err != nil {
		return nil, err
	}

	slog.Debug("search_complete",
		slog.String("mode", string(opts.Mode)),
		slog.Int("sparse_candidates", len(sparseHits)),
		slog.Int("dense_candidates", len(denseHits)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return &Response{
		Query:   query,
		Mode:    opts.Mode,
		Total:   len(results),
		Results: results,
		Explain: Explain{
			SparseCandidates: len(sparseHits),
			DenseCandidates:  len(denseHits),
			Fusion:           fusionCfg,
			CandidateLimit:   opts.CandidateLimit,
		},
	}, nil
}

// retrieve runs the branches the mode asks for. In hybrid mode the two
// branches have no data dependency and are issued concurrently, joined
// before normalization; a failure in either aborts the query.
func (e *Engine) retrieve(ctx context.Context, query string, queryVector []float32, opts Options) (sparseHits, denseHits []ScoredHit, err error) {
	switch opts.Mode {
	case ModeSparse:
		sparseHits, err = e.sparseSearch(ctx, query, opts.CandidateLimit)
		return sparseHits, nil, err

	case ModeDense:
		denseHits, err = e.denseSearch(ctx, queryVector, opts.CandidateLimit)
		return nil, denseHits, err

	default: // ModeHybrid
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			var sErr error
			sparseHits, sErr = e.sparseSearch(gctx, query, opts.CandidateLimit)
			return sErr
		})

		g.Go(func() error {
			var dErr error
			denseHits, dErr = e.denseSearch(gctx, queryVector, opts.CandidateLimit)
			return dErr
		})

		if waitErr := g.Wait(); waitErr != nil {
			return nil, nil, waitErr
		}
		return sparseHits, denseHits, nil
	}
}

// sparseSearch runs the BM25 branch and attaches 1-based ranks.
func (e *Engine) sparseSearch(ctx context.Context, query string, limit int) ([]ScoredHit, error) {
	results, err := e.sparse.Query(ctx, query, limit)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeSearchFailed, fmt.Errorf("sparse search: %w", err))
	}

	hits := make([]ScoredHit, len(results))
	for i, r := range results {
		hits[i] = ScoredHit{
			DocID:        r.DocID,
			Score:        r.Score,
			Rank:         i + 1,
			MatchedTerms: r.MatchedTerms,
		}
	}
	return hits, nil
}

// denseSearch runs the vector branch and attaches 1-based ranks.
func (e *Engine) denseSearch(ctx context.Context, queryVector []float32, limit int) ([]ScoredHit, error) {
	results, err := e.vector.Search(ctx, queryVector, limit)
	if err != nil {
		var dim store.ErrDimensionMismatch
		if errors.As(err, &dim) {
			return nil, kerrors.DimensionMismatch(dim.Expected, dim.Got, err)
		}
		return nil, kerrors.Wrap(kerrors.ErrCodeSearchFailed, fmt.Errorf("dense search: %w", err))
	}

	hits := make([]ScoredHit, len(results))
	for i, r := range results {
		hits[i] = ScoredHit{
			DocID: r.DocID,
			Score: r.Score,
			Rank:  i + 1,
		}
	}
	return hits, nil
}

// enrich attaches stored metadata to results in a single batch query.
func (e *Engine) enrich(ctx context.Context, results []*Result) error {
	if e.meta == nil || len(results) == 0 {
		return nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}

	metas, err := e.meta.GetBatch(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch result metadata: %w", err)
	}

	for _, r := range results {
		r.Meta = metas[r.DocID]
	}
	return nil
}

// applyDefaults fills in limit, candidate limit, and mode defaults.
func (e *Engine) applyDefaults(opts Options) Options {
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	// The candidate pool must exceed the final limit so fusion can
	// re-rank across branches.
	if opts.CandidateLimit <= opts.Limit {
		opts.CandidateLimit = opts.Limit * 2
	}
	return opts
}

// Stats reports the state of both indexes.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Sparse:      e.sparse.Stats(),
		VectorCount: e.vector.Count(),
		Dimensions:  e.vector.Dimensions(),
	}
}

// EngineStats describes both indexes.
type EngineStats struct {
	Sparse      store.SparseStats
	VectorCount int
	Dimensions  int
}

// Close releases both indexes and the metadata store.
func (e *Engine) Close() error {
	var errs []error

	if err := e.sparse.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.meta != nil {
		if err := e.meta.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
