// Package ingest coordinates index mutations: batch document ingestion
// into the sparse index, vector store, and metadata store, with
// per-document failure reporting.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kasane-search/kasane/internal/store"

	kerrors "github.com/kasane-search/kasane/internal/errors"
)

// Item is one document to ingest. Text drives sparse postings; Vector is
// the precomputed embedding (computing it is the collaborator's job, not
// this core's). Either may be absent: a text-only item is indexed only
// sparsely, a vector-only item only densely.
type Item struct {
	ID        string
	Text      string
	Title     string
	Category  string
	Tags      []string
	Vector    []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemError records one document that failed validation or indexing.
type ItemError struct {
	DocID string
	Err   error
}

// Report summarizes a batch ingest. Per-document failures never abort
// the rest of the batch.
type Report struct {
	Indexed int
	Failed  []ItemError
}

// Coordinator drives mutations against all three stores. The sparse and
// dense indexes may become transiently inconsistent with each other
// during a batch; no cross-index transaction is attempted.
type Coordinator struct {
	sparse store.SparseIndex
	vector store.VectorStore
	meta   store.MetadataStore // optional
}

// NewCoordinator creates an ingestion coordinator. meta may be nil.
func NewCoordinator(sparse store.SparseIndex, vector store.VectorStore, meta store.MetadataStore) (*Coordinator, error) {
	if sparse == nil {
		return nil, fmt.Errorf("sparse index is required")
	}
	if vector == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	return &Coordinator{sparse: sparse, vector: vector, meta: meta}, nil
}

// IngestBatch validates each item, then indexes the valid ones. Invalid
// items (empty ID, malformed vector dimension) land in the report's
// Failed list; a whole-store failure is returned as an error.
func (c *Coordinator) IngestBatch(ctx context.Context, items []*Item) (*Report, error) {
	report := &Report{}
	if len(items) == 0 {
		return report, nil
	}

	dims := c.vector.Dimensions()

	var docs []*store.Document
	var vecIDs []string
	var vectors [][]float32
	var metas []*store.DocumentMeta
	valid := 0

	for _, item := range items {
		if item.ID == "" {
			report.Failed = append(report.Failed, ItemError{
				DocID: item.ID,
				Err:   kerrors.New(kerrors.ErrCodeInvalidDocument, "document has empty ID", nil),
			})
			continue
		}
		if len(item.Vector) > 0 && len(item.Vector) != dims {
			report.Failed = append(report.Failed, ItemError{
				DocID: item.ID,
				Err:   kerrors.DimensionMismatch(dims, len(item.Vector), nil),
			})
			continue
		}
		if item.Text == "" && len(item.Vector) == 0 {
			report.Failed = append(report.Failed, ItemError{
				DocID: item.ID,
				Err:   kerrors.New(kerrors.ErrCodeInvalidDocument, "document has neither text nor vector", nil),
			})
			continue
		}

		if item.Text != "" {
			docs = append(docs, &store.Document{ID: item.ID, Text: item.Text})
		}
		if len(item.Vector) > 0 {
			vecIDs = append(vecIDs, item.ID)
			vectors = append(vectors, item.Vector)
		}
		metas = append(metas, &store.DocumentMeta{
			ID:        item.ID,
			Title:     item.Title,
			Category:  item.Category,
			Tags:      item.Tags,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
		valid++
	}

	// The two indexes have no shared state; write them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(docs) == 0 {
			return nil
		}
		if err := c.sparse.Index(gctx, docs); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeIngestFailed, fmt.Errorf("sparse index: %w", err))
		}
		return nil
	})
	g.Go(func() error {
		if len(vecIDs) == 0 {
			return nil
		}
		if err := c.vector.Add(gctx, vecIDs, vectors); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeIngestFailed, fmt.Errorf("vector store: %w", err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	if c.meta != nil && len(metas) > 0 {
		if err := c.meta.Save(ctx, metas); err != nil {
			return report, kerrors.Wrap(kerrors.ErrCodeIngestFailed, fmt.Errorf("metadata store: %w", err))
		}
	}

	report.Indexed = valid

	slog.Info("ingest_batch_complete",
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failed)))

	return report, nil
}

// Remove deletes documents from every store. Unknown IDs are ignored; a
// removed document must never reappear from either index.
func (c *Coordinator) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.sparse.Remove(gctx, ids)
	})
	g.Go(func() error {
		return c.vector.Remove(gctx, ids)
	})
	if err := g.Wait(); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeIngestFailed, fmt.Errorf("remove documents: %w", err))
	}

	if c.meta != nil {
		if err := c.meta.Delete(ctx, ids); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeIngestFailed, fmt.Errorf("remove metadata: %w", err))
		}
	}

	slog.Info("remove_complete", slog.Int("documents", len(ids)))
	return nil
}
