// Package store provides the two retrieval indexes (sparse BM25 and dense
// vector) plus SQLite-backed document metadata persistence.
package store

import (
	"context"
	"fmt"
	"time"
)

// Document is a unit of indexed content. The raw text lives with the
// ingestion collaborator; the indexes keep only derived artifacts keyed
// by ID.
type Document struct {
	ID       string            // Stable across re-indexing
	Text     string            // Content to derive sparse postings from
	Metadata map[string]string // Optional: category, tags, timestamps
}

// DocumentMeta is the persisted metadata row for a document.
type DocumentMeta struct {
	ID        string
	Title     string
	Category  string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SparseResult is a single lexical search hit.
type SparseResult struct {
	DocID        string
	Score        float64 // Raw BM25 score
	MatchedTerms []string
}

// VectorResult is a single dense search hit.
type VectorResult struct {
	DocID string
	Score float64 // Cosine similarity in [-1, 1]
}

// SparseStats describes the state of a sparse index.
type SparseStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// SparseIndex answers keyword-relevance queries with BM25 scoring.
//
// Query returns only documents with nonzero term overlap, descending by
// score with ties broken by document ID ascending. A query with no
// overlapping terms returns an empty slice, never an error.
type SparseIndex interface {
	// Index inserts or replaces postings for each document.
	Index(ctx context.Context, docs []*Document) error

	// Query scores candidates against the tokenized query text.
	Query(ctx context.Context, text string, limit int) ([]*SparseResult, error)

	// Remove deletes postings and corpus statistics for the given IDs.
	Remove(ctx context.Context, docIDs []string) error

	// Contains reports whether a document is indexed.
	Contains(docID string) bool

	// Stats returns corpus statistics.
	Stats() SparseStats

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// VectorStore answers nearest-neighbor queries under cosine similarity.
//
// Vectors are immutable once written; Add replaces a document's vector
// wholesale. Search returns the k nearest documents descending by
// similarity, ties broken by document ID ascending.
type VectorStore interface {
	// Add stores or replaces fixed-dimension vectors for each ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors of the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Remove deletes vectors by ID.
	Remove(ctx context.Context, ids []string) error

	// Contains reports whether a vector exists for the ID.
	Contains(docID string) bool

	// Count returns the number of stored vectors.
	Count() int

	// Dimensions returns the fixed vector dimension of this store.
	Dimensions() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// SparseConfig configures BM25 scoring.
type SparseConfig struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64

	// B is the document length normalization parameter (default: 0.75).
	B float64

	// MinTokenLength is the minimum token length to index (default: 2).
	MinTokenLength int
}

// DefaultSparseConfig returns the documented BM25 defaults.
func DefaultSparseConfig() SparseConfig {
	return SparseConfig{
		K1:             1.2,
		B:              0.75,
		MinTokenLength: 2,
	}
}

// VectorStoreConfig configures the dense vector store.
type VectorStoreConfig struct {
	// Dimensions is the fixed vector dimension. Required.
	Dimensions int

	// M is the HNSW max connections per layer (hnsw backend only).
	M int

	// EfSearch is the HNSW query-time search width (hnsw backend only).
	EfSearch int
}

// DefaultVectorStoreConfig returns defaults for the given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
	}
}

// ErrDimensionMismatch indicates a vector's dimension disagrees with the
// store's fixed dimension. Fatal to the query or ingest of that vector;
// never retried.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: index expects %d, got %d", e.Expected, e.Got)
}
