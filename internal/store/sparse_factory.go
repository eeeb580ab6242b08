package store

import "fmt"

// SparseBackend selects the sparse index implementation.
type SparseBackend string

const (
	// SparseBackendMemory scores with the exact BM25 formula and keeps
	// postings in memory, persisted via gob snapshots. Default.
	SparseBackendMemory SparseBackend = "memory"

	// SparseBackendBleve stores postings on disk via Bleve v2. Scoring is
	// Bleve's BM25 variant; useful for corpora that outgrow memory.
	SparseBackendBleve SparseBackend = "bleve"
)

// NewSparseIndex creates a SparseIndex using the named backend.
// basePath is the path without extension; the backend appends its own
// (".gob" for memory snapshots, ".bleve" for the Bleve directory).
// An empty basePath yields an unpersisted index for testing.
func NewSparseIndex(basePath string, config SparseConfig, backend string) (SparseIndex, error) {
	switch backend {
	case string(SparseBackendMemory), "":
		idx := NewMemorySparseIndex(config)
		if basePath != "" {
			// Best effort: a missing snapshot just means a fresh index.
			_ = idx.Load(basePath + ".gob")
		}
		return idx, nil

	case string(SparseBackendBleve):
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveSparseIndex(path, config)

	default:
		return nil, fmt.Errorf("unknown sparse backend: %s (valid options: memory, bleve)", backend)
	}
}

// SparseIndexPath returns the on-disk path for a backend's index.
func SparseIndexPath(basePath string, backend string) string {
	switch backend {
	case string(SparseBackendBleve):
		return basePath + ".bleve"
	default:
		return basePath + ".gob"
	}
}
