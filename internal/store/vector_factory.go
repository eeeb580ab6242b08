package store

import (
	"fmt"
	"os"
)

// VectorBackend selects the dense vector store implementation.
type VectorBackend string

const (
	// VectorBackendFlat does exact brute-force cosine search. Default.
	VectorBackendFlat VectorBackend = "flat"

	// VectorBackendHNSW does approximate search via coder/hnsw.
	VectorBackendHNSW VectorBackend = "hnsw"
)

// NewVectorStore creates a VectorStore using the named backend.
// basePath is the path without extension (".vec" for flat, ".hnsw" for
// hnsw). An empty basePath yields an unpersisted store for testing.
func NewVectorStore(basePath string, config VectorStoreConfig, backend string) (VectorStore, error) {
	switch backend {
	case string(VectorBackendFlat), "":
		s, err := NewFlatVectorStore(config)
		if err != nil {
			return nil, err
		}
		if basePath != "" {
			path := basePath + ".vec"
			if _, statErr := os.Stat(path); statErr == nil {
				if err := s.Load(path); err != nil {
					return nil, err
				}
			}
		}
		return s, nil

	case string(VectorBackendHNSW):
		s, err := NewHNSWVectorStore(config)
		if err != nil {
			return nil, err
		}
		if basePath != "" {
			path := basePath + ".hnsw"
			if _, statErr := os.Stat(path); statErr == nil {
				if err := s.Load(path); err != nil {
					return nil, err
				}
			}
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown vector backend: %s (valid options: flat, hnsw)", backend)
	}
}

// VectorStorePath returns the on-disk path for a backend's store.
func VectorStorePath(basePath string, backend string) string {
	switch backend {
	case string(VectorBackendHNSW):
		return basePath + ".hnsw"
	default:
		return basePath + ".vec"
	}
}
