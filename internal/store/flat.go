package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FlatVectorStore is the default VectorStore backend: exact brute-force
// cosine search over unit-normalized vectors. Exactness gives fully
// deterministic rankings, which the fusion test fixtures rely on; use
// the HNSW backend when the corpus outgrows linear scans.
type FlatVectorStore struct {
	mu      sync.RWMutex
	config  VectorStoreConfig
	vectors map[string][]float32 // unit-normalized at insert
	closed  bool
}

// flatSnapshot is the gob persistence format.
type flatSnapshot struct {
	Config  VectorStoreConfig
	Vectors map[string][]float32
}

// NewFlatVectorStore creates an empty flat store with a fixed dimension.
func NewFlatVectorStore(config VectorStoreConfig) (*FlatVectorStore, error) {
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("vector store requires a positive dimension, got %d", config.Dimensions)
	}
	return &FlatVectorStore{
		config:  config,
		vectors: make(map[string][]float32),
	}, nil
}

// Add stores or replaces vectors. Vectors are copied and normalized on
// the way in; stored vectors are never mutated afterwards.
func (s *FlatVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
	}

	for i, id := range ids {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)
		s.vectors[id] = vec
	}

	return nil
}

// Search returns the k most similar documents, descending by cosine
// similarity with ties broken by document ID ascending.
func (s *FlatVectorStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}

	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}

	if len(s.vectors) == 0 {
		return []*VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeVectorInPlace(q)

	results := make([]*VectorResult, 0, len(s.vectors))
	for id, vec := range s.vectors {
		results = append(results, &VectorResult{
			DocID: id,
			Score: dotProduct(q, vec),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// Remove deletes vectors by ID. Unknown IDs are ignored.
func (s *FlatVectorStore) Remove(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, id := range ids {
		delete(s.vectors, id)
	}
	return nil
}

// Contains reports whether a vector exists for the ID.
func (s *FlatVectorStore) Contains(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.vectors[docID]
	return ok
}

// Count returns the number of stored vectors.
func (s *FlatVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vectors)
}

// Dimensions returns the fixed vector dimension.
func (s *FlatVectorStore) Dimensions() int {
	return s.config.Dimensions
}

// Save persists the store atomically (temp file + rename).
func (s *FlatVectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}

	snap := flatSnapshot{Config: s.config, Vectors: s.vectors}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode vector store: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close store file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Load replaces the store contents from a saved snapshot.
func (s *FlatVectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	var snap flatSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode vector store: %w", err)
	}

	s.config = snap.Config
	s.vectors = snap.Vectors
	return nil
}

// Close marks the store closed.
func (s *FlatVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Verify interface implementation
var _ VectorStore = (*FlatVectorStore)(nil)

// normalizeVectorInPlace scales a vector to unit length in place.
// Zero vectors are left untouched.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// dotProduct of two equal-length vectors. For unit vectors this is the
// cosine similarity.
func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
