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

// MemorySparseIndex is the default SparseIndex backend: an in-memory
// inverted index scored with the exact BM25 formula
//
//	score(d,q) = Σ_{t∈q} IDF(t) · (f(t,d)·(k1+1)) / (f(t,d) + k1·(1 − b + b·|d|/avgdl))
//
// with IDF(t) = ln(1 + (N − df(t) + 0.5)/(df(t) + 0.5)).
//
// Writers take the exclusive lock; queries share the read lock, so a
// query always sees a consistent point-in-time view of the postings.
type MemorySparseIndex struct {
	mu     sync.RWMutex
	config SparseConfig

	postings map[string]map[string]int // term -> docID -> term frequency
	docLens  map[string]int            // docID -> token count
	totalLen int                       // sum of all document lengths

	closed bool
}

// sparseSnapshot is the gob persistence format.
type sparseSnapshot struct {
	Config   SparseConfig
	Postings map[string]map[string]int
	DocLens  map[string]int
	TotalLen int
}

// NewMemorySparseIndex creates an empty in-memory BM25 index.
func NewMemorySparseIndex(config SparseConfig) *MemorySparseIndex {
	if config.K1 <= 0 {
		config.K1 = DefaultSparseConfig().K1
	}
	if config.B <= 0 {
		config.B = DefaultSparseConfig().B
	}
	if config.MinTokenLength <= 0 {
		config.MinTokenLength = DefaultSparseConfig().MinTokenLength
	}
	return &MemorySparseIndex{
		config:   config,
		postings: make(map[string]map[string]int),
		docLens:  make(map[string]int),
	}
}

// Index inserts or replaces postings for each document. Replacement
// removes the old postings first so document frequencies and the corpus
// average length stay consistent.
func (m *MemorySparseIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("sparse index is closed")
	}

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document with empty ID")
		}
		if _, exists := m.docLens[doc.ID]; exists {
			m.removeLocked(doc.ID)
		}

		tokens := Tokenize(doc.Text, m.config.MinTokenLength)
		for _, t := range tokens {
			tfs, ok := m.postings[t]
			if !ok {
				tfs = make(map[string]int)
				m.postings[t] = tfs
			}
			tfs[doc.ID]++
		}

		m.docLens[doc.ID] = len(tokens)
		m.totalLen += len(tokens)
	}

	return nil
}

// Remove deletes postings for the given IDs. Unknown IDs are ignored.
func (m *MemorySparseIndex) Remove(ctx context.Context, docIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("sparse index is closed")
	}

	for _, id := range docIDs {
		m.removeLocked(id)
	}
	return nil
}

// removeLocked drops one document. Caller holds the write lock.
func (m *MemorySparseIndex) removeLocked(docID string) {
	length, exists := m.docLens[docID]
	if !exists {
		return
	}

	for term, tfs := range m.postings {
		if _, ok := tfs[docID]; ok {
			delete(tfs, docID)
			if len(tfs) == 0 {
				delete(m.postings, term)
			}
		}
	}

	delete(m.docLens, docID)
	m.totalLen -= length
}

// Query tokenizes the text and scores every document with nonzero term
// overlap. Zero-overlap queries return an empty slice.
func (m *MemorySparseIndex) Query(ctx context.Context, text string, limit int) ([]*SparseResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("sparse index is closed")
	}

	terms := UniqueTerms(Tokenize(text, m.config.MinTokenLength))
	if len(terms) == 0 || len(m.docLens) == 0 {
		return []*SparseResult{}, nil
	}

	n := float64(len(m.docLens))
	avgdl := float64(m.totalLen) / n

	scores := make(map[string]float64)
	matched := make(map[string][]string)

	for _, term := range terms {
		tfs, ok := m.postings[term]
		if !ok {
			continue
		}

		df := float64(len(tfs))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		for docID, tf := range tfs {
			f := float64(tf)
			norm := 1 - m.config.B + m.config.B*float64(m.docLens[docID])/avgdl
			scores[docID] += idf * (f * (m.config.K1 + 1)) / (f + m.config.K1*norm)
			matched[docID] = append(matched[docID], term)
		}
	}

	results := make([]*SparseResult, 0, len(scores))
	for docID, score := range scores {
		results = append(results, &SparseResult{
			DocID:        docID,
			Score:        score,
			MatchedTerms: matched[docID],
		})
	}

	// Descending score, ties by document ID ascending for determinism.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Contains reports whether a document is indexed.
func (m *MemorySparseIndex) Contains(docID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.docLens[docID]
	return ok
}

// Stats returns corpus statistics.
func (m *MemorySparseIndex) Stats() SparseStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := SparseStats{
		DocumentCount: len(m.docLens),
		TermCount:     len(m.postings),
	}
	if stats.DocumentCount > 0 {
		stats.AvgDocLength = float64(m.totalLen) / float64(stats.DocumentCount)
	}
	return stats
}

// Save persists the index atomically (temp file + rename).
func (m *MemorySparseIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("sparse index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	snap := sparseSnapshot{
		Config:   m.config,
		Postings: m.postings,
		DocLens:  m.docLens,
		TotalLen: m.totalLen,
	}

	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode sparse index: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Load replaces the index contents from a saved snapshot.
func (m *MemorySparseIndex) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("sparse index is closed")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	var snap sparseSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode sparse index: %w", err)
	}

	m.config = snap.Config
	m.postings = snap.Postings
	m.docLens = snap.DocLens
	m.totalLen = snap.TotalLen

	return nil
}

// Close marks the index closed.
func (m *MemorySparseIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Verify interface implementation
var _ SparseIndex = (*MemorySparseIndex)(nil)
