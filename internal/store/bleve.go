package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	// ArticleTokenizerName is the registry name of the kasane tokenizer.
	ArticleTokenizerName = "kasane_tokenizer"

	// ArticleAnalyzerName is the registry name of the kasane analyzer.
	ArticleAnalyzerName = "kasane_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(ArticleTokenizerName, articleTokenizerConstructor)
}

// BleveSparseIndex is the on-disk SparseIndex backend backed by Bleve v2.
// Scoring is Bleve's BM25-family implementation rather than the exact
// formula of MemorySparseIndex; ordering guarantees (score descending,
// ID ascending on ties) are enforced after retrieval.
type BleveSparseIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config SparseConfig
	closed bool
}

// bleveArticle is the document structure handed to Bleve.
type bleveArticle struct {
	Text string `json:"text"`
}

// NewBleveSparseIndex creates or opens a Bleve index at path.
// An empty path creates an in-memory index for testing.
func NewBleveSparseIndex(path string, config SparseConfig) (*BleveSparseIndex, error) {
	indexMapping, err := createArticleMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open bleve index: %w", err)
	}

	return &BleveSparseIndex{
		index:  idx,
		path:   path,
		config: config,
	}, nil
}

// createArticleMapping builds the Bleve mapping with the kasane analyzer.
func createArticleMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(ArticleAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     ArticleTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = ArticleAnalyzerName
	return indexMapping, nil
}

// Index adds or replaces documents in a single batch.
func (b *BleveSparseIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("sparse index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document with empty ID")
		}
		if err := batch.Index(doc.ID, bleveArticle{Text: doc.Text}); err != nil {
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Query returns matching documents scored by Bleve's BM25.
func (b *BleveSparseIndex) Query(ctx context.Context, text string, limit int) ([]*SparseResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("sparse index is closed")
	}

	if strings.TrimSpace(text) == "" {
		return []*SparseResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetField("text")

	size := limit
	if size <= 0 {
		// Match the memory backend: a non-positive limit returns every hit.
		count, err := b.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		size = int(count)
	}

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = size
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	results := make([]*SparseResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &SparseResult{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}

	// Bleve does not guarantee tie order; re-sort for determinism.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	return results, nil
}

// Remove deletes documents from the index.
func (b *BleveSparseIndex) Remove(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("sparse index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

// Contains reports whether a document is indexed.
func (b *BleveSparseIndex) Contains(docID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false
	}

	doc, err := b.index.Document(docID)
	return err == nil && doc != nil
}

// Stats returns index statistics. Bleve does not expose term counts or
// average document length, so only the document count is populated.
func (b *BleveSparseIndex) Stats() SparseStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return SparseStats{}
	}

	docCount, _ := b.index.DocCount()
	return SparseStats{DocumentCount: int(docCount)}
}

// Save is a no-op: disk-backed Bleve indexes persist on write.
func (b *BleveSparseIndex) Save(path string) error {
	return nil
}

// Load opens an existing index from disk, replacing the current one.
func (b *BleveSparseIndex) Load(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index != nil && !b.closed {
		_ = b.index.Close()
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return fmt.Errorf("open bleve index: %w", err)
	}

	b.index = idx
	b.path = path
	b.closed = false
	return nil
}

// Close closes the index.
func (b *BleveSparseIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// extractMatchedTerms pulls matched query terms out of a hit's locations.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "text" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	sort.Strings(result)
	return result
}

// Verify interface implementation
var _ SparseIndex = (*BleveSparseIndex)(nil)

// articleTokenizerConstructor creates the kasane tokenizer for Bleve.
func articleTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveArticleTokenizer{}, nil
}

// bleveArticleTokenizer adapts Tokenize to Bleve's analysis interface so
// both sparse backends index identical terms.
type bleveArticleTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *bleveArticleTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text, DefaultSparseConfig().MinTokenLength)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}
