package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/ingest"
	"github.com/kasane-search/kasane/internal/output"
)

// jsonlRecord is one line of the ingest file. Embedding is the
// precomputed dense vector; kasane never computes embeddings itself.
type jsonlRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Embedding []float32 `json:"embedding"`
}

func newIndexCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Ingest documents from a JSONL file",
		Long: `Ingest documents into both indexes from a JSONL file, one document
per line:

  {"id": "doc-1", "text": "...", "title": "...", "tags": ["a"], "embedding": [0.1, ...]}

Text-only documents are indexed for keyword search only; documents with
an embedding also enter the vector store. Invalid documents are
reported and skipped without aborting the batch. Use "-" to read from
stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args[0], batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "Documents per ingest batch")

	return cmd
}

func runIndex(cmd *cobra.Command, path string, batchSize int) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Both indexes persist via whole-file rewrites; serialize writers
	// across processes.
	lock := ingest.NewDirLock(cfg.Paths.DataDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("data directory %s is locked by another kasane process", cfg.Paths.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	coord, err := ingest.NewCoordinator(st.sparse, st.vector, st.meta)
	if err != nil {
		return err
	}

	var in io.Reader
	if path == "-" {
		in = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	if batchSize <= 0 {
		batchSize = 500
	}

	start := time.Now()
	total, failed := 0, 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	batch := make([]*ingest.Item, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		report, err := coord.IngestBatch(cmd.Context(), batch)
		if err != nil {
			return err
		}
		total += report.Indexed
		failed += len(report.Failed)
		for _, f := range report.Failed {
			out.Errorf("skipped %q: %v", f.DocID, f.Err)
		}
		batch = batch[:0]
		return nil
	}

	line := 0
	now := time.Now().UTC()
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			failed++
			out.Errorf("skipped line %d: %v", line, err)
			continue
		}

		batch = append(batch, &ingest.Item{
			ID:        rec.ID,
			Text:      rec.Text,
			Title:     rec.Title,
			Category:  rec.Category,
			Tags:      rec.Tags,
			Vector:    rec.Embedding,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	if err := st.persist(); err != nil {
		return err
	}

	out.Statusf("Indexed %d document(s) in %s (%d skipped)",
		total, time.Since(start).Round(time.Millisecond), failed)
	return nil
}
