package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/output"
	"github.com/kasane-search/kasane/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode         string
	limit        int
	sparseWeight float64
	denseWeight  float64
	format       string
	vectorJSON   string
	vectorFile   string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the index",
		Long: `Search the index with hybrid (default), sparse-only, or dense-only
retrieval.

Hybrid and dense-only modes need a query embedding, supplied as a JSON
array via --vector or --vector-file; sparse-only mode needs only query
text.

Examples:
  kasane search "error handling" --mode sparse-only
  kasane search "error handling" --vector-file query.json
  kasane search --mode dense-only --vector '[0.1, 0.2, 0.3]'
  kasane search "error handling" --vector-file q.json --sparse-weight 0.8 --dense-weight 0.2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(search.ModeHybrid), "Retrieval mode: hybrid, sparse-only, dense-only")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.sparseWeight, "sparse-weight", -1, "Override sparse branch weight")
	cmd.Flags().Float64Var(&opts.denseWeight, "dense-weight", -1, "Override dense branch weight")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: text, json (default: text on a TTY)")
	cmd.Flags().StringVar(&opts.vectorJSON, "vector", "", "Query embedding as a JSON array")
	cmd.Flags().StringVar(&opts.vectorFile, "vector-file", "", "File containing the query embedding as a JSON array")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	queryVector, err := parseQueryVector(opts)
	if err != nil {
		return err
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	engine, err := st.newEngine()
	if err != nil {
		return err
	}

	searchOpts := search.Options{
		Mode:  search.Mode(opts.mode),
		Limit: opts.limit,
	}
	// Both weights must be given together; a lone override would
	// silently rescale against the configured default.
	switch {
	case opts.sparseWeight >= 0 && opts.denseWeight >= 0:
		searchOpts.Weights = &search.Weights{Sparse: opts.sparseWeight, Dense: opts.denseWeight}
	case opts.sparseWeight >= 0 || opts.denseWeight >= 0:
		return fmt.Errorf("--sparse-weight and --dense-weight must be set together")
	}

	resp, err := engine.Search(cmd.Context(), query, queryVector, searchOpts)
	if err != nil {
		return err
	}

	format := output.Format(opts.format)
	if format == "" {
		format = output.DefaultFormat()
	}
	return out.Response(resp, format)
}

// parseQueryVector reads the query embedding from --vector or
// --vector-file. Returns nil when neither is given.
func parseQueryVector(opts searchOptions) ([]float32, error) {
	raw := strings.TrimSpace(opts.vectorJSON)

	if opts.vectorFile != "" {
		if raw != "" {
			return nil, fmt.Errorf("--vector and --vector-file are mutually exclusive")
		}
		data, err := os.ReadFile(opts.vectorFile)
		if err != nil {
			return nil, fmt.Errorf("read vector file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}

	if raw == "" {
		return nil, nil
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("parse query embedding: %w", err)
	}
	return vec, nil
}
