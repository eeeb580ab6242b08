// Package cmd provides the CLI commands for kasane.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/config"
	"github.com/kasane-search/kasane/internal/logging"
	"github.com/kasane-search/kasane/internal/search"
	"github.com/kasane-search/kasane/internal/store"
	"github.com/kasane-search/kasane/pkg/version"
)

var (
	flagDataDir string
	flagDebug   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the kasane CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kasane",
		Short: "Hybrid keyword + vector search engine",
		Long: `Kasane indexes documents for both BM25 keyword retrieval and dense
vector similarity, and fuses the two rankings at query time with a
weighted-score + reciprocal-rank-fusion blend.

Documents are ingested from JSONL; embeddings are supplied by the
caller, not computed here.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("kasane version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Index data directory (default: .kasane, or KASANE_DATA_DIR)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging configures the default slog logger before any command
// runs. Config is loaded best-effort here; a broken config file still
// gets default logging so the later loadConfig error is visible.
func setupLogging(cmd *cobra.Command, args []string) error {
	logCfg := logging.DefaultConfig()
	if wd, err := os.Getwd(); err == nil {
		if cfg, err := config.Load(wd); err == nil {
			logCfg.Level = cfg.Logging.Level
			logCfg.FilePath = cfg.Logging.File
		}
	}
	if flagDebug {
		logCfg.Level = "debug"
	}
	cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig loads configuration from the working directory and applies
// the --data-dir flag override.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.Paths.DataDir = flagDataDir
	}
	return cfg, nil
}

// stores holds the three opened stores plus their persistence paths.
type stores struct {
	cfg    *config.Config
	sparse store.SparseIndex
	vector store.VectorStore
	meta   store.MetadataStore

	sparsePath string
	vectorPath string
}

// openStores opens (or creates) the indexes under the data directory.
func openStores(cfg *config.Config) (*stores, error) {
	dataDir := cfg.Paths.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sparseBase := filepath.Join(dataDir, "sparse")
	sparse, err := store.NewSparseIndex(sparseBase, cfg.SparseStoreConfig(), cfg.Sparse.Backend)
	if err != nil {
		return nil, fmt.Errorf("open sparse index: %w", err)
	}

	vectorBase := filepath.Join(dataDir, "vectors")
	vector, err := store.NewVectorStore(vectorBase, cfg.VectorStoreConfig(), cfg.Vector.Backend)
	if err != nil {
		_ = sparse.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	meta, err := store.NewSQLiteMetadataStore(filepath.Join(dataDir, "metadata.db"))
	if err != nil {
		_ = sparse.Close()
		_ = vector.Close()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	return &stores{
		cfg:        cfg,
		sparse:     sparse,
		vector:     vector,
		meta:       meta,
		sparsePath: store.SparseIndexPath(sparseBase, cfg.Sparse.Backend),
		vectorPath: store.VectorStorePath(vectorBase, cfg.Vector.Backend),
	}, nil
}

// persist flushes both indexes to disk. The Bleve backend persists
// incrementally, so its Save is a no-op with the same path contract.
func (s *stores) persist() error {
	if err := s.sparse.Save(s.sparsePath); err != nil {
		return fmt.Errorf("save sparse index: %w", err)
	}
	if err := s.vector.Save(s.vectorPath); err != nil {
		return fmt.Errorf("save vector store: %w", err)
	}
	return nil
}

func (s *stores) close() {
	_ = s.sparse.Close()
	_ = s.vector.Close()
	_ = s.meta.Close()
}

// newEngine builds the search engine over the opened stores.
func (s *stores) newEngine() (*search.Engine, error) {
	return search.NewEngine(s.sparse, s.vector, s.cfg.EngineConfig(),
		search.WithMetadata(s.meta))
}
