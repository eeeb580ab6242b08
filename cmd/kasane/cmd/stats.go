package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/output"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, asJSON bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
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

	stats := engine.Stats()
	if asJSON {
		return out.JSON(stats)
	}

	out.Statusf("Data directory:   %s", cfg.Paths.DataDir)
	out.Statusf("Sparse backend:   %s", cfg.Sparse.Backend)
	out.Statusf("  documents:      %d", stats.Sparse.DocumentCount)
	out.Statusf("  terms:          %d", stats.Sparse.TermCount)
	out.Statusf("  avg doc length: %.1f", stats.Sparse.AvgDocLength)
	out.Statusf("Vector backend:   %s", cfg.Vector.Backend)
	out.Statusf("  vectors:        %d", stats.VectorCount)
	out.Statusf("  dimensions:     %d", stats.Dimensions)
	return nil
}
