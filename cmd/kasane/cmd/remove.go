package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/ingest"
	"github.com/kasane-search/kasane/internal/output"
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <doc-id> [doc-id...]",
		Short: "Remove documents from the index",
		Long: `Remove documents from both indexes and the metadata store. Unknown
IDs are ignored; a removed document never appears in later searches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args)
		},
	}

	return cmd
}

func runRemove(cmd *cobra.Command, ids []string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

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

	if err := coord.Remove(cmd.Context(), ids); err != nil {
		return err
	}
	if err := st.persist(); err != nil {
		return err
	}

	out.Statusf("Removed %d document(s)", len(ids))
	return nil
}
