package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kasane-search/kasane/internal/output"
	"github.com/kasane-search/kasane/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			if asJSON {
				return out.JSON(version.GetInfo())
			}
			out.Statusf("%s", version.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
