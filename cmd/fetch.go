package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/collision-cli/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [raw|clean|model]...",
	Short: "Download missing input files",
	Long: `Downloads any missing input from its configured URL. Present files are left alone.

With no arguments, fetches the raw and clean extracts.`,
	ValidArgs: pipeline.Targets,
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := pipeline.NewFetcher(cfg.Fetch)
		if err := pipeline.Fetch(cmd.Context(), f, cfg, args); err != nil {
			return eris.Wrap(err, "fetch")
		}
		fmt.Println("Inputs available")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
