package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/radeval/internal/taxonomy"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the anatomical regions",
	Long: `Prints the fixed set of anatomical regions every evaluation is scored
against, in index order. Region indices in recordings refer to this list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, name := range taxonomy.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
