package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/radeval/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, commit, date := version.Info()
		fmt.Fprintf(cmd.OutOrStdout(), "radeval %s (commit: %s, built: %s)\n", v, commit, date)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
