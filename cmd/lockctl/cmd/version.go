package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lintshiwe/LockPort/internal/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lockctl version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "table" {
			return formatOutput(cmd, map[string]string{"version": version.String()})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lockctl %s\n", version.String())
		return nil
	},
}
