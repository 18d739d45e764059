package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lintshiwe/LockPort/pkg/registry"
	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List every tracked removable device",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := devices.List()

		if outputFormat != "table" {
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "[]")
				return nil
			}
			return formatOutput(cmd, entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No devices observed yet. Attach a USB drive while lockportd is running.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tSTATE\tDRIVE\tLABEL\tLAST SEEN")
		for _, e := range entries {
			state := color.RedString(string(e.State))
			if e.State == registry.Unlocked {
				state = color.GreenString(string(e.State))
			}
			drive := e.Drive
			if drive == "" {
				drive = "-"
			}
			label := e.Label
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.DeviceID, state, drive, label, timeutil.Relative(e.LastSeen))
		}
		w.Flush()
		return nil
	},
}
