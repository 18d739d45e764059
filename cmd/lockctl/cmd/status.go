package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lintshiwe/LockPort/pkg/clierror"
	"github.com/Lintshiwe/LockPort/pkg/registry"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Devices          int    `json:"devices" yaml:"devices"`
	Unlocked         int    `json:"unlocked" yaml:"unlocked"`
	FailedAttempts   int    `json:"failed_attempts" yaml:"failed_attempts"`
	AttemptLimit     int    `json:"attempt_limit" yaml:"attempt_limit"`
	LockedOut        bool   `json:"locked_out" yaml:"locked_out"`
	LockoutRemaining string `json:"lockout_remaining,omitempty" yaml:"lockout_remaining,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show PIN and device authorization status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := pins.Status()
		if err != nil {
			return clierror.StorageFailed(err)
		}

		unlocked := 0
		entries := devices.List()
		for _, e := range entries {
			if e.State == registry.Unlocked {
				unlocked++
			}
		}

		out := statusOutput{
			Devices:        len(entries),
			Unlocked:       unlocked,
			FailedAttempts: st.FailedAttempts,
			AttemptLimit:   st.AttemptLimit,
			LockedOut:      st.Locked,
		}
		if st.Locked {
			out.LockoutRemaining = st.LockoutRemaining.Round(time.Second).String()
		}

		if outputFormat != "table" {
			return formatOutput(cmd, out)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Devices tracked:  %d (%d unlocked)\n", out.Devices, out.Unlocked)
		fmt.Fprintf(w, "Failed attempts:  %d of %d\n", out.FailedAttempts, out.AttemptLimit)
		if st.Locked {
			color.New(color.FgRed).Fprintf(w, "PIN entry:        LOCKED OUT (%s remaining)\n", out.LockoutRemaining)
			fmt.Fprintln(w, "Run 'lockctl reset-lockout' to clear the lockout.")
		} else {
			color.New(color.FgGreen).Fprintf(w, "PIN entry:        available\n")
		}
		return nil
	},
}
