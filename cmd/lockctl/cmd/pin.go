package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Lintshiwe/LockPort/pkg/clierror"
	"github.com/Lintshiwe/LockPort/pkg/pinstore"
)

func init() {
	rootCmd.AddCommand(setPinCmd)
	rootCmd.AddCommand(resetLockoutCmd)

	setPinCmd.Flags().String("current-pin", "", "Current PIN (prompted if omitted)")
	setPinCmd.Flags().String("new-pin", "", "New PIN (prompted if omitted)")
	setPinCmd.Flags().Bool("skip-current-check", false, "Skip current PIN validation (recovery only, requires elevated access)")
}

var setPinCmd = &cobra.Command{
	Use:   "set-pin",
	Short: "Change the shared unlock PIN",
	Long: `Change the PIN that authorizes removable devices.

The current PIN must be entered first unless --skip-current-check is given.
The new PIN must be 4-8 numeric digits. Changing the PIN resets the failed
attempt counter and clears any active lockout.

Examples:
  lockctl set-pin                      # prompts for current and new PIN
  lockctl set-pin --skip-current-check # recovery: skip the current PIN gate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skipCheck, _ := cmd.Flags().GetBool("skip-current-check")

		current, _ := cmd.Flags().GetString("current-pin")
		if current == "" && !skipCheck {
			var err error
			current, err = readPin("Current PIN: ")
			if err != nil {
				return err
			}
		}

		newPin, _ := cmd.Flags().GetString("new-pin")
		if newPin == "" {
			var err error
			newPin, err = readPin("New PIN (4-8 digits): ")
			if err != nil {
				return err
			}
			confirm, err := readPin("Confirm new PIN: ")
			if err != nil {
				return err
			}
			if confirm != newPin {
				return clierror.PinInvalid()
			}
		}

		if err := pins.SetPin(current, newPin, skipCheck); err != nil {
			return mapPinError(err)
		}

		if outputFormat != "table" {
			return formatOutput(cmd, map[string]string{"status": "pin_changed"})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PIN updated.")
		return nil
	},
}

var resetLockoutCmd = &cobra.Command{
	Use:   "reset-lockout",
	Short: "Clear the failed-attempt counter and any active lockout",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pins.ResetLockout(); err != nil {
			return clierror.StorageFailed(err)
		}

		if outputFormat != "table" {
			return formatOutput(cmd, map[string]string{"status": "lockout_cleared"})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Lockout cleared; attempt counter reset.")
		return nil
	},
}

// mapPinError translates credential store errors into CLI errors with the
// right exit codes.
func mapPinError(err error) error {
	switch {
	case errors.Is(err, pinstore.ErrInvalidPin):
		return clierror.PinInvalid()
	case errors.Is(err, pinstore.ErrLockedOut):
		st, stErr := pins.Status()
		if stErr != nil {
			return clierror.StorageFailed(stErr)
		}
		return clierror.PinLockedOut(st.LockoutRemaining.Round(time.Second).String())
	case errors.Is(err, pinstore.ErrCurrentPinMismatch):
		st, stErr := pins.Status()
		if stErr != nil {
			return clierror.StorageFailed(stErr)
		}
		return clierror.PinRejected(st.AttemptLimit - st.FailedAttempts)
	default:
		return clierror.InternalError(err)
	}
}

// readPin reads a PIN without echo when stdin is a terminal.
func readPin(promptText string) (string, error) {
	fmt.Fprint(os.Stderr, promptText)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
