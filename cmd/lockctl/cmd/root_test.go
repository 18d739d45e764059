package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Lintshiwe/LockPort/internal/testutil/cli"
	"github.com/Lintshiwe/LockPort/internal/version"
	"github.com/Lintshiwe/LockPort/pkg/clierror"
	"github.com/Lintshiwe/LockPort/pkg/pinstore"
)

// tempDB points the shared root command at a fresh database.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "lockport.db")
}

func TestRootCmd_HelpShowsSubcommands(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "--help")
	result.AssertSuccess(t)

	result.AssertContains(t, "Available Commands")
	result.AssertContains(t, "status")
	result.AssertContains(t, "devices")
	result.AssertContains(t, "set-pin")
	result.AssertContains(t, "reset-lockout")
}

func TestVersionCommand(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "version")
	result.AssertSuccess(t)
	result.AssertPrefix(t, "lockctl "+version.String())
}

func TestDevicesCommand_EmptyDatabase(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "devices", "--db", tempDB(t))
	result.AssertSuccess(t)
	result.AssertContains(t, "No devices observed yet")
}

func TestStatusCommand_FreshInstall(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "status", "--db", tempDB(t))
	result.AssertSuccess(t)
	result.AssertContains(t, "Devices tracked:  0")
	result.AssertContains(t, "Failed attempts:  0 of 5")
}

func TestSetPinCommand_ChangesAndVerifies(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	db := tempDB(t)

	result := cli.Run(rootCmd, "set-pin", "--db", db,
		"--current-pin", pinstore.DefaultPin, "--new-pin", "246810")
	result.AssertSuccess(t)
	result.AssertContains(t, "PIN updated.")

	// The old default no longer verifies.
	result = cli.Run(rootCmd, "set-pin", "--db", db,
		"--current-pin", pinstore.DefaultPin, "--new-pin", "135791")
	result.AssertError(t)

	var cliErr *clierror.CLIError
	if !errors.As(result.Err, &cliErr) {
		t.Fatalf("expected CLIError, got %T: %v", result.Err, result.Err)
	}
	if cliErr.ExitCode != clierror.ExitPin {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, clierror.ExitPin)
	}
}

func TestSetPinCommand_RejectsMalformedPin(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "set-pin", "--db", tempDB(t),
		"--current-pin", pinstore.DefaultPin, "--new-pin", "abc")
	result.AssertError(t)

	var cliErr *clierror.CLIError
	if !errors.As(result.Err, &cliErr) {
		t.Fatalf("expected CLIError, got %T", result.Err)
	}
	if cliErr.Code != clierror.CodePinInvalid {
		t.Errorf("code = %s, want %s", cliErr.Code, clierror.CodePinInvalid)
	}
}

func TestSetPinCommand_SkipCurrentCheck(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	db := tempDB(t)

	result := cli.Run(rootCmd, "set-pin", "--db", db,
		"--skip-current-check", "--new-pin", "9090")
	result.AssertSuccess(t)

	// Recovery path works without the old PIN; the new one is live.
	result = cli.Run(rootCmd, "set-pin", "--db", db,
		"--current-pin", "9090", "--new-pin", "8080")
	result.AssertSuccess(t)
}

func TestResetLockoutCommand(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	db := tempDB(t)

	// Drive the store into lockout through wrong current PINs.
	for i := 0; i < 5; i++ {
		cli.Run(rootCmd, "set-pin", "--db", db,
			"--current-pin", "9999", "--new-pin", "1234")
	}

	result := cli.Run(rootCmd, "set-pin", "--db", db,
		"--current-pin", pinstore.DefaultPin, "--new-pin", "1234")
	result.AssertError(t)
	var cliErr *clierror.CLIError
	if !errors.As(result.Err, &cliErr) || cliErr.Code != clierror.CodePinLockedOut {
		t.Fatalf("expected lockout error, got %v", result.Err)
	}

	result = cli.Run(rootCmd, "reset-lockout", "--db", db)
	result.AssertSuccess(t)
	result.AssertContains(t, "Lockout cleared")

	result = cli.Run(rootCmd, "set-pin", "--db", db,
		"--current-pin", pinstore.DefaultPin, "--new-pin", "1234")
	result.AssertSuccess(t)
}

func TestStatusCommand_JSONOutput(t *testing.T) {
	// Cannot run in parallel - uses shared global rootCmd
	result := cli.Run(rootCmd, "status", "--db", tempDB(t), "-o", "json")
	result.AssertSuccess(t)
	result.AssertContains(t, `"attempt_limit": 5`)

	// Restore the default for subsequent tests.
	outputFormat = "table"
}
