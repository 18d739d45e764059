// Package cli provides shared test utilities for cobra command testing.
//
// Run executes a command with captured stdout/stderr and returns a
// CommandResult with fluent assertion helpers:
//
//	result := cli.Run(rootCmd, "devices", "--db", path)
//	result.AssertSuccess(t)
//	result.AssertContains(t, "No devices observed yet")
//
// Commands under test must write through cmd.OutOrStdout() and
// cmd.ErrOrStderr(); output written directly to os.Stdout is not captured.
package cli
