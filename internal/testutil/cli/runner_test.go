package cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
)

func TestRun_CapturesStdout(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run captures stdout from command")

	cmd := &cobra.Command{
		Use: "test",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("hello world")
		},
	}

	result := Run(cmd)
	result.AssertSuccess(t)

	if result.Stdout != "hello world\n" {
		t.Errorf("expected stdout 'hello world\\n', got %q", result.Stdout)
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run captures stderr from command")

	cmd := &cobra.Command{
		Use: "test",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.PrintErrln("error message")
		},
	}

	result := Run(cmd)
	result.AssertSuccess(t)

	if result.Stderr != "error message\n" {
		t.Errorf("expected stderr 'error message\\n', got %q", result.Stderr)
	}
}

func TestRun_CapturesError(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run captures command errors")

	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("command failed")
		},
	}

	result := Run(cmd)
	result.AssertError(t)

	if result.Err == nil || result.Err.Error() != "command failed" {
		t.Errorf("expected error 'command failed', got %v", result.Err)
	}
}

func TestRun_PassesArguments(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run passes arguments to command")

	var receivedArgs []string
	cmd := &cobra.Command{
		Use: "test",
		Run: func(cmd *cobra.Command, args []string) {
			receivedArgs = args
			cmd.Printf("args: %v", args)
		},
	}

	result := Run(cmd, "arg1", "arg2", "arg3")
	result.AssertSuccess(t)

	if len(receivedArgs) != 3 {
		t.Errorf("expected 3 args, got %d", len(receivedArgs))
	}
	if receivedArgs[0] != "arg1" || receivedArgs[1] != "arg2" || receivedArgs[2] != "arg3" {
		t.Errorf("expected args [arg1 arg2 arg3], got %v", receivedArgs)
	}
}

func TestAssertSuccess_PassesOnSuccess(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertSuccess passes when command succeeds")

	result := &CommandResult{
		Stdout: "output",
		Err:    nil,
	}

	// This should not fail
	result.AssertSuccess(t)
}

func TestAssertError_PassesOnError(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertError passes when command fails")

	result := &CommandResult{
		Err: errors.New("some error"),
	}

	// This should not fail
	result.AssertError(t)
}

func TestAssertContains_PassesWhenFound(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertContains passes when string is found")

	result := &CommandResult{
		Stdout: "hello world version 1.0",
	}

	result.AssertContains(t, "version")
	result.AssertContains(t, "hello")
	result.AssertContains(t, "1.0")
}

func TestAssertNotContains_PassesWhenNotFound(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertNotContains passes when string is not found")

	result := &CommandResult{
		Stdout: "hello world",
	}

	result.AssertNotContains(t, "goodbye")
	result.AssertNotContains(t, "version")
}

func TestAssertPrefix_PassesWithCorrectPrefix(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertPrefix passes when prefix matches")

	result := &CommandResult{
		Stdout: "lockctl 1.0.0\n",
	}

	result.AssertPrefix(t, "lockctl")
}

func TestAssertPrefix_TrimsWhitespace(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertPrefix trims whitespace before checking")

	result := &CommandResult{
		Stdout: "  \n  lockctl 1.0.0\n",
	}

	result.AssertPrefix(t, "lockctl")
}

func TestAssertStderrContains_PassesWhenFound(t *testing.T) {
	t.Parallel()
	t.Log("Testing that AssertStderrContains passes when string is in stderr")

	result := &CommandResult{
		Stderr: "Warning: deprecated flag",
	}

	result.AssertStderrContains(t, "deprecated")
}

func TestRun_WithFlags(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run works with command flags")

	cmd := &cobra.Command{
		Use: "test",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				cmd.Println("verbose mode")
			} else {
				cmd.Println("normal mode")
			}
		},
	}
	cmd.Flags().Bool("verbose", false, "verbose output")

	// Test without flag
	result := Run(cmd)
	result.AssertSuccess(t)
	result.AssertContains(t, "normal mode")

	// Test with flag
	result = Run(cmd, "--verbose")
	result.AssertSuccess(t)
	result.AssertContains(t, "verbose mode")
}

func TestRun_WithSubcommands(t *testing.T) {
	t.Parallel()
	t.Log("Testing that Run works with subcommands")

	rootCmd := &cobra.Command{
		Use: "root",
	}
	subCmd := &cobra.Command{
		Use: "sub",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("subcommand executed")
		},
	}
	rootCmd.AddCommand(subCmd)

	result := Run(rootCmd, "sub")
	result.AssertSuccess(t)
	result.AssertContains(t, "subcommand executed")
}
