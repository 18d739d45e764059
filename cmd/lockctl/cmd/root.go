// Package cmd implements the lockctl CLI commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Lintshiwe/LockPort/internal/version"
	"github.com/Lintshiwe/LockPort/pkg/clierror"
	"github.com/Lintshiwe/LockPort/pkg/pinstore"
	"github.com/Lintshiwe/LockPort/pkg/registry"
	"github.com/Lintshiwe/LockPort/pkg/store"
	"github.com/Lintshiwe/LockPort/pkg/timeutil"
)

var (
	// Global flags
	outputFormat string
	dbPath       string

	// Shared state opened in PersistentPreRunE
	db      *store.Store
	pins    *pinstore.Store
	devices *registry.Registry
)

var rootCmd = &cobra.Command{
	Use:   "lockctl",
	Short: "LockPort CLI for USB device authorization",
	Long: `lockctl administers the LockPort device authorization engine.

It queries tracked devices and lock states, changes the shared PIN,
and clears an active lockout.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		path := dbPath
		if path == "" {
			path = store.DefaultPath()
		}

		var err error
		db, err = store.Open(path)
		if err != nil {
			return clierror.StorageFailed(err)
		}

		pins, err = pinstore.New(pinstore.NewSQLitePersister(db), pinstore.DefaultPolicy(), timeutil.SystemClock{})
		if err != nil {
			return clierror.StorageFailed(err)
		}

		devices = registry.New()
		if err := devices.Load(db); err != nil {
			// A corrupt device table never blocks PIN administration.
			fmt.Fprintf(os.Stderr, "warning: failed to load device registry: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var completionCmd = &cobra.Command{
	Use:                   "completion [bash|zsh|fish|powershell]",
	Short:                 "Generate shell completion scripts",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unknown shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: platform data dir)")
	rootCmd.AddCommand(completionCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *clierror.CLIError
		if errors.As(err, &cliErr) {
			clierror.PrintError(cliErr, outputFormat)
			return cliErr.ExitCode
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return clierror.ExitGeneral
	}
	return clierror.ExitSuccess
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(cmd *cobra.Command, data interface{}) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	default:
		// Table format is handled by each command
		return nil
	}
}
