package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/biscuit-auth/biscuit/config"
	"github.com/biscuit-auth/biscuit/telemetry/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "biscuitctl",
	Short: "Operate a biscuit verifier's revocation list and resource limits",
	Long: `biscuitctl manages the infrastructure around a biscuit Datalog
verification engine: the revocation list a verifier consults before
trusting a token, and the resource limits that bound fixpoint evaluation.

For more information, see the datalog package documentation.`,
	Version: Version,
}

// Execute runs the root command. A command that wraps its error with
// withExitCode controls the process exit code directly (2 for an
// execution error, 1 for a result error); any other error exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var ec *exitCodeError
		if errors.As(err, &ec) {
			code = ec.code
		}
		os.Exit(code)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfigIfPresent loads a Config from path, or returns nil without
// error if no file exists there. --config defaults to "config.yaml" so a
// bare invocation in a directory without one falls back to the
// datalog/revocation defaults rather than failing.
func loadConfigIfPresent(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return config.Load(path)
}

// rootLogger builds the logger shared by every subcommand that syncs or
// watches a revocation store, honoring --verbose.
func rootLogger() *slog.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text"})
	if err != nil {
		return slog.Default()
	}
	return logger
}
