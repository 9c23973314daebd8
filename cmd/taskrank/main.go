// Package main provides the taskrank binary, a command-line client for the
// task analysis service.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

const appName = "taskrank"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	os.Exit(execute(os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}))
}

// streams bundles the process's standard streams so commands can be run
// against buffers in tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// execute runs the command line and returns the process exit code.
func execute(args []string, s streams) int {
	cmd := rootCmd(s)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			_, _ = fmt.Fprintf(s.err, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// reportedError marks a failure the user has already seen as a notice.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
	baseURL     string
}

func rootCmd(s streams) *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Rank tasks with the task analysis service",
		Long: `taskrank sends task lists to the task analysis service and shows the
ranked results with a short list of suggestions.

Tasks come either from a local list built up in an interactive shell, or
from a bulk JSON (or YAML) array. When bulk input is given it replaces the
local list for that analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, JSON or TOML)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json, text)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write request metrics to this file on exit")
	flags.StringVar(&opts.baseURL, "base-url", "", "Analysis service base URL")

	cmd.AddCommand(
		analyzeCmd(&opts, s),
		shellCmd(&opts, s),
		watchCmd(&opts, s),
		strategiesCmd(&opts, s),
		versionCmd(s),
	)
	return cmd
}

func versionCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(s.out, "%s version %s (build: %s)\n", appName, version, buildTime)
		},
	}
}

func strategiesCmd(opts *globalOptions, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the configured scoring strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			for _, name := range cfg.Analysis.Strategies {
				marker := " "
				if name == cfg.Analysis.DefaultStrategy {
					marker = "*"
				}
				_, _ = fmt.Fprintf(s.out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}
