package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/session"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	file              string
	json              string
	strategy          string
	top               int
	serverSuggestions bool
	verbose           bool
}

func analyzeCmd(global *globalOptions, s streams) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [-]",
		Short: "Analyze a bulk task list once",
		Long: `Analyze sends a bulk task list to the analysis service and prints the
ranked results followed by the top suggestions.

The list is read from --file, from --json, or from standard input when the
only argument is "-". Files ending in .yaml or .yml are read as YAML.`,
		Example: `  taskrank analyze --file tasks.json --strategy deadline
  taskrank analyze --json '[{"title":"Write report","importance":8}]'
  cat tasks.json | taskrank analyze -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(args, s.in)
			if err != nil {
				return err
			}

			app, err := newApplication(global, s)
			if err != nil {
				return err
			}
			defer app.close()

			if opts.top > 0 {
				app.config.Analysis.SuggestionCount = opts.top
			}
			sess, err := app.newSession(s.err, opts.verbose, opts.serverSuggestions)
			if err != nil {
				return err
			}

			if _, err := sess.Analyze(cmd.Context(), req); err != nil {
				return &reportedError{err: err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Read the task list from a JSON or YAML file")
	f.StringVar(&opts.json, "json", "", "Task list as a JSON array")
	f.StringVarP(&opts.strategy, "strategy", "s", "", "Scoring strategy (defaults to analysis.default_strategy)")
	f.IntVarP(&opts.top, "top", "n", 0, "Number of suggestions to show (defaults to analysis.suggestion_count)")
	f.BoolVar(&opts.serverSuggestions, "server-suggestions", false, "Ask the service for suggestions")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show score breakdowns")
	cmd.MarkFlagsMutuallyExclusive("file", "json")

	return cmd
}

// request builds the session request from the input flags. No input at all
// yields an empty request, which the session refuses as an empty task set.
func (o *analyzeOptions) request(args []string, stdin io.Reader) (session.Request, error) {
	req := session.Request{Strategy: o.strategy}

	stdinRequested := len(args) == 1 && args[0] == "-"
	if len(args) == 1 && !stdinRequested {
		return req, fmt.Errorf("unexpected argument %q, use --file or - for stdin", args[0])
	}
	if stdinRequested && (o.file != "" || o.json != "") {
		return req, errors.New("read from stdin or from a flag, not both")
	}
	if o.top < 0 {
		return req, errors.New("--top must not be negative")
	}

	switch {
	case o.file != "":
		data, err := os.ReadFile(o.file)
		if err != nil {
			return req, fmt.Errorf("read task file: %w", err)
		}
		req.Bulk = string(data)
		req.Format = bulk.FormatForPath(o.file)
	case o.json != "":
		req.Bulk = o.json
	case stdinRequested:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("read stdin: %w", err)
		}
		req.Bulk = string(data)
	}
	return req, nil
}
