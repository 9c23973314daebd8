package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/session"
	"github.com/phrazzld/taskrank/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func watchCmd(global *globalOptions, s streams) *cobra.Command {
	var (
		files             []string
		strategy          string
		verbose           bool
		serverSuggestions bool
	)

	cmd := &cobra.Command{
		Use:   "watch --file PATH [--file PATH ...]",
		Short: "Re-analyze task files whenever they change",
		Long: `Watch analyzes each file once at start and again after every change.
All files share one session, so a change that arrives while an analysis is
still pending is rejected and logged; the next change triggers again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 {
				return errors.New("at least one --file is required")
			}

			app, err := newApplication(global, s)
			if err != nil {
				return err
			}
			defer app.close()

			sess, err := app.newSession(s.err, verbose, serverSuggestions)
			if err != nil {
				return err
			}

			// Build every watcher first so a bad path fails before any
			// analysis starts.
			watchers := make([]*watch.Watcher, 0, len(files))
			for _, path := range files {
				format := bulk.FormatForPath(path)
				w, err := watch.New(watch.Config{
					Path:     path,
					Debounce: app.config.Watch.Debounce,
					Logger:   app.logger,
				}, func(ctx context.Context, content []byte) error {
					_, err := sess.Analyze(ctx, session.Request{
						Bulk:     string(content),
						Format:   format,
						Strategy: strategy,
					})
					return err
				})
				if err != nil {
					return fmt.Errorf("watch %q: %w", path, err)
				}
				watchers = append(watchers, w)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			for _, w := range watchers {
				w := w
				g.Go(func() error {
					return w.Run(ctx)
				})
			}

			app.logger.Info("watch started", "files", len(files))
			return g.Wait()
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Task file to watch (repeatable)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Scoring strategy (defaults to analysis.default_strategy)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show score breakdowns")
	cmd.Flags().BoolVar(&serverSuggestions, "server-suggestions", false, "Ask the service for suggestions")
	return cmd
}
