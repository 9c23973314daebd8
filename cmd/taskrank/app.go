package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskrank/internal/analysis"
	"github.com/phrazzld/taskrank/internal/config"
	"github.com/phrazzld/taskrank/internal/platform/logger"
	"github.com/phrazzld/taskrank/internal/present"
	"github.com/phrazzld/taskrank/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

// application holds the dependencies shared by the subcommands.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	client   *analysis.Client
	streams  streams
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.metricsFile != "" {
		cfg.Metrics.File = opts.metricsFile
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApplication loads configuration and builds the logger, metrics
// registry and analysis client.
func newApplication(opts *globalOptions, s streams) (*application, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, err := logger.Setup(cfg.Log, s.err)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics, err := analysis.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	client, err := analysis.NewClient(cfg.API.BaseURL,
		analysis.WithTimeout(cfg.API.Timeout),
		analysis.WithLogger(log),
		analysis.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}

	log.Debug("configuration loaded",
		"base_url", cfg.API.BaseURL,
		"timeout", cfg.API.Timeout,
		"default_strategy", cfg.Analysis.DefaultStrategy,
		"metrics_file_present", cfg.Metrics.File != "")

	return &application{
		config:   cfg,
		logger:   log,
		registry: registry,
		client:   client,
		streams:  s,
	}, nil
}

// newSession builds a session rendering to the application's stdout and
// reporting notices to w.
func (a *application) newSession(w io.Writer, verbose, serverSuggestions bool) (*session.Session, error) {
	return session.New(
		a.client,
		present.New(a.streams.out, present.WithVerbose(verbose)),
		newNotifier(w),
		session.WithStrategy(a.config.Analysis.DefaultStrategy),
		session.WithSuggestionCount(a.config.Analysis.SuggestionCount),
		session.WithServerSuggestions(serverSuggestions),
		session.WithLogger(a.logger),
	)
}

// close exports metrics when a metrics file is configured.
func (a *application) close() {
	if a.config.Metrics.File == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.config.Metrics.File, a.registry); err != nil {
		a.logger.Error("failed to write metrics file",
			"path", a.config.Metrics.File,
			"error", err)
		return
	}
	a.logger.Debug("metrics written", "path", a.config.Metrics.File)
}

// newNotifier prints notices to w, one per line. Errors are prefixed so
// they stand out from informational notices.
func newNotifier(w io.Writer) session.Notifier {
	var mu sync.Mutex
	return session.NotifierFunc(func(n session.Notice) {
		mu.Lock()
		defer mu.Unlock()
		if n.Level == session.LevelError {
			_, _ = fmt.Fprintf(w, "error: %s\n", n.Text)
			return
		}
		_, _ = fmt.Fprintln(w, n.Text)
	})
}
