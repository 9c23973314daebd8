package config

import "time"

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api" validate:"required"`
	Analysis AnalysisConfig `mapstructure:"analysis" validate:"required"`
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Watch    WatchConfig    `mapstructure:"watch" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// APIConfig locates the task analysis service.
type APIConfig struct {
	// BaseURL is the prefix the analyze and suggest endpoints hang off.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Timeout bounds a single request. Zero disables the client-side limit.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// AnalysisConfig holds strategy and suggestion settings.
type AnalysisConfig struct {
	DefaultStrategy string `mapstructure:"default_strategy" validate:"required"`
	// Strategies is the option list shown to users. Values outside it are
	// still forwarded to the service.
	Strategies      []string `mapstructure:"strategies" validate:"required,min=1,dive,required"`
	SuggestionCount int      `mapstructure:"suggestion_count" validate:"gt=0"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gt=0"`
}

// MetricsConfig controls request metrics export.
type MetricsConfig struct {
	// File receives the metrics in Prometheus text format on exit. Empty
	// disables the export.
	File string `mapstructure:"file"`
}
