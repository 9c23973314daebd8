package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TASKRANK_API_BASE_URL.
const EnvPrefix = "TASKRANK"

// Default values, applied before the config file and environment.
var defaults = map[string]any{
	"api.base_url":              "http://localhost:8000/api/tasks",
	"api.timeout":               "30s",
	"analysis.default_strategy": "smart",
	"analysis.strategies":       []string{"smart", "simple", "fastest", "impact", "deadline"},
	"analysis.suggestion_count": 3,
	"log.level":                 "info",
	"log.format":                "json",
	"watch.debounce":            "250ms",
	"metrics.file":              "",
}

// Load reads configuration from environment variables and, when configFile
// is non-empty, from that file. Environment variables take precedence over
// values from the file. Returns a populated Config or an error if loading or
// validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config validation failed: %s: %w", strings.Join(fields, ", "), err)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
