package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working
// directory when no explicit path is given.
const DefaultConfigFile = "quaestor.yaml"

// DefaultConfig returns a configuration with all defaults applied and
// no file or environment input.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file at the given path,
// applies defaults for unset fields, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides on top. Environment variables
// follow the pattern QUAESTOR_SECTION_FIELD (e.g. QUAESTOR_SERVER_PORT).
// An empty path loads pure defaults, so the proxy runs without any
// config file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config invalid after env overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables that fail to parse are ignored; the value
// from the file (or default) stays in effect.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if v := os.Getenv("QUAESTOR_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("QUAESTOR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Upstream overrides
	if v := os.Getenv("QUAESTOR_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("QUAESTOR_UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = d
		}
	}

	// Credential overrides. ANTHROPIC_API_KEY is honored so the proxy
	// picks up the key most workstations already export.
	if v := os.Getenv("QUAESTOR_API_KEY"); v != "" {
		cfg.API.Key = v
	} else if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.API.Key == "" {
		cfg.API.Key = v
	}

	// Budget overrides
	if v := os.Getenv("QUAESTOR_BUDGET_MONTHLY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Budget.Monthly = f
		}
	}
	if v := os.Getenv("QUAESTOR_BUDGET_DAILY_SOFT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Budget.DailySoft = f
		}
	}
	if v := os.Getenv("QUAESTOR_BUDGET_DAILY_HARD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Budget.DailyHard = f
		}
	}

	// Routing overrides
	if v := os.Getenv("QUAESTOR_ROUTING_AUTO_CLASSIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Routing.AutoClassify = &b
		}
	}

	// Storage overrides
	if v := os.Getenv("QUAESTOR_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = expandHome(v)
	}

	// Logging overrides
	if v := os.Getenv("QUAESTOR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QUAESTOR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics overrides
	if v := os.Getenv("QUAESTOR_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = &b
		}
	}
}
