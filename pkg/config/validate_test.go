package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Default configuration must validate, got %v", err)
	}
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty host",
			mutate:    func(c *Config) { c.Server.Host = "" },
			wantField: "server.host",
		},
		{
			name:      "port too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantField: "server.port",
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantField: "server.port",
		},
		{
			name:      "negative read timeout",
			mutate:    func(c *Config) { c.Server.ReadTimeout = -1 },
			wantField: "server.read_timeout",
		},
		{
			name:      "empty base URL",
			mutate:    func(c *Config) { c.Upstream.BaseURL = "" },
			wantField: "upstream.base_url",
		},
		{
			name:      "bad URL scheme",
			mutate:    func(c *Config) { c.Upstream.BaseURL = "ftp://api.anthropic.com" },
			wantField: "upstream.base_url",
		},
		{
			name:      "zero upstream timeout",
			mutate:    func(c *Config) { c.Upstream.Timeout = 0 },
			wantField: "upstream.timeout",
		},
		{
			name:      "backoff multiplier below one",
			mutate:    func(c *Config) { c.Upstream.Retry.BackoffMultiplier = 0.5 },
			wantField: "upstream.retry.backoff_multiplier",
		},
		{
			name:      "negative monthly budget",
			mutate:    func(c *Config) { c.Budget.Monthly = -10 },
			wantField: "budget.monthly",
		},
		{
			name:      "soft above hard",
			mutate:    func(c *Config) { c.Budget.DailySoft = 20; c.Budget.DailyHard = 10 },
			wantField: "budget.daily_soft",
		},
		{
			name:      "rollover fraction above one",
			mutate:    func(c *Config) { c.Budget.MaxRolloverFraction = 1.5 },
			wantField: "budget.max_rollover_fraction",
		},
		{
			name:      "unsupported currency",
			mutate:    func(c *Config) { c.Budget.Currency = "USD" },
			wantField: "budget.currency",
		},
		{
			name:      "bad exhaustion action",
			mutate:    func(c *Config) { c.Budget.OnMonthlyExhausted = "panic" },
			wantField: "budget.on_monthly_exhausted",
		},
		{
			name:      "zero short message words",
			mutate:    func(c *Config) { c.Routing.ShortMessageWords = -3 },
			wantField: "routing.short_message_words",
		},
		{
			name:      "blank keyword",
			mutate:    func(c *Config) { c.Routing.Keywords = []string{"plan", "  "} },
			wantField: "routing.keywords[1]",
		},
		{
			name:      "missing cheap model",
			mutate:    func(c *Config) { c.Models.Cheap = "" },
			wantField: "models.cheap",
		},
		{
			name: "negative price override",
			mutate: func(c *Config) {
				c.Pricing.Overrides = map[string]ModelPrice{
					"claude-3-5-haiku-20241022": {InputPerMTok: -1},
				}
			},
			wantField: "pricing.overrides.claude-3-5-haiku-20241022.input_per_mtok",
		},
		{
			name:      "empty storage path",
			mutate:    func(c *Config) { c.Storage.Path = "" },
			wantField: "storage.path",
		},
		{
			name:      "negative retention",
			mutate:    func(c *Config) { c.Storage.RetentionDays = -1 },
			wantField: "storage.retention_days",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected a validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected a ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Expected an error for field %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = ""
	cfg.Budget.Currency = "USD"
	cfg.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected a ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(verr.Error(), "3 errors") {
		t.Errorf("Error message should count the failures: %q", verr.Error())
	}
}
