// Package config provides configuration management for Quaestor.
//
// This package handles loading, validating, and managing configuration
// from YAML files with environment variable overrides. It provides a
// type-safe configuration system with validation and sensible defaults,
// and the proxy runs without any config file at all.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("quaestor.yaml")
//
//  2. From a YAML file with environment variable overrides (an empty
//     path loads pure defaults):
//     cfg, err := config.LoadConfigWithEnvOverrides("quaestor.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention
// QUAESTOR_SECTION_FIELD. For example:
//
//   - QUAESTOR_SERVER_PORT overrides server.port
//   - QUAESTOR_BUDGET_DAILY_HARD overrides budget.daily_hard
//   - QUAESTOR_STORAGE_PATH overrides storage.path
//
// QUAESTOR_API_KEY overrides api.key; ANTHROPIC_API_KEY is honored as a
// fallback when neither the file nor QUAESTOR_API_KEY sets a key.
// Environment variables always take precedence over file-based
// configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later
// overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher watches the config file and delivers validated reloads while
// the proxy is running. Budget limits, routing thresholds and keywords,
// pricing overrides, and alert toggles apply live; RestartSections
// names changed sections that only take effect after a restart, so the
// caller can log them as ignored.
//
// # Validation
//
// All configuration is validated automatically during loading.
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - server.port: port must be between 1 and 65535, got 99999
//	  - budget.on_monthly_exhausted: must be "downgrade" or "reject", got "panic"
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  port: 4000
//
//	budget:
//	  monthly: 90
//	  daily_soft: 5
//	  daily_hard: 10
//
//	routing:
//	  auto_classify: true
//
//	logging:
//	  level: "info"
//	  format: "json"
package config
