package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 4000
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 0 // streams run long, the upstream timeout bounds them
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Upstream defaults
	DefaultUpstreamBaseURL   = "https://api.anthropic.com"
	DefaultUpstreamTimeout   = 300 * time.Second
	DefaultRetryMaxRetries   = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultBackoffMultiplier = 3.0

	// Budget defaults
	DefaultMonthlyBudget       = 90.0
	DefaultDailySoftLimit      = 5.0
	DefaultDailyHardLimit      = 10.0
	DefaultMaxRolloverFraction = 0.5
	DefaultCurrency            = "EUR"
	DefaultOnMonthlyExhausted  = "downgrade"

	// Routing defaults
	DefaultShortMessageWords = 20
	DefaultClassifierTimeout = 10 * time.Second

	// Model defaults
	DefaultModelCheap   = "claude-3-5-haiku-20241022"
	DefaultModelMid     = "claude-sonnet-4-20250514"
	DefaultModelPremium = "claude-opus-4-20250514"

	// Storage defaults
	DefaultBusyTimeout         = 5 * time.Second
	DefaultLockTimeout         = 5 * time.Second
	DefaultRetentionDays       = 365
	DefaultMaintenanceSchedule = "0 3 * * *"

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"

	// Metrics defaults
	DefaultMetricsNamespace = "quaestor"
)

// DefaultStoragePath returns the default ledger database location,
// ~/.quaestor/usage.db. When the home directory cannot be resolved it
// falls back to the working directory.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "usage.db"
	}
	return filepath.Join(home, ".quaestor", "usage.db")
}

// ApplyDefaults fills in default values for any unset configuration
// fields. It modifies the config in place. Fields already set keep
// their values.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	// WriteTimeout stays zero: streamed responses must not be cut off.
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.Retry.MaxRetries == 0 {
		cfg.Upstream.Retry.MaxRetries = DefaultRetryMaxRetries
	}
	if cfg.Upstream.Retry.InitialDelay == 0 {
		cfg.Upstream.Retry.InitialDelay = DefaultRetryInitialDelay
	}
	if cfg.Upstream.Retry.BackoffMultiplier == 0 {
		cfg.Upstream.Retry.BackoffMultiplier = DefaultBackoffMultiplier
	}

	// Budget defaults
	if cfg.Budget.Monthly == 0 {
		cfg.Budget.Monthly = DefaultMonthlyBudget
	}
	if cfg.Budget.DailySoft == 0 {
		cfg.Budget.DailySoft = DefaultDailySoftLimit
	}
	if cfg.Budget.DailyHard == 0 {
		cfg.Budget.DailyHard = DefaultDailyHardLimit
	}
	if cfg.Budget.MaxRolloverFraction == 0 {
		cfg.Budget.MaxRolloverFraction = DefaultMaxRolloverFraction
	}
	if cfg.Budget.Currency == "" {
		cfg.Budget.Currency = DefaultCurrency
	}
	if cfg.Budget.OnMonthlyExhausted == "" {
		cfg.Budget.OnMonthlyExhausted = DefaultOnMonthlyExhausted
	}

	// Routing defaults
	if cfg.Routing.ShortMessageWords == 0 {
		cfg.Routing.ShortMessageWords = DefaultShortMessageWords
	}
	if cfg.Routing.ClassifierTimeout == 0 {
		cfg.Routing.ClassifierTimeout = DefaultClassifierTimeout
	}

	// Model defaults
	if cfg.Models.Cheap == "" {
		cfg.Models.Cheap = DefaultModelCheap
	}
	if cfg.Models.Mid == "" {
		cfg.Models.Mid = DefaultModelMid
	}
	if cfg.Models.Premium == "" {
		cfg.Models.Premium = DefaultModelPremium
	}

	// Storage defaults
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath()
	} else {
		cfg.Storage.Path = expandHome(cfg.Storage.Path)
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Storage.LockTimeout == 0 {
		cfg.Storage.LockTimeout = DefaultLockTimeout
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Storage.MaintenanceSchedule == "" {
		cfg.Storage.MaintenanceSchedule = DefaultMaintenanceSchedule
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Metrics defaults
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
// The path is returned unchanged when the home directory cannot be
// resolved.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
