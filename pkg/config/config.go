package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for Quaestor.
// It contains all configuration sections for the proxy server, the
// upstream Anthropic API, budget enforcement, routing, pricing,
// storage, and telemetry settings.
type Config struct {
	// Server contains HTTP listener configuration including bind
	// address, timeouts, and graceful shutdown.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the Anthropic API the proxy
	// forwards to, including the retry policy for rate limits.
	Upstream UpstreamConfig `yaml:"upstream"`

	// API contains upstream credential configuration.
	API APIConfig `yaml:"api"`

	// Budget contains daily and monthly spending limits and the
	// enforcement policy once the monthly budget is exhausted.
	Budget BudgetConfig `yaml:"budget"`

	// Routing contains configuration for the tier router including
	// heuristic thresholds and the classifier escalation.
	Routing RoutingConfig `yaml:"routing"`

	// Models maps routing tiers to concrete Anthropic model IDs.
	Models ModelsConfig `yaml:"models"`

	// Pricing contains optional per-model price overrides.
	Pricing PricingConfig `yaml:"pricing"`

	// Storage contains configuration for the SQLite usage ledger
	// including retention.
	Storage StorageConfig `yaml:"storage"`

	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Alerts controls which budget threshold alerts are raised.
	Alerts AlertsConfig `yaml:"alerts"`
}

// ServerConfig contains configuration for the HTTP proxy server.
type ServerConfig struct {
	// Host is the address the proxy binds to. The proxy carries API
	// credentials, so it should stay on loopback unless the network is
	// trusted.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the TCP port the proxy listens on.
	// Default: 4000
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body. A zero value means no timeout.
	// Default: 60s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Streamed completions can legitimately run for
	// minutes, so the default is no timeout; the upstream timeout
	// bounds the exchange instead.
	// Default: 0 (no timeout)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing request headers. It does not limit the body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ListenAddress returns the host:port string the server binds to.
func (c ServerConfig) ListenAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UpstreamConfig contains configuration for the upstream Anthropic API.
type UpstreamConfig struct {
	// BaseURL is the API endpoint requests are forwarded to.
	// Default: "https://api.anthropic.com"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds one upstream exchange including the body read.
	// Streaming responses finish within this window or are cut off.
	// Default: 300s
	Timeout time.Duration `yaml:"timeout"`

	// Retry controls how 429 responses from the upstream are retried.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains the upstream rate-limit retry policy.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// InitialDelay is the wait before the first retry. A Retry-After
	// header from the upstream takes precedence.
	// Default: 5s
	InitialDelay time.Duration `yaml:"initial_delay"`

	// BackoffMultiplier scales the delay after each retry.
	// Default: 3
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// APIConfig contains upstream credential configuration.
type APIConfig struct {
	// Key is the Anthropic API key injected into forwarded requests
	// when the caller supplies none. Leave empty to require callers to
	// authenticate themselves. The QUAESTOR_API_KEY and
	// ANTHROPIC_API_KEY environment variables override this field.
	// Default: "" (callers must supply credentials)
	Key string `yaml:"key"`
}

// BudgetConfig contains spending limits. Amounts are in the configured
// currency.
type BudgetConfig struct {
	// Monthly is the base monthly budget, before rollover.
	// Default: 90
	Monthly float64 `yaml:"monthly"`

	// DailySoft is the daily spending target. Crossing it raises an
	// alert but never blocks requests.
	// Default: 5
	DailySoft float64 `yaml:"daily_soft"`

	// DailyHard is the daily cutoff. Once reached, requests are forced
	// to the cheap tier unless manually overridden.
	// Default: 10
	DailyHard float64 `yaml:"daily_hard"`

	// Rollover controls whether unused monthly budget carries over into
	// the next month.
	// Default: true
	Rollover *bool `yaml:"rollover"`

	// MaxRolloverFraction caps the carried amount as a fraction of the
	// previous month's base budget.
	// Default: 0.5
	MaxRolloverFraction float64 `yaml:"max_rollover_fraction"`

	// Currency is the accounting currency. Only "EUR" is supported.
	// Default: "EUR"
	Currency string `yaml:"currency"`

	// OnMonthlyExhausted is the action once monthly spending reaches
	// the effective monthly limit: "downgrade" forces the cheap tier,
	// "reject" declines requests outright.
	// Default: "downgrade"
	OnMonthlyExhausted string `yaml:"on_monthly_exhausted"`
}

// RolloverEnabled reports whether monthly rollover is on.
func (c BudgetConfig) RolloverEnabled() bool {
	return c.Rollover == nil || *c.Rollover
}

// RoutingConfig contains configuration for the tier router.
type RoutingConfig struct {
	// AutoClassify controls whether ambiguous queries are classified by
	// a cheap-tier model call. When disabled, ambiguous queries stay on
	// the cheap tier.
	// Default: true
	AutoClassify *bool `yaml:"auto_classify"`

	// ShortMessageWords is the word count below which a query routes to
	// the cheap tier without further analysis.
	// Default: 20
	ShortMessageWords int `yaml:"short_message_words"`

	// Keywords are complexity markers that route a query straight to
	// the premium tier. Matched case-insensitively as substrings. An
	// empty list uses the built-in keyword set.
	// Default: built-in keyword set
	Keywords []string `yaml:"keywords"`

	// ClassifierTimeout bounds one classification call.
	// Default: 10s
	ClassifierTimeout time.Duration `yaml:"classifier_timeout"`
}

// ClassifyEnabled reports whether classifier escalation is on.
func (c RoutingConfig) ClassifyEnabled() bool {
	return c.AutoClassify == nil || *c.AutoClassify
}

// ModelsConfig maps routing tiers to concrete Anthropic model IDs.
type ModelsConfig struct {
	// Cheap is the model serving the cheap tier.
	// Default: "claude-3-5-haiku-20241022"
	Cheap string `yaml:"cheap"`

	// Mid is the model serving the mid tier.
	// Default: "claude-sonnet-4-20250514"
	Mid string `yaml:"mid"`

	// Premium is the model serving the premium tier.
	// Default: "claude-opus-4-20250514"
	Premium string `yaml:"premium"`
}

// PricingConfig contains optional per-model price overrides. Models not
// listed here use the built-in price table.
type PricingConfig struct {
	// Overrides maps model IDs to prices in the configured currency per
	// million tokens.
	Overrides map[string]ModelPrice `yaml:"overrides"`
}

// ModelPrice is the price of one model in currency per million tokens.
type ModelPrice struct {
	// InputPerMTok is the price of one million input tokens.
	InputPerMTok float64 `yaml:"input_per_mtok"`

	// OutputPerMTok is the price of one million output tokens.
	OutputPerMTok float64 `yaml:"output_per_mtok"`
}

// StorageConfig contains configuration for the SQLite usage ledger.
type StorageConfig struct {
	// Path is the ledger database file. A leading "~/" expands to the
	// user's home directory.
	// Default: "~/.quaestor/usage.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long in-database lock waits may block before
	// failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// LockTimeout is how long to wait for the advisory process lock
	// guarding the database file.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// RetentionDays is the number of days usage records are kept.
	// 0 keeps records forever.
	// Default: 365
	RetentionDays int `yaml:"retention_days"`

	// MaintenanceSchedule is a cron expression for the retention and
	// period-maintenance job. Empty disables scheduled maintenance.
	// Default: "0 3 * * *" (daily at 3 AM)
	MaintenanceSchedule string `yaml:"maintenance_schedule"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the log encoding: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the prefix for all metric names.
	// Default: "quaestor"
	Namespace string `yaml:"namespace"`
}

// MetricsEnabled reports whether metrics are on.
func (c MetricsConfig) MetricsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// AlertsConfig controls which budget threshold alerts are raised.
// Alerts are logged and counted, never blocking.
type AlertsConfig struct {
	// Daily80Percent raises an alert when daily spending crosses 80%
	// of the daily soft limit.
	// Default: true
	Daily80Percent *bool `yaml:"daily_80_percent"`

	// Monthly80Percent raises an alert when monthly spending crosses
	// 80% of the effective monthly limit.
	// Default: true
	Monthly80Percent *bool `yaml:"monthly_80_percent"`
}

// DailyEnabled reports whether the daily threshold alert is on.
func (c AlertsConfig) DailyEnabled() bool {
	return c.Daily80Percent == nil || *c.Daily80Percent
}

// MonthlyEnabled reports whether the monthly threshold alert is on.
func (c AlertsConfig) MonthlyEnabled() bool {
	return c.Monthly80Percent == nil || *c.Monthly80Percent
}
