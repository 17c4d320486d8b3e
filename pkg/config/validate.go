package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access
// to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. It returns nil if the
// configuration is valid. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateModels(&cfg.Models)...)
	errs = append(errs, validatePricing(&cfg.Pricing)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must not be negative",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must not be negative",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must not be negative",
		})
	}

	return errs
}

// validateUpstream validates upstream API configuration.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: "base URL is required",
		})
	} else {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   "upstream.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, FieldError{
				Field:   "upstream.base_url",
				Message: fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme),
			})
		}
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.Retry.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.retry.max_retries",
			Message: "max retries must not be negative",
		})
	}
	if cfg.Retry.InitialDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.retry.initial_delay",
			Message: "initial delay must not be negative",
		})
	}
	if cfg.Retry.BackoffMultiplier < 1 {
		errs = append(errs, FieldError{
			Field:   "upstream.retry.backoff_multiplier",
			Message: "backoff multiplier must be at least 1",
		})
	}

	return errs
}

// validateBudget validates budget configuration.
func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError

	if cfg.Monthly <= 0 {
		errs = append(errs, FieldError{
			Field:   "budget.monthly",
			Message: "monthly budget must be positive",
		})
	}
	if cfg.DailySoft <= 0 {
		errs = append(errs, FieldError{
			Field:   "budget.daily_soft",
			Message: "daily soft limit must be positive",
		})
	}
	if cfg.DailyHard <= 0 {
		errs = append(errs, FieldError{
			Field:   "budget.daily_hard",
			Message: "daily hard limit must be positive",
		})
	}
	if cfg.DailySoft > 0 && cfg.DailyHard > 0 && cfg.DailySoft > cfg.DailyHard {
		errs = append(errs, FieldError{
			Field:   "budget.daily_soft",
			Message: fmt.Sprintf("daily soft limit (%.2f) must not exceed the daily hard limit (%.2f)", cfg.DailySoft, cfg.DailyHard),
		})
	}
	if cfg.MaxRolloverFraction < 0 || cfg.MaxRolloverFraction > 1 {
		errs = append(errs, FieldError{
			Field:   "budget.max_rollover_fraction",
			Message: fmt.Sprintf("max rollover fraction must be between 0 and 1, got %g", cfg.MaxRolloverFraction),
		})
	}
	if cfg.Currency != "EUR" {
		errs = append(errs, FieldError{
			Field:   "budget.currency",
			Message: fmt.Sprintf("unsupported currency %q: only EUR is supported", cfg.Currency),
		})
	}
	switch cfg.OnMonthlyExhausted {
	case "downgrade", "reject":
	default:
		errs = append(errs, FieldError{
			Field:   "budget.on_monthly_exhausted",
			Message: fmt.Sprintf("must be %q or %q, got %q", "downgrade", "reject", cfg.OnMonthlyExhausted),
		})
	}

	return errs
}

// validateRouting validates routing configuration.
func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError

	if cfg.ShortMessageWords <= 0 {
		errs = append(errs, FieldError{
			Field:   "routing.short_message_words",
			Message: "short message threshold must be positive",
		})
	}
	if cfg.ClassifierTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "routing.classifier_timeout",
			Message: "classifier timeout must be positive",
		})
	}
	for i, kw := range cfg.Keywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("routing.keywords[%d]", i),
				Message: "keyword must not be blank",
			})
		}
	}

	return errs
}

// validateModels validates the tier to model mapping.
func validateModels(cfg *ModelsConfig) []FieldError {
	var errs []FieldError

	if cfg.Cheap == "" {
		errs = append(errs, FieldError{
			Field:   "models.cheap",
			Message: "cheap tier model is required",
		})
	}
	if cfg.Mid == "" {
		errs = append(errs, FieldError{
			Field:   "models.mid",
			Message: "mid tier model is required",
		})
	}
	if cfg.Premium == "" {
		errs = append(errs, FieldError{
			Field:   "models.premium",
			Message: "premium tier model is required",
		})
	}

	return errs
}

// validatePricing validates pricing overrides.
func validatePricing(cfg *PricingConfig) []FieldError {
	var errs []FieldError

	for model, price := range cfg.Overrides {
		if model == "" {
			errs = append(errs, FieldError{
				Field:   "pricing.overrides",
				Message: "model ID must not be empty",
			})
			continue
		}
		if price.InputPerMTok < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("pricing.overrides.%s.input_per_mtok", model),
				Message: "price must not be negative",
			})
		}
		if price.OutputPerMTok < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("pricing.overrides.%s.output_per_mtok", model),
				Message: "price must not be negative",
			})
		}
	}

	return errs
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "storage.path",
			Message: "database path is required",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "busy timeout must not be negative",
		})
	}
	if cfg.LockTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.lock_timeout",
			Message: "lock timeout must not be negative",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.retention_days",
			Message: "retention days must not be negative",
		})
	}

	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Level),
		})
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be %q or %q, got %q", "json", "text", cfg.Format),
		})
	}

	return errs
}
