package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/quaestor/pkg/cli"
	"mercator-hq/quaestor/pkg/config"
	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/ledger/retention"
	"mercator-hq/quaestor/pkg/ledger/storage"
	"mercator-hq/quaestor/pkg/pricing"
	"mercator-hq/quaestor/pkg/proxy"
	"mercator-hq/quaestor/pkg/routing"
	"mercator-hq/quaestor/pkg/server"
	"mercator-hq/quaestor/pkg/telemetry/logging"
	"mercator-hq/quaestor/pkg/telemetry/metrics"
	"mercator-hq/quaestor/pkg/upstream/anthropic"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Quaestor proxy server",
	Long: `Start the Quaestor proxy server with the specified configuration.

The server listens on the configured address and forwards Messages API
requests upstream through the tier router and budget enforcer.

Examples:
  # Start with default config
  quaestor run

  # Start with custom config
  quaestor run --config /etc/quaestor/quaestor.yaml

  # Override listen address
  quaestor run --listen 127.0.0.1:4100

  # Validate config without starting server
  quaestor run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		host, port, err := net.SplitHostPort(runFlags.listenAddress)
		if err != nil {
			return cli.NewConfigError("server", fmt.Sprintf("invalid listen address %q: %v", runFlags.listenAddress, err))
		}
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return cli.NewConfigError("server.port", fmt.Sprintf("invalid port %q", port))
		}
		cfg.Server.Host = host
		cfg.Server.Port = portNum
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	} else if verbose {
		cfg.Logging.Level = "debug"
	}

	// Initialize logging based on config
	if _, err := logging.Setup(cfg.Logging, os.Stdout); err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfgPath)

	// Open the usage ledger
	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
		LockTimeout: cfg.Storage.LockTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open usage ledger: %w", err)
	}
	defer store.Close()
	fmt.Printf("✓ Usage ledger opened (%s)\n", cfg.Storage.Path)

	led := ledger.New(store, ledgerConfigFrom(cfg), logging.ForComponent("ledger"))

	// Routing, enforcement and pricing
	router := routing.NewRouter(routingConfigFrom(cfg), logging.ForComponent("router"))
	enforcer := enforcement.NewEnforcer(enforcementConfigFrom(cfg))
	table := pricing.NewTable(pricingOverridesFrom(cfg))

	var collector *metrics.Collector
	if cfg.Metrics.MetricsEnabled() {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	// Upstream API client. Retries are reported to the collector; its
	// methods accept a nil receiver, so the binding is unconditional.
	client := anthropic.NewClient(anthropic.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Retry: anthropic.RetryConfig{
			MaxRetries:   cfg.Upstream.Retry.MaxRetries,
			InitialDelay: cfg.Upstream.Retry.InitialDelay,
			Multiplier:   cfg.Upstream.Retry.BackoffMultiplier,
		},
		OnRetry: collector.RecordUpstreamRetry,
	}, logging.ForComponent("upstream"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled ledger maintenance
	pruner := retention.NewPruner(led, &retention.Config{
		RetentionDays: cfg.Storage.RetentionDays,
		Schedule:      cfg.Storage.MaintenanceSchedule,
	})
	if err := pruner.Start(ctx); err != nil {
		slog.Warn("failed to start maintenance scheduler", "error", err)
	} else {
		defer pruner.Stop()
		if next := pruner.NextRun(); next != nil {
			slog.Debug("ledger maintenance scheduled", "next_run", next)
		}
	}

	// Hot reload of the safe config subset (when a config file is in use)
	if cfgPath != "" {
		watcher, err := config.NewWatcher(cfgPath, logging.ForComponent("config.watcher"))
		if err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		} else {
			current := cfg
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					router.Update(routingConfigFrom(next))
					led.UpdateBudget(ledgerConfigFrom(next))
					table.Update(pricingOverridesFrom(next))
					enforcer.Update(enforcementConfigFrom(next))
					if sections := config.RestartSections(current, next); len(sections) > 0 {
						slog.Warn("config changes need a restart to apply", "sections", sections)
					}
					current = next
				})
				if err != nil {
					slog.Error("config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	// Create HTTP server
	slog.Info("creating HTTP server")
	srv := server.NewServer(cfg.Server, server.Components{
		Router:      router,
		Enforcer:    enforcer,
		Ledger:      led,
		Upstream:    client,
		Pricing:     table,
		Models:      modelMapFrom(cfg),
		Credentials: anthropic.Credentials{APIKey: cfg.API.Key},
		Metrics:     collector,
		Version:     Version,
	})

	// Start server in background goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for server to be ready
	if err := waitForServerReady(cfg.Server.ListenAddress(), 5*time.Second); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress())
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress())
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress())
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

func printBanner(cfgPath string) {
	fmt.Printf("Quaestor v%s\n", Version)
	if cfgPath != "" {
		fmt.Printf("Loading configuration from: %s\n", cfgPath)
	} else {
		fmt.Println("No config file found, using built-in defaults")
	}
	fmt.Println("✓ Configuration loaded")
}

// waitForServerReady polls the listen address until it accepts
// connections.
func waitForServerReady(address string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", address, 250*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("not listening on %s after %s", address, timeout)
}

// ledgerConfigFrom converts the budget config section to ledger limits.
func ledgerConfigFrom(cfg *config.Config) ledger.Config {
	return ledger.Config{
		MonthlyBudget:       pricing.FromEUR(cfg.Budget.Monthly),
		DailySoftLimit:      pricing.FromEUR(cfg.Budget.DailySoft),
		DailyHardLimit:      pricing.FromEUR(cfg.Budget.DailyHard),
		RolloverEnabled:     cfg.Budget.RolloverEnabled(),
		MaxRolloverFraction: cfg.Budget.MaxRolloverFraction,
	}
}

// routingConfigFrom converts the routing config section for the router.
// The classifier always runs on the cheap tier model.
func routingConfigFrom(cfg *config.Config) routing.Config {
	return routing.Config{
		ShortMessageWords:   cfg.Routing.ShortMessageWords,
		Keywords:            cfg.Routing.Keywords,
		ClassifierModel:     cfg.Models.Cheap,
		EscalationTimeout:   cfg.Routing.ClassifierTimeout,
		DisableAutoClassify: !cfg.Routing.ClassifyEnabled(),
	}
}

// enforcementConfigFrom converts the budget and alert config sections
// for the enforcer.
func enforcementConfigFrom(cfg *config.Config) enforcement.Config {
	return enforcement.Config{
		OnMonthlyExhausted:  enforcement.Action(cfg.Budget.OnMonthlyExhausted),
		DisableDailyAlert:   !cfg.Alerts.DailyEnabled(),
		DisableMonthlyAlert: !cfg.Alerts.MonthlyEnabled(),
	}
}

// pricingOverridesFrom converts configured price overrides to table
// entries.
func pricingOverridesFrom(cfg *config.Config) map[string]pricing.Price {
	if len(cfg.Pricing.Overrides) == 0 {
		return nil
	}
	overrides := make(map[string]pricing.Price, len(cfg.Pricing.Overrides))
	for model, p := range cfg.Pricing.Overrides {
		overrides[model] = pricing.Price{
			InputPerMTok:  pricing.FromEUR(p.InputPerMTok),
			OutputPerMTok: pricing.FromEUR(p.OutputPerMTok),
		}
	}
	return overrides
}

// modelMapFrom binds each tier to its configured model.
func modelMapFrom(cfg *config.Config) proxy.ModelMap {
	return proxy.ModelMap{
		pricing.TierCheap:   cfg.Models.Cheap,
		pricing.TierMid:     cfg.Models.Mid,
		pricing.TierPremium: cfg.Models.Premium,
	}
}
